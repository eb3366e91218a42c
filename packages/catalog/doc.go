// Package catalog defines the built-in scenarios binprobe runs against an
// httpbin-compatible service.
//
// Scenarios are grouped the way the classic httpbin client exercise is:
// basic verbs, params and headers, body formats, auth, cookies, error
// statuses, redirects, delays, streaming, compression, parallelism, upload,
// response formats, and sessions. Each scenario issues one or more requests
// and verifies the echoed response against httpbin's documented contract.
package catalog
