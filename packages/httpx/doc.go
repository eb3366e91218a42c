// Package httpx provides the HTTP client used to drive probe scenarios.
//
// It wraps the standard library's http package with additional features:
//   - Configurable timeouts and redirect handling
//   - Transport profiles for comparing connection behavior
//   - Cookie-jar backed sessions
//   - Transparent gzip and brotli decoding
//   - Streaming reads and multipart uploads
package httpx
