package catalog

import (
	"strings"

	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/xeipuuv/gojsonschema"
)

// Schemas for httpbin's echo payloads. The /get echo carries args, headers,
// origin and url; /post additionally echoes body material.
const getEchoSchema = `{
	"type": "object",
	"required": ["args", "headers", "url"],
	"properties": {
		"args": {"type": "object"},
		"headers": {"type": "object"},
		"origin": {"type": "string"},
		"url": {"type": "string"}
	}
}`

const postEchoSchema = `{
	"type": "object",
	"required": ["args", "headers", "url", "data", "files", "form"],
	"properties": {
		"args": {"type": "object"},
		"headers": {"type": "object"},
		"origin": {"type": "string"},
		"url": {"type": "string"},
		"data": {"type": "string"},
		"files": {"type": "object"},
		"form": {"type": "object"}
	}
}`

var (
	getEchoLoader  = gojsonschema.NewStringLoader(getEchoSchema)
	postEchoLoader = gojsonschema.NewStringLoader(postEchoSchema)
)

// requireGetEchoShape validates the /get echo payload structure.
func requireGetEchoShape(resp *httpx.Response) error {
	return validateSchema(getEchoLoader, resp)
}

// requirePostEchoShape validates the /post (and /put, /delete with body)
// echo payload structure.
func requirePostEchoShape(resp *httpx.Response) error {
	return validateSchema(postEchoLoader, resp)
}

func validateSchema(schema gojsonschema.JSONLoader, resp *httpx.Response) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(resp.Body))
	if err != nil {
		return checkFailf("echo payload is not valid JSON: %v", err)
	}

	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return checkFailf("echo payload shape invalid: %s", strings.Join(reasons, "; "))
	}

	return nil
}
