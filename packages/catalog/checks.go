package catalog

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/tidwall/gjson"
)

// CheckError marks a scenario failure where the service responded but the
// response violated the expected contract. Transport failures stay plain
// errors so callers can tell the two apart.
type CheckError struct {
	Reason string
}

func (e *CheckError) Error() string {
	return e.Reason
}

func checkFailf(format string, args ...any) error {
	return &CheckError{Reason: fmt.Sprintf(format, args...)}
}

// IsCheckError reports whether err is a contract violation rather than a
// transport failure.
func IsCheckError(err error) bool {
	_, ok := err.(*CheckError)
	return ok
}

func requireStatus(resp *httpx.Response, want int) error {
	if resp.StatusCode != want {
		return checkFailf("expected status %d, got %d", want, resp.StatusCode)
	}
	return nil
}

// requireJSONPath asserts a gjson path exists and equals want.
func requireJSONPath(resp *httpx.Response, path, want string) error {
	val := gjson.GetBytes(resp.Body, path)
	if !val.Exists() {
		return checkFailf("response JSON missing %q", path)
	}
	if val.String() != want {
		return checkFailf("%s: expected %q, got %q", path, want, val.String())
	}
	return nil
}

// requireJSONBool asserts a gjson path is a true/false value.
func requireJSONBool(resp *httpx.Response, path string, want bool) error {
	val := gjson.GetBytes(resp.Body, path)
	if !val.Exists() {
		return checkFailf("response JSON missing %q", path)
	}
	if val.Bool() != want {
		return checkFailf("%s: expected %v, got %v", path, want, val.Bool())
	}
	return nil
}

func requireJSONExists(resp *httpx.Response, path string) error {
	if !gjson.GetBytes(resp.Body, path).Exists() {
		return checkFailf("response JSON missing %q", path)
	}
	return nil
}

// requireJSONBody asserts the response declares JSON and the body decodes.
func requireJSONBody(resp *httpx.Response) error {
	if !resp.IsJSON() {
		return checkFailf("expected a JSON Content-Type, got %q", resp.ContentType())
	}
	if _, err := resp.BodyJSON(); err != nil {
		return checkFailf("body is not valid JSON: %v", err)
	}
	return nil
}

// requireStatusClass asserts the response sits in the 4xx or 5xx class the
// requested status code belongs to.
func requireStatusClass(resp *httpx.Response, code int) error {
	switch {
	case code >= 500:
		if !resp.IsServerError() {
			return checkFailf("expected a server error, got %d", resp.StatusCode)
		}
	case code >= 400:
		if !resp.IsClientError() {
			return checkFailf("expected a client error, got %d", resp.StatusCode)
		}
	}
	return nil
}

func requireContentType(resp *httpx.Response, want string) error {
	ct := resp.ContentType()
	if ct == "" {
		return checkFailf("response has no Content-Type")
	}
	if !strings.Contains(strings.ToLower(ct), strings.ToLower(want)) {
		return checkFailf("expected Content-Type containing %q, got %q", want, ct)
	}
	return nil
}
