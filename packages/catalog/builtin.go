package catalog

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// UserAgent is sent on scenarios that verify the user-agent echo.
const UserAgent = "binprobe/1.0"

// timeoutBudget is the client budget for the expected-timeout scenario; the
// server-side delay must exceed it.
const timeoutBudget = 3 * time.Second

// Builtin returns the full built-in scenario catalog in run order.
func Builtin() []*Scenario {
	var all []*Scenario
	all = append(all, basicScenarios()...)
	all = append(all, paramScenarios()...)
	all = append(all, bodyScenarios()...)
	all = append(all, authScenarios()...)
	all = append(all, cookieScenarios()...)
	all = append(all, errorScenarios()...)
	all = append(all, redirectScenarios()...)
	all = append(all, delayScenarios()...)
	all = append(all, streamingScenarios()...)
	all = append(all, compressionScenarios()...)
	all = append(all, parallelScenarios()...)
	all = append(all, uploadScenarios()...)
	all = append(all, formatScenarios()...)
	all = append(all, sessionScenarios()...)
	return all
}

func basicScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "basic/get",
			Group: "basic",
			Name:  "GET request",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL("/get"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireGetEchoShape(resp)
			},
		},
		{
			ID:    "basic/post-json",
			Group: "basic",
			Name:  "POST with JSON body",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodPost, env.URL("/post"))
				req.SetJSONBody(map[string]any{"name": "test", "value": 123})
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requirePostEchoShape(resp); err != nil {
					return err
				}
				return requireJSONPath(resp, "json.name", "test")
			},
		},
		{
			ID:    "basic/put",
			Group: "basic",
			Name:  "PUT request",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodPut, env.URL("/put"))
				req.SetJSONBody(map[string]any{"updated": true})
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONBool(resp, "json.updated", true)
			},
		},
		{
			ID:    "basic/delete",
			Group: "basic",
			Name:  "DELETE request",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Delete(ctx, env.URL("/delete"), nil)
				if err != nil {
					return err
				}
				return requireStatus(resp, 200)
			},
		},
	}
}

func paramScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "params/query",
			Group: "params",
			Name:  "GET with query parameters",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/get"))
				req.SetQueryParam("param1", "value1")
				req.SetQueryParam("param2", "value2")
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requireJSONPath(resp, "args.param1", "value1"); err != nil {
					return err
				}
				return requireJSONPath(resp, "args.param2", "value2")
			},
		},
		{
			ID:    "params/custom-headers",
			Group: "params",
			Name:  "Custom request headers echoed",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/headers"))
				req.SetHeader("Custom-Header", "test-value")
				req.SetHeader("Authorization", "Bearer token123")
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requireJSONPath(resp, "headers.Custom-Header", "test-value"); err != nil {
					return err
				}
				return requireJSONPath(resp, "headers.Authorization", "Bearer token123")
			},
		},
		{
			ID:    "params/user-agent",
			Group: "params",
			Name:  "User-Agent echoed",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/user-agent"))
				req.SetHeader("User-Agent", UserAgent)
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONPath(resp, "user-agent", UserAgent)
			},
		},
	}
}

func bodyScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "body/json",
			Group: "body",
			Name:  "JSON body echoed as json",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodPost, env.URL("/post"))
				req.SetJSONBody(map[string]any{"key": "value", "number": 42})
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requireJSONPath(resp, "json.key", "value"); err != nil {
					return err
				}
				return requireJSONPath(resp, "json.number", "42")
			},
		},
		{
			ID:    "body/form",
			Group: "body",
			Name:  "Form body echoed as form",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodPost, env.URL("/post"))
				req.SetFormBody(map[string]string{"field1": "value1", "field2": "value2"})
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requireJSONPath(resp, "form.field1", "value1"); err != nil {
					return err
				}
				return requireJSONPath(resp, "form.field2", "value2")
			},
		},
		{
			ID:    "body/raw-text",
			Group: "body",
			Name:  "Raw text body echoed as data",
			Run: func(ctx context.Context, env *Env) error {
				const text = "plain text payload for the echo service"
				req := httpx.NewRequest(http.MethodPost, env.URL("/post"))
				req.SetTextBody(text)
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONPath(resp, "data", text)
			},
		},
	}
}

func authScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "auth/basic",
			Group: "auth",
			Name:  "Basic auth accepted",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/basic-auth/user/pass"))
				req.SetBasicAuth("user", "pass")
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requireJSONBool(resp, "authenticated", true); err != nil {
					return err
				}
				return requireJSONPath(resp, "user", "user")
			},
		},
		{
			ID:    "auth/basic-rejected",
			Group: "auth",
			Name:  "Basic auth rejected without credentials",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL("/basic-auth/user/pass"), nil)
				if err != nil {
					return err
				}
				return requireStatus(resp, 401)
			},
		},
		{
			ID:    "auth/hidden-basic",
			Group: "auth",
			Name:  "Hidden basic auth hides the challenge",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL("/hidden-basic-auth/user/pass"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 404); err != nil {
					return err
				}
				if resp.Header("WWW-Authenticate") != "" {
					return checkFailf("hidden auth endpoint advertised a challenge")
				}

				req := httpx.NewRequest(http.MethodGet, env.URL("/hidden-basic-auth/user/pass"))
				req.SetBasicAuth("user", "pass")
				resp, err = env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONBool(resp, "authenticated", true)
			},
		},
		{
			ID:    "auth/bearer",
			Group: "auth",
			Name:  "Bearer token accepted",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/bearer"))
				req.SetBearerToken("token123")
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requireJSONBool(resp, "authenticated", true); err != nil {
					return err
				}
				return requireJSONPath(resp, "token", "token123")
			},
		},
		{
			ID:    "auth/digest",
			Group: "auth",
			Name:  "Digest auth challenge-response",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/digest-auth/auth/user/pass"))
				req.SetDigestAuth("user", "pass")
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONBool(resp, "authenticated", true)
			},
		},
	}
}

func cookieScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "cookies/set-and-read",
			Group: "cookies",
			Name:  "Cookie set via redirect then echoed",
			Run: func(ctx context.Context, env *Env) error {
				session := env.NewSession()
				resp, err := session.Get(ctx, env.URL("/cookies/set?session=abc123"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				resp, err = session.Get(ctx, env.URL("/cookies"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONPath(resp, "cookies.session", "abc123")
			},
		},
		{
			ID:    "cookies/no-jar",
			Group: "cookies",
			Name:  "Cookies not kept without a jar",
			Run: func(ctx context.Context, env *Env) error {
				if _, err := env.Client.Get(ctx, env.URL("/cookies/set?stray=1"), nil); err != nil {
					return err
				}
				resp, err := env.Client.Get(ctx, env.URL("/cookies"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if gjson.GetBytes(resp.Body, "cookies.stray").Exists() {
					return checkFailf("cookie leaked across requests without a jar")
				}
				return nil
			},
		},
	}
}

func errorScenarios() []*Scenario {
	statuses := []int{404, 500, 429}
	var out []*Scenario
	for _, code := range statuses {
		code := code
		out = append(out, &Scenario{
			ID:    statusScenarioID(code),
			Group: "errors",
			Name:  http.StatusText(code) + " surfaced as status, not error",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL(statusPath(code)), nil)
				if err != nil {
					return err
				}
				if err := requireStatusClass(resp, code); err != nil {
					return err
				}
				return requireStatus(resp, code)
			},
		})
	}
	return out
}

func redirectScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "redirects/follow-chain",
			Group: "redirects",
			Name:  "Redirect chain followed to the echo",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL("/redirect/3"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireGetEchoShape(resp)
			},
		},
		{
			ID:    "redirects/redirect-to",
			Group: "redirects",
			Name:  "Redirect to explicit URL",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/redirect-to"))
				req.SetQueryParam("url", env.URL("/get"))
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				return requireStatus(resp, 200)
			},
		},
		{
			ID:    "redirects/unfollowed",
			Group: "redirects",
			Name:  "Redirect observed when following is off",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.NoRedirect.Get(ctx, env.URL("/redirect/1"), nil)
				if err != nil {
					return err
				}
				if !resp.IsRedirect() {
					return checkFailf("expected a 3xx response, got %d", resp.StatusCode)
				}
				if resp.Header("Location") == "" {
					return checkFailf("redirect response has no Location header")
				}
				return nil
			},
		},
	}
}

func delayScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "delays/one-second",
			Group: "delays",
			Name:  "One second server delay",
			Slow:  true,
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL("/delay/1"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				// The point of the endpoint is the delay; a fast answer
				// means the server did not honor it.
				if resp.DurationMs() < 900 {
					return checkFailf("expected at least a one second delay, got %dms", resp.DurationMs())
				}
				return nil
			},
		},
		{
			ID:    "delays/timeout",
			Group: "delays",
			Name:  "Client timeout fires before a long delay",
			Slow:  true,
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/delay/5"))
				req.SetTimeout(timeoutBudget)
				_, err := env.Client.Do(ctx, req)
				if err == nil {
					return checkFailf("expected the request to time out, it succeeded")
				}
				if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
					return nil
				}
				return err
			},
		},
	}
}

func streamingScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "streaming/lines",
			Group: "streaming",
			Name:  "Stream of JSON lines read incrementally",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/stream/10"))
				resp, body, err := env.Client.Stream(ctx, req)
				if err != nil {
					return err
				}
				defer body.Close()
				if err := requireStatus(resp, 200); err != nil {
					return err
				}

				lines := 0
				scanner := bufio.NewScanner(body)
				for scanner.Scan() {
					if len(scanner.Bytes()) > 0 {
						lines++
					}
				}
				if err := scanner.Err(); err != nil {
					return err
				}
				if lines != 10 {
					return checkFailf("expected 10 streamed lines, got %d", lines)
				}
				return nil
			},
		},
		{
			ID:    "streaming/bytes",
			Group: "streaming",
			Name:  "Binary body read in chunks",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/bytes/1024"))
				resp, body, err := env.Client.Stream(ctx, req)
				if err != nil {
					return err
				}
				defer body.Close()
				if err := requireStatus(resp, 200); err != nil {
					return err
				}

				total := 0
				buf := make([]byte, 128)
				for {
					n, err := body.Read(buf)
					total += n
					if err == io.EOF {
						break
					}
					if err != nil {
						return err
					}
				}
				if total != 1024 {
					return checkFailf("expected 1024 bytes, got %d", total)
				}
				return nil
			},
		},
	}
}

func compressionScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "compression/gzip",
			Group: "compression",
			Name:  "Gzip body decoded",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/gzip"))
				req.AcceptEncoding = "gzip"
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONBool(resp, "gzipped", true)
			},
		},
		{
			ID:    "compression/brotli",
			Group: "compression",
			Name:  "Brotli body decoded",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodGet, env.URL("/brotli"))
				req.AcceptEncoding = "br"
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONBool(resp, "brotli", true)
			},
		},
	}
}

func parallelScenarios() []*Scenario {
	delayPaths := []string{"/delay/1", "/delay/2", "/delay/3"}

	return []*Scenario{
		{
			ID:    "parallel/sequential",
			Group: "parallel",
			Name:  "Three delayed calls back to back",
			Slow:  true,
			Run: func(ctx context.Context, env *Env) error {
				for _, path := range delayPaths {
					resp, err := env.Client.Get(ctx, env.URL(path), nil)
					if err != nil {
						return err
					}
					if err := requireStatus(resp, 200); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID:    "parallel/concurrent",
			Group: "parallel",
			Name:  "Three delayed calls in flight together",
			Slow:  true,
			Run: func(ctx context.Context, env *Env) error {
				g, gctx := errgroup.WithContext(ctx)
				for _, path := range delayPaths {
					path := path
					g.Go(func() error {
						resp, err := env.Client.Get(gctx, env.URL(path), nil)
						if err != nil {
							return err
						}
						return requireStatus(resp, 200)
					})
				}
				return g.Wait()
			},
		},
	}
}

func uploadScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "upload/multipart",
			Group: "upload",
			Name:  "Multipart file upload echoed",
			Run: func(ctx context.Context, env *Env) error {
				req := httpx.NewRequest(http.MethodPost, env.URL("/post"))
				req.AddFileField("file", "test.txt", "text/plain", "upload body line one\nline two")
				req.AddFormField("description", "test file")
				resp, err := env.Client.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requireJSONExists(resp, "files.file"); err != nil {
					return err
				}
				return requireJSONPath(resp, "form.description", "test file")
			},
		},
	}
}

func formatScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "formats/json",
			Group: "formats",
			Name:  "JSON document",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL("/json"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requireJSONBody(resp); err != nil {
					return err
				}
				return requireJSONExists(resp, "slideshow")
			},
		},
		{
			ID:    "formats/xml",
			Group: "formats",
			Name:  "XML document",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL("/xml"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireContentType(resp, "xml")
			},
		},
		{
			ID:    "formats/html",
			Group: "formats",
			Name:  "HTML document",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL("/html"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireContentType(resp, "text/html")
			},
		},
		{
			ID:    "formats/png",
			Group: "formats",
			Name:  "PNG image",
			Run: func(ctx context.Context, env *Env) error {
				resp, err := env.Client.Get(ctx, env.URL("/image/png"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				if err := requireContentType(resp, "image/png"); err != nil {
					return err
				}
				if len(resp.Body) < 8 || string(resp.Body[1:4]) != "PNG" {
					return checkFailf("body does not start with a PNG signature")
				}
				return nil
			},
		},
	}
}

func sessionScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:    "sessions/cookie-persistence",
			Group: "sessions",
			Name:  "Session keeps cookies across requests",
			Run: func(ctx context.Context, env *Env) error {
				session := env.NewSession()
				if _, err := session.Get(ctx, env.URL("/cookies/set?session=test"), nil); err != nil {
					return err
				}
				resp, err := session.Get(ctx, env.URL("/cookies"), nil)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONPath(resp, "cookies.session", "test")
			},
		},
		{
			ID:    "sessions/default-headers",
			Group: "sessions",
			Name:  "Session default headers sent on every request",
			Run: func(ctx context.Context, env *Env) error {
				session := env.NewSession()
				req := httpx.NewRequest(http.MethodGet, env.URL("/headers"))
				req.SetHeader("X-Session-Header", "persistent-value")
				resp, err := session.Do(ctx, req)
				if err != nil {
					return err
				}
				if err := requireStatus(resp, 200); err != nil {
					return err
				}
				return requireJSONPath(resp, "headers.X-Session-Header", "persistent-value")
			},
		},
	}
}

func statusScenarioID(code int) string {
	return "errors/status-" + strconv.Itoa(code)
}

func statusPath(code int) string {
	return "/status/" + strconv.Itoa(code)
}

// isTimeout reports whether err is a network-level timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
