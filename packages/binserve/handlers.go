package binserve

import (
	"compress/gzip"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
)

// echoPayload mirrors httpbin's /get echo shape.
type echoPayload struct {
	Args    map[string]string `json:"args"`
	Headers map[string]string `json:"headers"`
	Origin  string            `json:"origin"`
	URL     string            `json:"url"`
}

// bodyEchoPayload extends the echo with body material for the verbs that
// carry one. The json field stays `any` so a missing JSON body serializes
// as null, matching httpbin.
type bodyEchoPayload struct {
	echoPayload
	Data  string            `json:"data"`
	Files map[string]string `json:"files"`
	Form  map[string]string `json:"form"`
	JSON  any               `json:"json"`
}

func (s *Server) echoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, s.buildEcho(r))
		return
	}

	payload := &bodyEchoPayload{
		echoPayload: *s.buildEcho(r),
		Files:       map[string]string{},
		Form:        map[string]string{},
	}
	s.readBodyInto(r, payload)
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) buildEcho(r *http.Request) *echoPayload {
	args := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			args[k] = vs[0]
		}
	}

	return &echoPayload{
		Args:    args,
		Headers: flattenHeaders(r.Header),
		Origin:  clientOrigin(r),
		URL:     requestURL(r),
	}
}

func (s *Server) readBodyInto(r *http.Request, payload *bodyEchoPayload) {
	contentType := r.Header.Get("Content-Type")

	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(MaxBytes); err != nil {
			return
		}
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				payload.Form[k] = vs[0]
			}
		}
		for name, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			file, err := headers[0].Open()
			if err != nil {
				continue
			}
			content, err := io.ReadAll(io.LimitReader(file, MaxBytes))
			file.Close()
			if err != nil {
				continue
			}
			payload.Files[name] = string(content)
		}

	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBytes))
		if err != nil {
			return
		}
		for k, v := range httpx.ParseFormBody(string(body)) {
			payload.Form[k] = v
		}

	default:
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBytes))
		if err != nil {
			return
		}
		payload.Data = string(body)
		if strings.HasPrefix(contentType, "application/json") {
			var parsed any
			if json.Unmarshal(body, &parsed) == nil {
				payload.JSON = parsed
			}
		}
	}
}

func (s *Server) headersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"headers": flattenHeaders(r.Header),
	})
}

func (s *Server) userAgentHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"user-agent": r.Header.Get("User-Agent"),
	})
}

func (s *Server) uuidHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"uuid": uuid.NewString(),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "invalid status code", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
}

func (s *Server) delayHandler(w http.ResponseWriter, r *http.Request) {
	seconds, err := strconv.ParseFloat(r.PathValue("seconds"), 64)
	if err != nil || seconds < 0 || math.IsNaN(seconds) {
		http.Error(w, "invalid delay", http.StatusBadRequest)
		return
	}

	delay := time.Duration(seconds * float64(time.Second))
	if delay > MaxDelay {
		delay = MaxDelay
	}

	select {
	case <-time.After(delay):
	case <-r.Context().Done():
		return
	}

	writeJSON(w, http.StatusOK, s.buildEcho(r))
}

func (s *Server) redirectHandler(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		http.Error(w, "invalid redirect count", http.StatusBadRequest)
		return
	}

	target := "/get"
	if n > 1 {
		target = fmt.Sprintf("/redirect/%d", n-1)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) redirectToHandler(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}

	code := http.StatusFound
	if raw := r.URL.Query().Get("status_code"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed >= 300 && parsed < 400 {
			code = parsed
		}
	}

	http.Redirect(w, r, target, code)
}

func (s *Server) cookiesHandler(w http.ResponseWriter, r *http.Request) {
	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}
	writeJSON(w, http.StatusOK, map[string]any{"cookies": cookies})
}

func (s *Server) cookiesSetHandler(w http.ResponseWriter, r *http.Request) {
	for name, vs := range r.URL.Query() {
		if len(vs) == 0 {
			continue
		}
		http.SetCookie(w, &http.Cookie{
			Name:  name,
			Value: vs[0],
			Path:  "/",
		})
	}
	http.Redirect(w, r, "/cookies", http.StatusFound)
}

func (s *Server) basicAuthHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	passwd := r.PathValue("passwd")

	gotUser, gotPass, ok := r.BasicAuth()
	if !ok || gotUser != user || gotPass != passwd {
		w.Header().Set("WWW-Authenticate", `Basic realm="Fake Realm"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

// hiddenBasicAuthHandler rejects with 404 and no challenge, like httpbin.
func (s *Server) hiddenBasicAuthHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	passwd := r.PathValue("passwd")

	gotUser, gotPass, ok := r.BasicAuth()
	if !ok || gotUser != user || gotPass != passwd {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

func (s *Server) bearerHandler(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		w.Header().Set("WWW-Authenticate", "Bearer")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"token":         strings.TrimPrefix(auth, "Bearer "),
	})
}

const digestRealm = "binserve@localhost"

func (s *Server) digestAuthHandler(w http.ResponseWriter, r *http.Request) {
	qop := r.PathValue("qop")
	user := r.PathValue("user")
	passwd := r.PathValue("passwd")

	if qop != "auth" && qop != "auth-int" {
		qop = "auth"
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Digest ") {
		s.digestChallenge(w, qop)
		return
	}

	params := httpx.ParseWWWAuthenticate(auth)
	expected := &httpx.DigestAuth{
		Username: user,
		Password: passwd,
		Realm:    params["realm"],
		Nonce:    params["nonce"],
		URI:      params["uri"],
		Qop:      params["qop"],
		Nc:       params["nc"],
		Cnonce:   params["cnonce"],
		Method:   r.Method,
	}

	if params["username"] != user || params["response"] != expected.ComputeDigestResponse() {
		s.digestChallenge(w, qop)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

func (s *Server) digestChallenge(w http.ResponseWriter, qop string) {
	nonce := randomHex(16)
	opaque := randomHex(16)
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(
		`Digest realm="%s", qop="%s", nonce="%s", opaque="%s"`,
		digestRealm, qop, nonce, opaque))
	w.WriteHeader(http.StatusUnauthorized)
}

func (s *Server) gzipHandler(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"gzipped": true,
		"headers": flattenHeaders(r.Header),
		"method":  r.Method,
		"origin":  clientOrigin(r),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(http.StatusOK)

	gz := gzip.NewWriter(w)
	defer gz.Close()
	_, _ = gz.Write(data)
}

func (s *Server) brotliHandler(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"brotli":  true,
		"headers": flattenHeaders(r.Header),
		"method":  r.Method,
		"origin":  clientOrigin(r),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Encoding", "br")
	w.WriteHeader(http.StatusOK)

	br := brotli.NewWriter(w)
	defer br.Close()
	_, _ = br.Write(data)
}

func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 {
		http.Error(w, "invalid line count", http.StatusBadRequest)
		return
	}
	if n > MaxStreamLines {
		n = MaxStreamLines
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		line := map[string]any{
			"id":  i,
			"url": requestURL(r),
		}
		if err := encoder.Encode(line); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) bytesHandler(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 {
		http.Error(w, "invalid byte count", http.StatusBadRequest)
		return
	}
	if n > MaxBytes {
		n = MaxBytes
	}

	data := make([]byte, n)
	_, _ = rand.Read(data)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

const sampleJSON = `{
  "slideshow": {
    "author": "Yours Truly",
    "date": "date of publication",
    "slides": [
      {"title": "Wake up to WonderWidgets!", "type": "all"},
      {"items": ["Why WonderWidgets are great", "Who buys WonderWidgets"], "title": "Overview", "type": "all"}
    ],
    "title": "Sample Slide Show"
  }
}`

const sampleXML = `<?xml version='1.0' encoding='us-ascii'?>
<slideshow title="Sample Slide Show" date="Date of publication" author="Yours Truly">
  <slide type="all"><title>Wake up to WonderWidgets!</title></slide>
  <slide type="all">
    <title>Overview</title>
    <item>Why <em>WonderWidgets</em> are great</item>
    <item>Who <em>buys</em> WonderWidgets</item>
  </slide>
</slideshow>`

const sampleHTML = `<!DOCTYPE html>
<html>
  <head><title>Herman Melville - Moby-Dick</title></head>
  <body>
    <h1>Herman Melville - Moby-Dick</h1>
    <p>Availing himself of the mild, summer-cool weather that now reigned
    in these latitudes, and in preparation for the peculiarly active
    pursuits shortly to be anticipated, Perth, the begrimed, blistered
    old blacksmith, had not removed his portable forge to the hold
    again.</p>
  </body>
</html>`

// onePixelPNG is a 1x1 transparent PNG.
var onePixelPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func (s *Server) jsonHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sampleJSON)
}

func (s *Server) xmlHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sampleXML)
}

func (s *Server) htmlHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sampleHTML)
}

func (s *Server) pngHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(onePixelPNG)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

func clientOrigin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.RequestURI
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		return strings.Repeat("0", n*2)
	}
	return hex.EncodeToString(b)
}
