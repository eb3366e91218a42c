package httpx

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders map[string]string
	profile        *Profile
	useJar         bool
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
		profile:        DefaultProfile(),
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	c.profile.Apply(transport)

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}

	if c.useJar {
		jar, err := cookiejar.New(nil)
		if err == nil {
			c.httpClient.Jar = jar
		}
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithProfile selects the transport profile for this client.
func WithProfile(p *Profile) ClientOption {
	return func(c *Client) {
		if p != nil {
			c.profile = p
		}
	}
}

// WithCookieJar enables an in-memory cookie jar, turning the client into a
// session that carries cookies across requests.
func WithCookieJar() ClientOption {
	return func(c *Client) {
		c.useJar = true
	}
}

// Profile returns the transport profile this client was built with.
func (c *Client) Profile() *Profile {
	return c.profile
}

// Cookies returns the jar cookies for a URL, or nil when no jar is set.
func (c *Client) Cookies(rawURL string) []*http.Cookie {
	if c.httpClient.Jar == nil {
		return nil
	}
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(u)
}

// Do executes a request and returns the fully-read response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// Digest auth requires a challenge-response round trip.
	if req.DigestAuth != nil {
		return c.doWithDigestAuth(ctx, req)
	}

	return c.doRequest(ctx, req, "")
}

func (c *Client) doRequest(ctx context.Context, req *Request, authHeader string) (*Response, error) {
	httpResp, start, err := c.send(ctx, req, authHeader)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := decodeBody(httpResp)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}

	return buildResponse(httpResp, body, duration), nil
}

func (c *Client) doWithDigestAuth(ctx context.Context, req *Request) (*Response, error) {
	// First request without auth to get the challenge.
	resp, err := c.doRequest(ctx, req, "")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 401 {
		return resp, nil
	}

	wwwAuth := resp.Header("WWW-Authenticate")
	if wwwAuth == "" {
		return resp, nil
	}

	params := ParseWWWAuthenticate(wwwAuth)

	auth := &DigestAuth{
		Username: req.DigestAuth.Username,
		Password: req.DigestAuth.Password,
		Realm:    params["realm"],
		Nonce:    params["nonce"],
		URI:      req.BuildURL(),
		Qop:      params["qop"],
		Opaque:   params["opaque"],
		Method:   req.Method,
	}

	if u, err := neturl.Parse(req.BuildURL()); err == nil {
		auth.URI = u.RequestURI()
	}

	if auth.Qop != "" {
		auth.Nc = "00000001"
		cnonce, err := GenerateCnonce()
		if err != nil {
			return nil, err
		}
		auth.Cnonce = cnonce
		if strings.Contains(auth.Qop, "auth") {
			auth.Qop = "auth"
		}
	}

	return c.doRequest(ctx, req, auth.BuildAuthorizationHeader())
}

// Stream executes a request and hands the undecoded body to the caller.
// The caller owns the returned ReadCloser and must close it. Per-request
// timeouts do not apply here; the client-level timeout still does.
func (c *Client) Stream(ctx context.Context, req *Request) (*Response, io.ReadCloser, error) {
	httpResp, start, err := c.send(ctx, req, "")
	if err != nil {
		return nil, nil, err
	}

	resp := buildResponse(httpResp, nil, time.Since(start))
	return resp, httpResp.Body, nil
}

func (c *Client) send(ctx context.Context, req *Request, authHeader string) (*http.Response, time.Time, error) {
	if err := ValidateURL(req.URL); err != nil {
		return nil, time.Time{}, err
	}

	req.applyAuth()

	var body io.Reader
	var contentType string

	if len(req.Multipart) > 0 {
		multipartBody, ct, err := BuildMultipartBody(req.Multipart, req.BaseDir)
		if err != nil {
			return nil, time.Time{}, err
		}
		body = multipartBody
		contentType = ct
	} else if req.Body != "" {
		body = bytes.NewBufferString(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.BuildURL(), body)
	if err != nil {
		return nil, time.Time{}, err
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	// Multipart content type carries the boundary and must win.
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if req.AcceptEncoding != "" {
		httpReq.Header.Set("Accept-Encoding", req.AcceptEncoding)
	}

	// Digest auth retry carries a precomputed Authorization header.
	if authHeader != "" {
		httpReq.Header.Set("Authorization", authHeader)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, start, err
	}

	return httpResp, start, nil
}

// decodeBody reads the body, decompressing it when the transport did not
// already do so. The transport only auto-decodes gzip it negotiated itself;
// an explicit Accept-Encoding header leaves decoding to us.
func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	return io.ReadAll(reader)
}

func buildResponse(httpResp *http.Response, body []byte, duration time.Duration) *Response {
	headers := make(map[string]string)
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Body:       body,
		Duration:   duration,
	}
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	req := NewRequest(http.MethodGet, url)
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	return c.Do(ctx, req)
}

func (c *Client) Post(ctx context.Context, url, body string, headers map[string]string) (*Response, error) {
	req := NewRequest(http.MethodPost, url)
	req.Body = body
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	return c.Do(ctx, req)
}

func (c *Client) Put(ctx context.Context, url, body string, headers map[string]string) (*Response, error) {
	req := NewRequest(http.MethodPut, url)
	req.Body = body
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	return c.Do(ctx, req)
}

func (c *Client) Delete(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	req := NewRequest(http.MethodDelete, url)
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	return c.Do(ctx, req)
}

// validatePathWithinBase checks that the resolved path stays within the base
// directory to prevent path traversal.
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}

// BuildMultipartBody creates a multipart form data body from multipart fields
func BuildMultipartBody(fields []*MultipartField, baseDir string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, field := range fields {
		switch {
		case field.Type == MultipartFieldFile && field.Path != "":
			filePath := field.Path
			if !filepath.IsAbs(filePath) && baseDir != "" {
				filePath = filepath.Join(baseDir, filePath)
			}

			if err := validatePathWithinBase(filePath, baseDir); err != nil {
				return nil, "", err
			}

			file, err := os.Open(filePath)
			if err != nil {
				return nil, "", err
			}

			part, err := writer.CreateFormFile(field.Name, filepath.Base(filePath))
			if err != nil {
				file.Close()
				return nil, "", err
			}

			_, err = io.Copy(part, file)
			file.Close()
			if err != nil {
				return nil, "", err
			}

		case field.Type == MultipartFieldFile:
			filename := field.Filename
			if filename == "" {
				filename = field.Name
			}
			part, err := writer.CreateFormFile(field.Name, filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write([]byte(field.Value)); err != nil {
				return nil, "", err
			}

		default:
			if err := writer.WriteField(field.Name, field.Value); err != nil {
				return nil, "", err
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
