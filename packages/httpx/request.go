package httpx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// MultipartFieldFile marks a multipart field whose content is a file.
const (
	MultipartFieldValue = "value"
	MultipartFieldFile  = "file"
)

// MultipartField is a single part of a multipart/form-data body. Value holds
// inline content; Path reads the content from disk instead.
type MultipartField struct {
	Type        string
	Name        string
	Filename    string
	ContentType string
	Value       string
	Path        string
}

// BasicCredentials holds credentials for HTTP basic auth.
type BasicCredentials struct {
	Username string
	Password string
}

type Request struct {
	Method         string
	URL            string
	Headers        map[string]string
	QueryParams    map[string]string
	Body           string
	Timeout        time.Duration
	BasicAuth      *BasicCredentials
	BearerToken    string
	DigestAuth     *DigestCredentials
	AcceptEncoding string
	Multipart      []*MultipartField
	BaseDir        string // base directory for resolving relative file paths
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      method,
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// SetJSONBody marshals v and sets it as the request body with the JSON
// content type, unless one was set explicitly.
func (r *Request) SetJSONBody(v any) *Request {
	data, err := json.Marshal(v)
	if err != nil {
		// Marshal only fails on unsupported types; surface it in the body
		// so the request fails loudly server-side rather than silently.
		r.Body = fmt.Sprintf("json marshal error: %v", err)
		return r
	}
	r.Body = string(data)
	if r.Headers["Content-Type"] == "" {
		r.SetHeader("Content-Type", "application/json")
	}
	return r
}

// SetFormBody url-encodes fields and sets the form content type.
func (r *Request) SetFormBody(fields map[string]string) *Request {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	r.Body = values.Encode()
	if r.Headers["Content-Type"] == "" {
		r.SetHeader("Content-Type", "application/x-www-form-urlencoded")
	}
	return r
}

// SetTextBody sets a raw text body.
func (r *Request) SetTextBody(body string) *Request {
	r.Body = body
	if r.Headers["Content-Type"] == "" {
		r.SetHeader("Content-Type", "text/plain")
	}
	return r
}

func (r *Request) SetBasicAuth(username, password string) *Request {
	r.BasicAuth = &BasicCredentials{Username: username, Password: password}
	return r
}

func (r *Request) SetBearerToken(token string) *Request {
	r.BearerToken = token
	return r
}

// SetDigestAuth enables challenge-response digest auth; the client performs
// the extra round trip.
func (r *Request) SetDigestAuth(username, password string) *Request {
	r.DigestAuth = &DigestCredentials{Username: username, Password: password}
	return r
}

// AddFormField appends a plain multipart form field.
func (r *Request) AddFormField(name, value string) *Request {
	r.Multipart = append(r.Multipart, &MultipartField{
		Type:  MultipartFieldValue,
		Name:  name,
		Value: value,
	})
	return r
}

// AddFileField appends a multipart file part with inline content.
func (r *Request) AddFileField(name, filename, contentType, content string) *Request {
	r.Multipart = append(r.Multipart, &MultipartField{
		Type:        MultipartFieldFile,
		Name:        name,
		Filename:    filename,
		ContentType: contentType,
		Value:       content,
	})
	return r
}

// AddFilePath appends a multipart file part read from disk.
func (r *Request) AddFilePath(name, path string) *Request {
	r.Multipart = append(r.Multipart, &MultipartField{
		Type: MultipartFieldFile,
		Name: name,
		Path: path,
	})
	return r
}

// BuildURL returns the request URL with query parameters applied.
func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// applyAuth materializes auth settings into headers.
func (r *Request) applyAuth() {
	if r.BasicAuth != nil {
		creds := r.BasicAuth.Username + ":" + r.BasicAuth.Password
		encoded := base64.StdEncoding.EncodeToString([]byte(creds))
		r.Headers["Authorization"] = "Basic " + encoded
	}
	if r.BearerToken != "" {
		r.Headers["Authorization"] = "Bearer " + r.BearerToken
	}
}

// ParseFormBody decodes an application/x-www-form-urlencoded body.
func ParseFormBody(body string) map[string]string {
	result := make(map[string]string)
	pairs := strings.Split(body, "&")
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			key, _ := url.QueryUnescape(kv[0])
			value, _ := url.QueryUnescape(kv[1])
			result[key] = value
		}
	}
	return result
}
