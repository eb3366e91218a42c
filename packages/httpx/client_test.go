package httpx

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Get(context.Background(), server.URL+"/test", nil)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header("Content-Type"))
	assert.Contains(t, resp.BodyString(), "hello")
}

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Post(context.Background(), server.URL, `{"name": "test"}`, map[string]string{
		"Content-Type": "application/json",
	})

	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Contains(t, resp.BodyString(), "123")
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.Get(context.Background(), server.URL, nil)

	require.Error(t, err)
}

func TestClient_PerRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	req := NewRequest("GET", server.URL).SetTimeout(50 * time.Millisecond)
	_, err := client.Do(context.Background(), req)

	require.Error(t, err)
}

func TestClient_FollowRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("arrived"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient()
	resp, err := client.Get(context.Background(), server.URL+"/start", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "arrived", resp.BodyString())

	noRedirect := NewClient(WithFollowRedirects(false))
	resp, err = noRedirect.Get(context.Background(), server.URL+"/start", nil)
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/end", resp.Header("Location"))
}

func TestClient_DefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "binprobe-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "value", r.Header.Get("X-Custom"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(
		WithDefaultHeader("User-Agent", "binprobe-test"),
		WithDefaultHeaders(map[string]string{"X-Custom": "value"}),
	)
	_, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
}

func TestClient_QueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "go", r.URL.Query().Get("lang"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	req := NewRequest("GET", server.URL).
		SetQueryParam("page", "1").
		SetQueryParam("lang", "go")
	_, err := client.Do(context.Background(), req)
	require.NoError(t, err)
}

func TestClient_BasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "secret", pass)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	req := NewRequest("GET", server.URL).SetBasicAuth("alice", "secret")
	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_BearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	req := NewRequest("GET", server.URL).SetBearerToken("tok-123")
	_, err := client.Do(context.Background(), req)
	require.NoError(t, err)
}

func TestClient_DigestAuth(t *testing.T) {
	const realm = "test@localhost"
	const nonce = "abc123"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.Header().Set("WWW-Authenticate",
				`Digest realm="`+realm+`", nonce="`+nonce+`", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Contains(t, auth, `username="bob"`)
		assert.Contains(t, auth, `realm="`+realm+`"`)
		assert.Contains(t, auth, "response=")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	req := NewRequest("GET", server.URL).SetDigestAuth("bob", "hunter2")
	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_GzipDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"gzipped": true}`))
		_ = gz.Close()
	}))
	defer server.Close()

	client := NewClient()
	req := NewRequest("GET", server.URL)
	req.AcceptEncoding = "gzip"
	resp, err := client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Contains(t, resp.BodyString(), `"gzipped": true`)
}

func TestClient_BrotliDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "br")
		br := brotli.NewWriter(w)
		_, _ = br.Write([]byte(`{"brotli": true}`))
		_ = br.Close()
	}))
	defer server.Close()

	client := NewClient()
	req := NewRequest("GET", server.URL)
	req.AcceptEncoding = "br"
	resp, err := client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Contains(t, resp.BodyString(), `"brotli": true`)
}

func TestClient_Stream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 3; i++ {
			_, _ = w.Write([]byte("line\n"))
		}
	}))
	defer server.Close()

	client := NewClient()
	resp, body, err := client.Stream(context.Background(), NewRequest("GET", server.URL))
	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	buf := make([]byte, 64)
	n, _ := body.Read(buf)
	assert.Contains(t, string(buf[:n]), "line")
}

func TestClient_CookieJar(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "xyz", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/read", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		require.NoError(t, err)
		assert.Equal(t, "xyz", c.Value)
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(WithCookieJar())
	_, err := client.Get(context.Background(), server.URL+"/set", nil)
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), server.URL+"/read", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	cookies := client.Cookies(server.URL)
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
}

func TestBuildMultipartBody_InlineContent(t *testing.T) {
	fields := []*MultipartField{
		{Type: MultipartFieldValue, Name: "description", Value: "test upload"},
		{Type: MultipartFieldFile, Name: "file", Filename: "hello.txt", ContentType: "text/plain", Value: "hello world"},
	}

	body, contentType, err := BuildMultipartBody(fields, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(contentType, "multipart/form-data"))

	s := body.String()
	assert.Contains(t, s, `name="description"`)
	assert.Contains(t, s, "test upload")
	assert.Contains(t, s, `filename="hello.txt"`)
	assert.Contains(t, s, "hello world")
}

func TestBuildMultipartBody_FromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("on disk"), 0o644))

	req := NewRequest("POST", "http://localhost/post").AddFilePath("file", "data.txt")
	req.BaseDir = dir

	body, contentType, err := BuildMultipartBody(req.Multipart, req.BaseDir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(contentType, "multipart/form-data"))

	s := body.String()
	assert.Contains(t, s, `filename="data.txt"`)
	assert.Contains(t, s, "on disk")
}

func TestBuildMultipartBody_PathTraversal(t *testing.T) {
	req := NewRequest("POST", "http://localhost/post").AddFilePath("file", "../secret.txt")
	req.BaseDir = t.TempDir()

	_, _, err := BuildMultipartBody(req.Multipart, req.BaseDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path traversal")
}

func TestParseFormBody(t *testing.T) {
	form := ParseFormBody("name=alice&greeting=hello+world&sym=%26")
	assert.Equal(t, map[string]string{
		"name":     "alice",
		"greeting": "hello world",
		"sym":      "&",
	}, form)

	assert.Empty(t, ParseFormBody(""))
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://httpbin.org"))
	assert.NoError(t, ValidateURL("http://localhost:8998"))
	assert.Error(t, ValidateURL("not a url"))
	assert.Error(t, ValidateURL("ftp://example.com"))
	assert.Error(t, ValidateURL(""))
}

func TestProfileByName(t *testing.T) {
	for _, name := range []string{"pooled", "fresh", "serial", "nocompress"} {
		p, err := ProfileByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name)
	}

	_, err := ProfileByName("bogus")
	assert.Error(t, err)
}

func TestResponse_Helpers(t *testing.T) {
	resp := &Response{
		StatusCode: 302,
		Headers:    map[string]string{"content-type": "text/html"},
		Body:       []byte("<html></html>"),
	}

	assert.True(t, resp.IsRedirect())
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "text/html", resp.ContentType())
	assert.Equal(t, "text/html", resp.Header("Content-Type"))

	notFound := &Response{
		StatusCode: 404,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(`{"error": "missing"}`),
		Duration:   1500 * time.Millisecond,
	}
	assert.True(t, notFound.IsClientError())
	assert.False(t, notFound.IsServerError())
	assert.True(t, notFound.IsJSON())
	assert.Equal(t, int64(1500), notFound.DurationMs())

	parsed, err := notFound.BodyJSON()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"error": "missing"}, parsed)

	crashed := &Response{StatusCode: 503}
	assert.True(t, crashed.IsServerError())
	assert.False(t, crashed.IsClientError())

	_, err = (&Response{Body: []byte("not json")}).BodyJSON()
	assert.Error(t, err)
}
