// Package binserve implements an httpbin-compatible HTTP service.
//
// It covers every endpoint the built-in probe catalog exercises, with echo
// payloads matching httpbin's JSON shape, so binprobe can run hermetically
// against a local target and the test suite never touches the network.
package binserve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/apex/log"
)

const (
	// DefaultPort is used when no port is configured.
	DefaultPort = 8998
	// MaxDelay caps /delay/{n} the same way httpbin does.
	MaxDelay = 10 * time.Second
	// MaxBytes caps /bytes/{n} and /stream/{n} payload sizes.
	MaxBytes = 100 * 1024
	// MaxStreamLines caps the /stream/{n} line count.
	MaxStreamLines = 100
)

// Server is an httpbin-compatible server.
type Server struct {
	port    int
	verbose bool
	httpSrv *http.Server
}

// Option is a functional option for Server.
type Option func(*Server)

// WithPort sets the listen port.
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithVerbose enables per-request logging.
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// NewServer creates a server with the given options.
func NewServer(opts ...Option) *Server {
	s := &Server{port: DefaultPort}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler. Exposed so tests can mount it on an
// httptest.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /get", s.echoHandler)
	mux.HandleFunc("POST /post", s.echoHandler)
	mux.HandleFunc("PUT /put", s.echoHandler)
	mux.HandleFunc("PATCH /patch", s.echoHandler)
	mux.HandleFunc("DELETE /delete", s.echoHandler)

	mux.HandleFunc("GET /headers", s.headersHandler)
	mux.HandleFunc("GET /user-agent", s.userAgentHandler)
	mux.HandleFunc("GET /uuid", s.uuidHandler)

	mux.HandleFunc("/status/{code}", s.statusHandler)
	mux.HandleFunc("GET /delay/{seconds}", s.delayHandler)

	mux.HandleFunc("GET /redirect/{n}", s.redirectHandler)
	mux.HandleFunc("GET /redirect-to", s.redirectToHandler)

	mux.HandleFunc("GET /cookies", s.cookiesHandler)
	mux.HandleFunc("GET /cookies/set", s.cookiesSetHandler)

	mux.HandleFunc("GET /basic-auth/{user}/{passwd}", s.basicAuthHandler)
	mux.HandleFunc("GET /hidden-basic-auth/{user}/{passwd}", s.hiddenBasicAuthHandler)
	mux.HandleFunc("GET /bearer", s.bearerHandler)
	mux.HandleFunc("GET /digest-auth/{qop}/{user}/{passwd}", s.digestAuthHandler)

	mux.HandleFunc("GET /gzip", s.gzipHandler)
	mux.HandleFunc("GET /brotli", s.brotliHandler)

	mux.HandleFunc("GET /stream/{n}", s.streamHandler)
	mux.HandleFunc("GET /bytes/{n}", s.bytesHandler)

	mux.HandleFunc("GET /json", s.jsonHandler)
	mux.HandleFunc("GET /xml", s.xmlHandler)
	mux.HandleFunc("GET /html", s.htmlHandler)
	mux.HandleFunc("GET /image/png", s.pngHandler)

	if s.verbose {
		return s.logRequests(mux)
	}
	return mux
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request served")
	})
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithField("addr", listener.Addr().String()).Info("binserve listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
