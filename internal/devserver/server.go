// Package devserver is the HTTP server used while developing the editor.
//
// Requests pass through the same chain the editor site expects:
//
//	rewrite ─▶ static file ─▶ *.dev storage proxy ─▶ proxy.pac ─▶ not found
//
// plus the debug websocket at /debug/ws and Prometheus metrics at /metrics.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/http/httputil"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dshills/turtletrace/internal/logging"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address, e.g. ":8088".
	Addr string

	// Site holds the static files.
	Site fs.FS

	// ProxyPort is the port *.dev storage requests are forwarded to.
	ProxyPort int

	// DevSuffix marks proxied hosts. Defaults to ".dev".
	DevSuffix string

	// Debug serves /debug/ws when set.
	Debug http.Handler

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// Logger receives request logs.
	Logger *logging.Logger
}

var (
	editPath    = regexp.MustCompile(`^/edit/`)
	dirPath     = regexp.MustCompile(`^/home/(?:.*/)?$`)
	storagePath = regexp.MustCompile(`^/(?:home|load|save)/`)
	hostHeader  = regexp.MustCompile(`^([^:]+)(?::(\d*))?$`)
)

// Server is the dev HTTP server.
type Server struct {
	cfg    Config
	logger *logging.Logger
	router chi.Router
	files  http.Handler
	proxy  *httputil.ReverseProxy
	srv    *http.Server
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.DevSuffix == "" {
		cfg.DevSuffix = ".dev"
	}
	if cfg.ProxyPort == 0 {
		cfg.ProxyPort = 80
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Null()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.WithComponent("devserver"),
	}
	if cfg.Site != nil {
		s.files = http.FileServer(http.FS(cfg.Site))
	}
	s.proxy = &httputil.ReverseProxy{
		Rewrite: s.rewriteProxy,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Warn("proxy %s%s: %v", r.Host, r.URL.Path, err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	if cfg.Debug != nil {
		r.Handle("/debug/ws", cfg.Debug)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	r.Handle("/*", http.HandlerFunc(s.serveSite))
	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.logger.Info("listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	return nil
}

// serveSite runs the rewrite, static, proxy, PAC and not-found chain.
func (s *Server) serveSite(w http.ResponseWriter, r *http.Request) {
	rewrite(r)

	if s.serveStatic(w, r) {
		return
	}
	if host, ok := s.devHost(r); ok && storagePath.MatchString(r.URL.Path) {
		r.Host = host
		s.proxy.ServeHTTP(w, r)
		return
	}
	if r.URL.Path == "/proxy.pac" {
		s.servePAC(w, r)
		return
	}

	// The page fallback only answers reads.
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "404 - %s", r.URL.RequestURI())
}

// rewrite maps editor routes onto their pages.
func rewrite(r *http.Request) {
	p := r.URL.Path
	switch {
	case p == "/":
		p = "/welcome.html"
	case editPath.MatchString(p):
		p = "/editor.html"
	case dirPath.MatchString(p):
		p = "/dir.html"
	default:
		return
	}
	r.URL.Path = p
	r.URL.RawPath = ""
}

// serveStatic serves r from the site when a matching file exists.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) bool {
	if s.files == nil || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		return false
	}
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "."
	}
	info, err := fs.Stat(s.cfg.Site, name)
	if err != nil {
		return false
	}
	if info.IsDir() {
		if _, err := fs.Stat(s.cfg.Site, path.Join(name, "index.html")); err != nil {
			return false
		}
	}
	s.files.ServeHTTP(w, r)
	return true
}

// devHost returns the proxy target host when r is addressed to a *.dev
// host, either in absolute form (as sent through proxy.pac) or by Host.
func (s *Server) devHost(r *http.Request) (string, bool) {
	host := r.URL.Host
	if host == "" {
		host = r.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if !strings.HasSuffix(host, s.cfg.DevSuffix) || host == s.cfg.DevSuffix {
		return "", false
	}
	return strings.TrimSuffix(host, s.cfg.DevSuffix), true
}

func (s *Server) rewriteProxy(pr *httputil.ProxyRequest) {
	pr.SetXForwarded()
	host := pr.In.Host
	pr.Out.URL.Scheme = "http"
	pr.Out.URL.Host = net.JoinHostPort(host, fmt.Sprint(s.cfg.ProxyPort))
	pr.Out.Host = host
	pr.Out.Header.Set("url", pr.In.URL.RequestURI())
}

// servePAC writes a proxy auto-config file sending *.dev hosts through
// this server.
func (s *Server) servePAC(w http.ResponseWriter, r *http.Request) {
	domain, port := "localhost", s.listenPort()
	if m := hostHeader.FindStringSubmatch(r.Host); m != nil {
		if m[1] != "" {
			domain = m[1]
		}
		if m[2] != "" {
			port = m[2]
		}
	}

	w.Header().Set("Content-Type", "application/x-javascript-config")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "function FindProxyForURL(url, host) {\n"+
		" if (shExpMatch(host, \"*%s\")) {\n"+
		"  return \"PROXY %s:%s\";\n"+
		" }\n"+
		" return \"DIRECT\";\n"+
		"}\n", s.cfg.DevSuffix, domain, port)
}

func (s *Server) listenPort() string {
	if _, port, err := net.SplitHostPort(s.cfg.Addr); err == nil && port != "" {
		return port
	}
	return "8088"
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Microsecond))
	})
}
