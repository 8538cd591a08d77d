// Package httpapi serves the tools over HTTP with JSON bodies.
//
//	GET  /tools                                 tool descriptors and server instructions
//	GET  /tools/{name}                          one tool descriptor
//	POST /tools/{name}                          invoke a tool, body is the JSON arguments
//	GET  /.well-known/oauth-protected-resource  protected resource metadata
package httpapi

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"

	"github.com/hugr-lab/nest/auth"
	"github.com/hugr-lab/nest/internal/recovery"
	"github.com/hugr-lab/nest/tools"
)

// DefaultMaxBodyBytes bounds tool argument bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Config configures the HTTP surface.
type Config struct {
	Tools *tools.Service
	// Gate filters clients by request headers. Nil admits everyone.
	Gate *auth.Gate
	// Auth enables bearer authentication when not nil.
	Auth         auth.Authenticator
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// Server routes HTTP requests to the tool service.
type Server struct {
	tools        *tools.Service
	gate         *auth.Gate
	auth         auth.Authenticator
	logger       *slog.Logger
	maxBodyBytes int64
}

// New returns a Server for cfg.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Server{
		tools:        cfg.Tools,
		gate:         cfg.Gate,
		auth:         cfg.Auth,
		logger:       logger,
		maxBodyBytes: maxBody,
	}
}

// Handler returns the full middleware chain: panic recovery, gzip, client
// gate, bearer authentication and the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/tools", s.listTools).Methods(http.MethodGet)
	r.HandleFunc("/tools/{name}", s.getTool).Methods(http.MethodGet)
	r.HandleFunc("/tools/{name}", s.invokeTool).Methods(http.MethodPost)
	r.HandleFunc("/tools/{name}", s.preflight).Methods(http.MethodOptions)
	r.HandleFunc(auth.WellKnownPrefix+"/oauth-protected-resource", s.protectedResource).Methods(http.MethodGet)

	var h http.Handler = r
	h = auth.HTTPMiddleware(s.auth)(h)
	if s.gate.Enabled() {
		h = s.gate.Middleware(h)
	}
	h = gzhttp.GzipHandler(h)
	return s.recoverer(h)
}

type toolList struct {
	Instructions string             `json:"instructions"`
	Tools        []tools.Descriptor `json:"tools"`
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toolList{
		Instructions: tools.Instructions,
		Tools:        s.tools.Descriptors(),
	})
}

func (s *Server) getTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	d, ok := s.tools.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, tools.ErrorPayload{
			Error:   tools.KindUnknownTool,
			Message: fmt.Sprintf("unknown tool %q", name),
		})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) invokeTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, tools.ErrorPayload{
			Error:   tools.KindInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	out, err := s.tools.Invoke(r.Context(), name, body)
	if err != nil {
		p := tools.NewErrorPayload(err)
		writeJSON(w, statusFor(p.Error), p)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

func (s *Server) preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if origin := r.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	w.WriteHeader(http.StatusNoContent)
}

type resourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
}

func (s *Server) protectedResource(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, resourceMetadata{
		Resource:               "mcp",
		AuthorizationServers:   []string{},
		BearerMethodsSupported: []string{"header"},
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := recovery.RecoverToError(s.logger, r.Method+" "+r.URL.Path, func() error {
			next.ServeHTTP(w, r)
			return nil
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, tools.ErrorPayload{
				Error:   tools.KindInternal,
				Message: "internal server error",
			})
		}
	})
}

// statusFor maps an error payload kind to an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case tools.KindInvalidRequest:
		return http.StatusBadRequest
	case tools.KindUnknownTool:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
