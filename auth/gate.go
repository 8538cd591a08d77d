package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// WellKnownPrefix is the path prefix of discovery documents, which are
// always served.
const WellKnownPrefix = "/.well-known"

// ForbiddenBody is the response body sent to rejected clients.
const ForbiddenBody = `{"error":"forbidden","message":"Only requests from claude.ai are allowed"}`

// GateConfig lists the client signals the gate accepts.
type GateConfig struct {
	// Disabled admits every request.
	Disabled bool `yaml:"disabled"`
	// UserAgents are substrings accepted in the User-Agent header.
	UserAgents []string `yaml:"user_agents"`
	// Origins are substrings accepted in the Origin or Referer header.
	Origins []string `yaml:"origins"`
}

// DefaultGateConfig admits Claude clients.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		UserAgents: []string{"Claude", "claude.ai"},
		Origins:    []string{"claude.ai"},
	}
}

// Headers is the read side of a header set. http.Header satisfies it.
type Headers interface {
	Get(key string) string
}

// Gate is a header-sniffing allow filter for tool clients.
// It never looks at request bodies.
type Gate struct {
	cfg    GateConfig
	logger *slog.Logger
}

// NewGate returns a Gate for cfg.
func NewGate(cfg GateConfig, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{cfg: cfg, logger: logger}
}

// Enabled reports whether the gate filters requests.
func (g *Gate) Enabled() bool {
	return g != nil && !g.cfg.Disabled
}

// Exempt reports whether a request bypasses the gate: CORS preflights and
// discovery documents.
func Exempt(method, path string) bool {
	return method == http.MethodOptions || strings.HasPrefix(path, WellKnownPrefix)
}

// Allow reports whether the headers identify an accepted client.
func (g *Gate) Allow(h Headers) bool {
	if !g.Enabled() {
		return true
	}
	if containsAny(h.Get("User-Agent"), g.cfg.UserAgents) {
		return true
	}
	return containsAny(h.Get("Origin"), g.cfg.Origins) || containsAny(h.Get("Referer"), g.cfg.Origins)
}

// Middleware rejects HTTP requests from unrecognized clients with 403.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Exempt(r.Method, r.URL.Path) || g.Allow(r.Header) {
			next.ServeHTTP(w, r)
			return
		}
		g.logger.Info("Request rejected by client gate",
			"path", r.URL.Path,
			"user_agent", r.UserAgent(),
			"remote", r.RemoteAddr,
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(ForbiddenBody))
	})
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
