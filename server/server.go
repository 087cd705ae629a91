package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/provenid/go-token-server/auth"
	"github.com/provenid/go-token-server/internal/config"
	"github.com/provenid/go-token-server/internal/metrics"
	"github.com/provenid/go-token-server/token"
)

type Server struct {
	env      string // Environment as returned by GetEnv ("DEV" when ENV is unset)
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	endpoint *auth.TokenEndpoint
	signer   *token.KeyPairSigner
	metrics  *metrics.Metrics
}

// New wires the token endpoint driver behind the HTTP surface. The signer is
// optional; without it the JWKS route serves an empty key set.
func New(cfg config.Config, endpoint *auth.TokenEndpoint, signer *token.KeyPairSigner, m *metrics.Metrics) (*Server, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("[Server New] token endpoint is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		endpoint: endpoint,
		signer:   signer,
		metrics:  m,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = paddedMethod
	}
	fmt.Printf("[%s] %s\n", displayMethod, path)
}
