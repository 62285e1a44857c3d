package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/portfolio-auth/internal/config"
	"github.com/jrsteele09/portfolio-auth/token/jwt"
	"github.com/jrsteele09/portfolio-auth/token/keys"
	"github.com/jrsteele09/portfolio-auth/token/refresh"
	"github.com/jrsteele09/portfolio-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server is the development API server. It speaks the same wire contract as
// the production token API so the client stack can run against it locally.
type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	users     users.Repo
	refresh   *refresh.Manager
	signer    keys.Signer
	creator   *jwt.Creator
	inspector *jwt.Inspector
	log       zerolog.Logger
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func New(cfg config.Config, userRepo users.Repo, refreshRepo refresh.Repo, opts ...Option) (*Server, error) {
	signer, err := keys.NewSigner(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] failed to create token signer")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		users:     userRepo,
		refresh:   refresh.NewManager(refreshRepo, cfg.GetRotateRefreshTokens()),
		signer:    signer,
		creator:   jwt.NewCreator(cfg, signer),
		inspector: jwt.NewInspector(cfg, signer),
		log:       log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, errors.Wrap(err, "[server.New] failed to initialise the system")
	}

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
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
