package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/uranetworks7-commits/Chat-pro/internal/moderation"
	"github.com/uranetworks7-commits/Chat-pro/internal/presence"
	"github.com/uranetworks7-commits/Chat-pro/internal/storage"
)

// Server defines fields used in HTTP processing
type Server struct {
	logger     *zap.SugaredLogger
	httpServer *http.Server
	h          *handler
	cfg        config
}

// NewServer wires the handler, the realtime hub and the moderation workflow
// and returns a Server ready to Start.
func NewServer(logger *zap.SugaredLogger, envCfg EnvConfig, store *storage.Store, opts ...Option) (*Server, error) {
	hub := NewHub(logger, store)

	registry := presence.NewRegistry(presence.DefaultTTL, hub.InvalidateTyping)
	hub.registry = registry

	scanner := moderation.NewScanner(envCfg.BlockedWords)
	scheduler := moderation.NewScheduler(logger, moderation.RealClock(), envCfg.BlockDuration, hub.ApplyBlock)

	h := &handler{
		logger:    logger,
		store:     store,
		hub:       hub,
		registry:  registry,
		scanner:   scanner,
		scheduler: scheduler,
		limiters:  newLimiterPool(envCfg.SendRate, envCfg.SendBurst),
		cfg:       envCfg,
	}

	srv := &Server{
		logger: logger,
		h:      h,
	}

	r := mux.NewRouter()

	// Open surface: account bootstrap and scrape endpoint.
	r.Handle("/login", enforceJSON(http.HandlerFunc(h.login))).Methods("POST")
	r.Handle("/users", enforceJSON(http.HandlerFunc(h.createUser))).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Everything below acts as a resolved session.
	authed := r.NewRoute().Subrouter()
	authed.Use(func(next http.Handler) http.Handler { return withSession(next, store) })

	authed.HandleFunc("/users", h.searchUsers).Methods("GET")
	authed.HandleFunc("/users/{username}", h.getUser).Methods("GET")
	authed.Handle("/users/{username}", enforceJSON(http.HandlerFunc(h.updateProfile))).Methods("PATCH")

	authed.Handle("/messages", enforceJSON(http.HandlerFunc(h.sendMessage))).Methods("POST")
	authed.HandleFunc("/messages/{channel}", h.listMessages).Methods("GET")
	authed.HandleFunc("/chats/{username}", h.getChatMetadata).Methods("GET")
	authed.HandleFunc("/messages/{channel}/{id}", h.deleteMessage).Methods("DELETE")

	authed.Handle("/reports", enforceJSON(http.HandlerFunc(h.report))).Methods("POST")
	authed.HandleFunc("/blocks/{username}", h.block).Methods("POST")
	authed.HandleFunc("/blocks/{username}", h.unblock).Methods("DELETE")
	authed.HandleFunc("/moderation/clear", h.clearPending).Methods("POST")

	authed.Handle("/friends/requests", enforceJSON(http.HandlerFunc(h.sendFriendRequest))).Methods("POST")
	authed.HandleFunc("/friends/requests/{username}/accept", h.acceptFriendRequest).Methods("POST")
	authed.HandleFunc("/friends/requests/{username}/reject", h.rejectFriendRequest).Methods("POST")
	authed.HandleFunc("/friends/{username}", h.removeFriend).Methods("DELETE")
	authed.HandleFunc("/friends", h.friendsOverview).Methods("GET")

	authed.HandleFunc("/typing/{room}", h.touchTyping).Methods("PUT")
	authed.HandleFunc("/typing/{room}", h.clearTyping).Methods("DELETE")
	authed.HandleFunc("/typing/{room}", h.listTyping).Methods("GET")

	authed.HandleFunc("/ws/{channel}", h.subscribe).Methods("GET")

	srv.httpServer = &http.Server{
		Handler: logRequests(r, logger.Desugar()),
	}

	srv.cfg = config{httpServer: srv.httpServer}
	for _, opt := range opts {
		opt.apply(&srv.cfg)
	}

	return srv, nil
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	for _, f := range s.cfg.afterShutdown {
		f()
	}

	s.logger.Info("Closing store")
	s.h.store.Close()
	s.logger.Info("Store is closed")

	return nil
}
