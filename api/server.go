// Package api exposes the pricing engine over HTTP. Amounts cross the wire
// as wad decimal strings so no precision is lost to JSON numbers.
package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/credencemarkets/credence/logging"
	"github.com/credencemarkets/credence/market"
	"github.com/credencemarkets/credence/metrics"
)

// Server serves the engine's call surface as JSON over HTTP.
type Server struct {
	log *logging.Logger
	cfg Config

	engine *market.Engine
	srv    *http.Server
}

// NewServer wires the HTTP surface to the given market engine.
func NewServer(log *logging.Logger, cfg Config, engine *market.Engine) *Server {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	return &Server{
		log:    log,
		cfg:    cfg,
		engine: engine,
	}
}

// Handler builds the full route table, wrapped with CORS when enabled.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	router.POST("/api/v1/markets", s.createMarket)
	router.GET("/api/v1/markets/:subject", s.getMarket)
	router.GET("/api/v1/markets/:subject/price/:side", s.getVotePrice)
	router.GET("/api/v1/markets/:subject/quote", s.getQuote)
	router.POST("/api/v1/markets/:subject/buy", s.buyVotes)
	router.POST("/api/v1/markets/:subject/sell", s.sellVotes)
	router.POST("/api/v1/markets/:subject/simulate/buy", s.simulateBuy)
	router.POST("/api/v1/markets/:subject/simulate/sell", s.simulateSell)
	router.GET("/api/v1/configs", s.listConfigs)
	router.POST("/api/v1/configs", s.addConfig)
	router.DELETE("/api/v1/configs/:index", s.removeConfig)
	router.PUT("/api/v1/profiles/:subject/allowed", s.setAllowed)
	router.GET("/api/v1/profiles/:subject/allowed", s.getAllowed)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())

	if s.cfg.CORSEnabled {
		return cors.Default().Handler(router)
	}
	return router
}

// Start listens and serves until Stop is called. It blocks.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Timeout.Get(),
		WriteTimeout: s.cfg.Timeout.Get(),
	}

	s.log.Info("api server starting", logging.String("address", s.cfg.ListenAddress))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.log.Info("api server stopping")
	return s.srv.Shutdown(ctx)
}
