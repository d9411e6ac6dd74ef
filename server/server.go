package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appconfig "oiflow/config"
	"oiflow/logger"
	"oiflow/pipeline"
)

// Runner executes one cross-sectional pass over a symbol universe. The HTTP
// layer depends on this interface so handlers can be tested without touching
// the network.
type Runner interface {
	Run(ctx context.Context, symbols []string) (*pipeline.CrossSectionRun, error)
}

// Server exposes the cross-sectional pipeline over HTTP. Each request to the
// skew endpoint triggers a fresh run against the live option chain.
type Server struct {
	config  *appconfig.Config
	runner  Runner
	symbols []string
	log     *logger.Log
	http    *http.Server
}

func New(cfg *appconfig.Config, runner Runner, symbols []string) *Server {
	s := &Server{
		config:  cfg,
		runner:  runner,
		symbols: symbols,
		log:     logger.GetLogger(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/api/oi-skew", s.handleSkew)
	router.GET("/healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}
	return s
}

type runSummary struct {
	Total         int      `json:"total"`
	Successful    int      `json:"successful"`
	Failed        int      `json:"failed"`
	FailedSymbols []string `json:"failed_symbols"`
}

type skewResponse struct {
	Success   bool        `json:"success"`
	Date      string      `json:"date"`
	Summary   runSummary  `json:"summary"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	Error     string      `json:"error,omitempty"`
}

func (s *Server) handleSkew(c *gin.Context) {
	run, err := s.runner.Run(c.Request.Context(), s.symbols)
	if err != nil {
		s.log.WithComponent("server").WithError(err).Error("cross-sectional run failed")
		c.JSON(http.StatusInternalServerError, skewResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	failedSymbols := make([]string, 0, len(run.Failures))
	for _, f := range run.Failures {
		failedSymbols = append(failedSymbols, f.Symbol)
	}

	c.JSON(http.StatusOK, skewResponse{
		Success: true,
		Date:    run.Date.Format("2006-01-02"),
		Summary: runSummary{
			Total:         len(run.Results) + len(run.Failures),
			Successful:    len(run.Results),
			Failed:        len(run.Failures),
			FailedSymbols: failedSymbols,
		},
		Data:      run.Results,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    s.config.Oiflow.Name,
		"version": s.config.Oiflow.Version,
	})
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithComponent("server").WithFields(logger.Fields{
			"address": s.http.Addr,
		}).Info("http server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.WithComponent("server").Info("shutting down http server")
		return s.http.Shutdown(shutdownCtx)
	}
}
