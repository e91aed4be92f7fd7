// Package server exposes environments over HTTP so trainers written in other
// languages can drive them. Every session owns one environment.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zeu5/routing-rl/tsp"
	"go.uber.org/zap"
)

var ErrUnknownSession = errors.New("unknown session")

type session struct {
	mu  sync.Mutex
	env *tsp.Env
}

// DefaultMaxSize bounds the problems a client can create, the distance matrix grows with its square
const DefaultMaxSize = 1000

type Server struct {
	defaults tsp.Config
	maxSize  int
	logger   *zap.Logger

	lock     *sync.Mutex
	sessions map[string]*session

	router *gin.Engine
	server *http.Server
}

// NewServer creates the server, environments use defaults for the fields a create request leaves out.
// Sizes above maxSize are rejected, DefaultMaxSize applies when maxSize is not positive.
func NewServer(addr string, defaults tsp.Config, maxSize int, logger *zap.Logger) *Server {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	s := &Server{
		defaults: defaults,
		maxSize:  maxSize,
		logger:   logger,
		lock:     new(sync.Mutex),
		sessions: make(map[string]*session),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.POST("/envs", s.handleCreate)
	envs := r.Group("/envs/:id")
	envs.POST("/reset", s.handleReset)
	envs.POST("/step", s.handleStep)
	envs.GET("/mask", s.handleMask)
	envs.GET("/instance", s.handleInstance)
	envs.DELETE("", s.handleDelete)

	s.router = r
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving environments", zap.String("addr", s.server.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Sessions returns the number of open sessions
func (s *Server) Sessions() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.sessions)
}

func (s *Server) get(id string) (*session, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return sess, nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func newSessionID() string {
	return uuid.NewString()
}
