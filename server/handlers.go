package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeu5/routing-rl/tsp"
	"go.uber.org/zap"
)

type createRequest struct {
	Size              int `json:"size"`
	MaxDurationFactor int `json:"max_duration_factor"`
}

type createResponse struct {
	ID          string `json:"id"`
	Size        int    `json:"size"`
	MaxDuration int    `json:"max_duration"`
}

type resetRequest struct {
	Seed     int64         `json:"seed"`
	Instance *tsp.Instance `json:"instance"`
}

type resetResponse struct {
	Observation *tsp.Observation `json:"observation"`
	Info        *tsp.Info        `json:"info"`
}

type stepRequest struct {
	Action *int `json:"action" binding:"required"`
}

type stepResponse struct {
	Observation *tsp.Observation `json:"observation"`
	Reward      float64          `json:"reward"`
	Terminated  bool             `json:"terminated"`
	Truncated   bool             `json:"truncated"`
	Info        *tsp.Info        `json:"info"`
}

type maskResponse struct {
	Mask []bool `json:"mask"`
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, tsp.ErrUninitialized):
		return http.StatusConflict
	case errors.Is(err, tsp.ErrInvalidAction),
		errors.Is(err, tsp.ErrInvalidInstance),
		errors.Is(err, tsp.ErrInvalidSize):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

// bindOptional accepts an empty body
func bindOptional(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleCreate(c *gin.Context) {
	req := createRequest{}
	if err := bindOptional(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	config := s.defaults
	if req.Size != 0 {
		config.Size = req.Size
	}
	if req.MaxDurationFactor != 0 {
		config.MaxDurationFactor = req.MaxDurationFactor
	}
	if config.Size > s.maxSize {
		abort(c, fmt.Errorf("%w: %d is above the limit of %d nodes", tsp.ErrInvalidSize, config.Size, s.maxSize))
		return
	}
	env, err := tsp.NewEnv(config)
	if err != nil {
		abort(c, err)
		return
	}

	id := newSessionID()
	s.lock.Lock()
	s.sessions[id] = &session{env: env}
	s.lock.Unlock()
	s.logger.Info("created environment", zap.String("id", id), zap.Int("size", env.ActionSpace()))

	c.JSON(http.StatusCreated, createResponse{
		ID:          id,
		Size:        env.ActionSpace(),
		MaxDuration: env.MaxDuration(),
	})
}

func (s *Server) handleReset(c *gin.Context) {
	sess, err := s.get(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	req := resetRequest{}
	if err := bindOptional(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	var opts *tsp.ResetOptions
	if req.Instance != nil {
		opts = &tsp.ResetOptions{Instance: req.Instance}
	}

	sess.mu.Lock()
	obs, info, err := sess.env.Reset(req.Seed, opts)
	sess.mu.Unlock()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resetResponse{Observation: obs, Info: info})
}

func (s *Server) handleStep(c *gin.Context) {
	sess, err := s.get(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	req := stepRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}

	sess.mu.Lock()
	obs, reward, terminated, truncated, info, err := sess.env.Step(*req.Action)
	sess.mu.Unlock()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stepResponse{
		Observation: obs,
		Reward:      reward,
		Terminated:  terminated,
		Truncated:   truncated,
		Info:        info,
	})
}

func (s *Server) handleMask(c *gin.Context) {
	sess, err := s.get(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	sess.mu.Lock()
	mask, err := sess.env.ActionMasks()
	sess.mu.Unlock()
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, maskResponse{Mask: mask})
}

func (s *Server) handleInstance(c *gin.Context) {
	sess, err := s.get(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	sess.mu.Lock()
	instance := sess.env.Instance()
	sess.mu.Unlock()
	if instance == nil {
		abort(c, tsp.ErrUninitialized)
		return
	}
	c.JSON(http.StatusOK, instance)
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	s.lock.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.lock.Unlock()
	if !ok {
		abort(c, ErrUnknownSession)
		return
	}
	sess.mu.Lock()
	err := sess.env.Close()
	sess.mu.Unlock()
	if err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
