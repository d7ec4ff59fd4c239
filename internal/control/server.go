package control

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gia/internal/core/scheduler"
	"gia/internal/logger"
)

// SecretHeader carries the per-run secret on every request.
const SecretHeader = "X-Gia-Secret"

// Controller is the command surface the API drives.
type Controller interface {
	Status() scheduler.Status
	Reschedule()
	Pause()
	Resume()
	Exit()
	Snooze(minutes int) bool
	ImmediateBreak()
	DisableTemporarily(hours int) error
	StartDemo() bool
}

type snoozeRequest struct {
	Minutes int `json:"minutes" binding:"min=0,max=1440"`
}

type disableRequest struct {
	Hours int `json:"hours" binding:"required,min=1,max=168"`
}

// Server exposes the Controller on the localhost control port.
type Server struct {
	controller Controller
	secret     string
	lockPath   string
	engine     *gin.Engine
	http       *http.Server
}

// NewServer builds the router. lockPath may be empty to skip the lockfile.
func NewServer(controller Controller, lockPath string) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		controller: controller,
		secret:     uuid.NewString(),
		lockPath:   lockPath,
	}
	server.engine = server.routes()
	server.http = &http.Server{
		Handler:           server.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server
}

// Secret returns the per-run secret clients must present.
func (server *Server) Secret() string {
	return server.secret
}

// Handler returns the router for in-process use.
func (server *Server) Handler() http.Handler {
	return server.engine
}

// Serve writes the lockfile and serves until Shutdown.
func (server *Server) Serve(listener net.Listener) error {
	if server.lockPath != "" {
		port := 0
		if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
			port = tcpAddr.Port
		}
		lock := Lock{Port: port, PID: os.Getpid(), Secret: server.secret}
		if err := WriteLock(server.lockPath, lock); err != nil {
			return err
		}
	}

	logger.Info("control api listening", "address", listener.Addr().String())
	if err := server.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve control api: %w", err)
	}
	return nil
}

// Shutdown stops the server and removes the lockfile.
func (server *Server) Shutdown(ctx context.Context) error {
	err := server.http.Shutdown(ctx)
	if server.lockPath != "" {
		if removeErr := RemoveLock(server.lockPath, os.Getpid()); removeErr != nil {
			logger.Warn("remove lockfile failed", "error", removeErr)
		}
	}
	if err != nil {
		return fmt.Errorf("shutdown control api: %w", err)
	}
	return nil
}

func (server *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), server.requireSecret())

	engine.GET("/status", server.handleStatus)
	engine.POST("/reschedule", server.command(func() { server.controller.Reschedule() }, "rescheduled"))
	engine.POST("/pause", server.command(func() { server.controller.Pause() }, "paused"))
	engine.POST("/resume", server.command(func() { server.controller.Resume() }, "resumed"))
	engine.POST("/exit", server.command(func() { server.controller.Exit() }, "exited"))
	engine.POST("/break", server.command(func() { server.controller.ImmediateBreak() }, "break started"))
	engine.POST("/snooze", server.handleSnooze)
	engine.POST("/disable", server.handleDisable)
	engine.POST("/demo", server.handleDemo)
	return engine
}

func (server *Server) requireSecret() gin.HandlerFunc {
	expected := []byte(server.secret)
	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(SecretHeader))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			respondError(c, http.StatusUnauthorized, ErrUnauthorized.Error())
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("control request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

func (server *Server) command(run func(), message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		run()
		respondOK(c, ResultView{OK: true, Message: message})
	}
}

func (server *Server) handleStatus(c *gin.Context) {
	respondOK(c, newStatusView(server.controller.Status()))
}

func (server *Server) handleSnooze(c *gin.Context) {
	var body snoozeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, http.StatusBadRequest, "invalid snooze request: "+err.Error())
			return
		}
	}
	if !server.controller.Snooze(body.Minutes) {
		respondOK(c, ResultView{OK: false, Message: "reminders are paused"})
		return
	}
	respondOK(c, ResultView{OK: true, Message: "snoozed"})
}

func (server *Server) handleDisable(c *gin.Context) {
	var body disableRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid disable request: "+err.Error())
		return
	}
	if err := server.controller.DisableTemporarily(body.Hours); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(c, ResultView{OK: true, Message: fmt.Sprintf("disabled for %d hour(s)", body.Hours)})
}

func (server *Server) handleDemo(c *gin.Context) {
	if !server.controller.StartDemo() {
		respondOK(c, ResultView{OK: false, Message: "demo already running"})
		return
	}
	respondOK(c, ResultView{OK: true, Message: "demo started"})
}
