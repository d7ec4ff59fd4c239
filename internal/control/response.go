package control

import (
	"time"

	"github.com/gin-gonic/gin"

	"gia/internal/core/scheduler"
)

// APIError is the error body of a failed request.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// StatusView is the wire form of scheduler.Status.
type StatusView struct {
	Paused         bool       `json:"paused"`
	Exited         bool       `json:"exited"`
	State          string     `json:"state"`
	Stage          int        `json:"stage"`
	ElapsedMinutes int        `json:"elapsed_minutes"`
	DemoRunning    bool       `json:"demo_running"`
	NextBreak      *time.Time `json:"next_break,omitempty"`
	NextLongBreak  *time.Time `json:"next_long_break,omitempty"`
	ResumeAt       *time.Time `json:"resume_at,omitempty"`
}

// ResultView acknowledges a command.
type ResultView struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func newStatusView(status scheduler.Status) StatusView {
	return StatusView{
		Paused:         status.Paused,
		Exited:         status.Exited,
		State:          string(status.State),
		Stage:          status.Stage,
		ElapsedMinutes: status.ElapsedMinutes,
		DemoRunning:    status.DemoRunning,
		NextBreak:      optionalTime(status.NextBreak),
		NextLongBreak:  optionalTime(status.NextLongBreak),
		ResumeAt:       optionalTime(status.ResumeAt),
	}
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}

func respondOK(c *gin.Context, data any) {
	c.JSON(200, apiResponse{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, apiResponse{Error: &APIError{Code: status, Message: message}})
}
