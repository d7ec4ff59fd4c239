package control

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gia/internal/core/scheduler"
)

type fakeController struct {
	mu          sync.Mutex
	calls       []string
	snoozed     []int
	disabled    []int
	demoRunning bool
	paused      bool
	status      scheduler.Status
}

func (fake *fakeController) record(call string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.calls = append(fake.calls, call)
}

func (fake *fakeController) Status() scheduler.Status { return fake.status }
func (fake *fakeController) Reschedule()              { fake.record("reschedule") }
func (fake *fakeController) Pause()                   { fake.record("pause") }
func (fake *fakeController) Resume()                  { fake.record("resume") }
func (fake *fakeController) Exit()                    { fake.record("exit") }
func (fake *fakeController) ImmediateBreak()          { fake.record("break") }

func (fake *fakeController) Snooze(minutes int) bool {
	if fake.paused {
		return false
	}
	fake.record("snooze")
	fake.snoozed = append(fake.snoozed, minutes)
	return true
}

func (fake *fakeController) DisableTemporarily(hours int) error {
	if hours < 1 {
		return errors.New("hours must be positive")
	}
	fake.record("disable")
	fake.disabled = append(fake.disabled, hours)
	return nil
}

func (fake *fakeController) StartDemo() bool {
	if fake.demoRunning {
		return false
	}
	fake.demoRunning = true
	fake.record("demo")
	return true
}

func newTestClient(t *testing.T, controller Controller) (*Client, *Server) {
	t.Helper()
	server := NewServer(controller, "")
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)
	return NewClient(httpServer.URL, server.Secret()), server
}

func TestStatusRoute(t *testing.T) {
	next := time.Date(2026, 3, 2, 9, 20, 0, 0, time.UTC)
	controller := &fakeController{status: scheduler.Status{
		State:          scheduler.StateCountingDown,
		Stage:          2,
		ElapsedMinutes: 40,
		NextBreak:      next,
	}}
	client, _ := newTestClient(t, controller)

	status, err := client.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "counting_down", status.State)
	assert.Equal(t, 2, status.Stage)
	assert.Equal(t, 40, status.ElapsedMinutes)
	require.NotNil(t, status.NextBreak)
	assert.True(t, status.NextBreak.Equal(next))
	assert.Nil(t, status.NextLongBreak)
}

func TestCommandRoutes(t *testing.T) {
	controller := &fakeController{}
	client, _ := newTestClient(t, controller)
	ctx := context.Background()

	for _, run := range []func() (ResultView, error){
		func() (ResultView, error) { return client.Reschedule(ctx) },
		func() (ResultView, error) { return client.Pause(ctx) },
		func() (ResultView, error) { return client.Resume(ctx) },
		func() (ResultView, error) { return client.Exit(ctx) },
		func() (ResultView, error) { return client.Break(ctx) },
		func() (ResultView, error) { return client.Snooze(ctx, 10) },
		func() (ResultView, error) { return client.Disable(ctx, 2) },
		func() (ResultView, error) { return client.Demo(ctx) },
	} {
		result, err := run()
		require.NoError(t, err)
		assert.True(t, result.OK)
	}

	assert.Equal(t, []string{"reschedule", "pause", "resume", "exit", "break", "snooze", "disable", "demo"}, controller.calls)
	assert.Equal(t, []int{10}, controller.snoozed)
	assert.Equal(t, []int{2}, controller.disabled)

	again, err := client.Demo(ctx)
	require.NoError(t, err)
	assert.False(t, again.OK)
}

func TestDisableRejectsInvalidHours(t *testing.T) {
	controller := &fakeController{}
	client, _ := newTestClient(t, controller)

	_, err := client.Disable(context.Background(), 0)

	assert.Error(t, err)
	assert.Empty(t, controller.calls)
}

func TestSnoozeWithoutBodyUsesDefault(t *testing.T) {
	controller := &fakeController{}
	server := NewServer(controller, "")

	req := httptest.NewRequest(http.MethodPost, "/snooze", nil)
	req.Header.Set(SecretHeader, server.Secret())
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []int{0}, controller.snoozed)
}

func TestSnoozeWhilePausedReportsNotOK(t *testing.T) {
	controller := &fakeController{paused: true}
	client, _ := newTestClient(t, controller)

	result, err := client.Snooze(context.Background(), 5)

	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "reminders are paused", result.Message)
	assert.Empty(t, controller.snoozed)
}

func TestRequestsWithoutSecretAreRejected(t *testing.T) {
	controller := &fakeController{}
	server := NewServer(controller, "")

	for _, secret := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodPost, "/pause", strings.NewReader(""))
		if secret != "" {
			req.Header.Set(SecretHeader, secret)
		}
		recorder := httptest.NewRecorder()
		server.Handler().ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"error"`)
	}
	assert.Empty(t, controller.calls)

	client := NewClient("http://unused", "wrong")
	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()
	client.baseURL = httpServer.URL
	_, err := client.Pause(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListenRejectsSecondInstance(t *testing.T) {
	name := "gia-test-" + time.Now().Format("150405.000000000")
	first, err := Listen(name)
	require.NoError(t, err)
	defer first.Close()

	_, err = Listen(name)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestPortFromNameIsStable(t *testing.T) {
	port := PortFromName("Gia")
	assert.Equal(t, port, PortFromName("Gia"))
	assert.GreaterOrEqual(t, port, 20000)
	assert.LessOrEqual(t, port, 39999)
}
