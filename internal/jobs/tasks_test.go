package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWarmer struct{ mock.Mock }

func (m *mockWarmer) WarmGenres(ctx context.Context) (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

type mockSweeper struct{ mock.Mock }

func (m *mockSweeper) Sweep(ctx context.Context, idle time.Duration) int {
	return m.Called(idle).Int(0)
}

type mockPurger struct{ mock.Mock }

func (m *mockPurger) PurgeRevocations(ctx context.Context) (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func TestRunner_WarmGenres(t *testing.T) {
	w := new(mockWarmer)
	w.On("WarmGenres").Return(19, nil).Once()
	w.On("WarmGenres").Return(0, errors.New("rate limited")).Once()
	r := NewRunner(w, new(mockSweeper), nil, time.Hour)

	require.NoError(t, r.Dispatch(context.Background(), TaskWarmGenres, WarmGenresPayload{}))
	err := r.Dispatch(context.Background(), TaskWarmGenres, WarmGenresPayload{})
	assert.ErrorContains(t, err, "rate limited")
	w.AssertExpectations(t)
}

func TestRunner_WarmGenresWithoutCache(t *testing.T) {
	r := NewRunner(nil, new(mockSweeper), nil, time.Hour)
	assert.NoError(t, r.WarmGenres(context.Background()))
}

func TestRunner_SweepUsesConfiguredOrPayloadIdle(t *testing.T) {
	s := new(mockSweeper)
	s.On("Sweep", 2*time.Hour).Return(3).Once()
	s.On("Sweep", 30*time.Second).Return(0).Once()
	p := new(mockPurger)
	p.On("PurgeRevocations").Return(1, nil).Twice()
	r := NewRunner(nil, s, p, 2*time.Hour)

	require.NoError(t, r.Dispatch(context.Background(), TaskSweepSessions, SweepSessionsPayload{}))
	require.NoError(t, r.Dispatch(context.Background(), TaskSweepSessions, SweepSessionsPayload{IdleSeconds: 30}))
	s.AssertExpectations(t)
	p.AssertExpectations(t)
}

func TestRunner_UnknownTask(t *testing.T) {
	r := NewRunner(nil, new(mockSweeper), nil, time.Hour)
	assert.Error(t, r.Dispatch(context.Background(), "nope", nil))
}

func TestHandlers_ProcessTask(t *testing.T) {
	s := new(mockSweeper)
	s.On("Sweep", 45*time.Second).Return(1).Once()
	s.On("Sweep", time.Minute).Return(0).Once()
	r := NewRunner(nil, s, nil, time.Minute)
	h := &SweepSessionsHandler{runner: r}

	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(TaskSweepSessions, []byte(`{"idle_seconds":45}`))))
	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(TaskSweepSessions, nil)))

	err := h.ProcessTask(context.Background(), asynq.NewTask(TaskSweepSessions, []byte(`{`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	s.AssertExpectations(t)

	w := new(mockWarmer)
	w.On("WarmGenres").Return(2, nil).Once()
	wh := &WarmGenresHandler{runner: NewRunner(w, s, nil, time.Minute)}
	require.NoError(t, wh.ProcessTask(context.Background(), asynq.NewTask(TaskWarmGenres, nil)))
	w.AssertExpectations(t)
}

func TestIsTaskConflict(t *testing.T) {
	assert.True(t, isTaskConflict(asynq.ErrTaskIDConflict))
	assert.True(t, isTaskConflict(fmt.Errorf("enqueue: %w", asynq.ErrDuplicateTask)))
	assert.True(t, isTaskConflict(errors.New("task ID conflicts with another task")))
	assert.False(t, isTaskConflict(errors.New("connection refused")))
}
