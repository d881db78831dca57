package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/GuessTheMovie/internal/jobs"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []string
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, taskType string, _ any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, taskType)
	return d.err
}

func TestNew_RegistersDefaultJobs(t *testing.T) {
	d := &recordingDispatcher{}
	s, err := New(d, DefaultJobs())
	require.NoError(t, err)

	entries := s.cron.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		e.Job.Run()
	}
	assert.ElementsMatch(t, []string{jobs.TaskWarmGenres, jobs.TaskSweepSessions}, d.tasks)
}

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New(&recordingDispatcher{}, []Job{{Spec: "every tuesday", TaskType: "x"}})
	assert.Error(t, err)
}

func TestFire_LogsDispatchErrors(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("redis down")}
	s, err := New(d, nil)
	require.NoError(t, err)

	s.fire(Job{TaskType: jobs.TaskSweepSessions})
	assert.Equal(t, []string{jobs.TaskSweepSessions}, d.tasks)
}

func TestStartStop(t *testing.T) {
	s, err := New(&recordingDispatcher{}, DefaultJobs())
	require.NoError(t, err)
	s.Start()
	s.Stop(context.Background())
}
