package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
)

var queueNames = []string{"default", "low"}

// Queue runs maintenance tasks through asynq on Redis.
type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
	log       *slog.Logger
}

func NewQueue(redisAddr string) *Queue {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
		},
	)
	return &Queue{
		client:    asynq.NewClient(redisOpt),
		server:    server,
		mux:       asynq.NewServeMux(),
		inspector: asynq.NewInspector(redisOpt),
		log:       logging.Component("jobs"),
	}
}

func isTaskConflict(err error) bool {
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "task ID conflicts") || strings.Contains(msg, "duplicate task")
}

// EnqueueUnique enqueues a task under a fixed id so a periodic task never piles up.
// A finished task still holding the id is deleted first; a pending or running
// one makes the call a no-op.
func (q *Queue) EnqueueUnique(ctx context.Context, taskType string, payload any, uniqueID string, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	opts = append(opts, asynq.TaskID(uniqueID))
	task := asynq.NewTask(taskType, data, opts...)
	info, err := q.client.EnqueueContext(ctx, task)
	if err == nil {
		return info.ID, nil
	}
	if !isTaskConflict(err) {
		return "", fmt.Errorf("enqueue: %w", err)
	}

	for _, name := range queueNames {
		if delErr := q.inspector.DeleteTask(name, uniqueID); delErr == nil {
			q.log.Debug("cleared finished task", "task", uniqueID, "queue", name)
			info, err = q.client.EnqueueContext(ctx, task)
			if err == nil {
				return info.ID, nil
			}
			break
		}
	}

	if isTaskConflict(err) {
		q.log.Debug("task already queued, skipping", "type", taskType, "task", uniqueID)
		return uniqueID, nil
	}
	return "", fmt.Errorf("enqueue: %w", err)
}

// Dispatch enqueues taskType once per id, so the scheduler can fire it blindly.
func (q *Queue) Dispatch(ctx context.Context, taskType string, payload any) error {
	_, err := q.EnqueueUnique(ctx, taskType, payload, taskType, asynq.Queue("low"))
	return err
}

func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

func (q *Queue) Start() error {
	q.log.Info("job worker starting")
	return q.server.Start(q.mux)
}

func (q *Queue) Stop() {
	q.server.Shutdown()
	_ = q.client.Close()
	_ = q.inspector.Close()
}
