package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"go.uber.org/zap"
)

// NewTask builds a queued operation. The task type is the operation name.
func NewTask(op string, payload any, queue string) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dispatch: encode %s payload: %w", op, err)
	}
	if queue == "" {
		queue = constants.DefaultWorkerQueue
	}
	return asynq.NewTask(op, data, asynq.Queue(queue)), nil
}

// TaskHandler adapts a table handler to asynq. Malformed payloads and other
// client errors are not retried. The success envelope is written as the task
// result when the server retains results.
func (s *Service) TaskHandler(op string, handler Handler) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if len(t.Payload()) > 0 && !json.Valid(t.Payload()) {
			s.logger.Warn("discarding task with invalid payload", zap.String("op", "dispatch.TaskHandler"), zap.String("operation", op))
			return asynq.SkipRetry
		}

		result, err := handler(ctx, t.Payload())
		if err != nil {
			s.logger.Error("task failed",
				zap.String("op", "dispatch.TaskHandler"),
				zap.String("operation", op),
				zap.String("kind", errorKind(err)),
				zap.Error(err),
			)
			if IsClientError(err) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}

		if w := t.ResultWriter(); w != nil {
			encoded, err := json.Marshal(result)
			if err == nil {
				encoded, err = json.Marshal(Response{Status: StatusSuccess, Payload: encoded})
			}
			if err == nil {
				_, err = w.Write(encoded)
			}
			if err != nil {
				s.logger.Warn("writing task result failed", zap.String("op", "dispatch.TaskHandler"), zap.String("operation", op), zap.Error(err))
			}
		}
		return nil
	}
}

// ServeMux registers every operation in the table as a task type.
func (s *Service) ServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	table := s.Table()
	for _, op := range table.Operations() {
		mux.HandleFunc(op, s.TaskHandler(op, table[op]))
	}
	return mux
}

// WorkerConfig collects what the queue worker needs.
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
	Queue       string
}

// Worker processes queued operations until its context ends.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewWorker constructs a Worker bound to service.
func NewWorker(service *Service, cfg WorkerConfig) (*Worker, error) {
	if service == nil {
		return nil, errors.New("dispatch: worker requires a service")
	}
	if cfg.RedisAddr == "" {
		return nil, errors.New("dispatch: worker requires a redis address")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = constants.DefaultWorkerConcurrency
	}
	if cfg.Queue == "" {
		cfg.Queue = constants.DefaultWorkerQueue
	}
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{cfg.Queue: 1},
		Logger:      service.logger.Sugar(),
	})
	return &Worker{server: srv, mux: service.ServeMux(), logger: service.logger}, nil
}

// Run starts processing tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	w.logger.Info("worker started", zap.String("op", "dispatch.Worker.Run"))

	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client enqueues operations for a worker.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient constructs an enqueueing client.
func NewClient(redisAddr, queue string) *Client {
	return &Client{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}), queue: queue}
}

// Enqueue submits op with payload and returns the task id.
func (c *Client) Enqueue(ctx context.Context, op string, payload any) (string, error) {
	task, err := NewTask(op, payload, c.queue)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("dispatch: enqueue %s: %w", op, err)
	}
	return info.ID, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
