package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"
)

var ErrUnknownTask = errors.New("no pending or running task with given ID")

// Dispatcher hands a generation to whatever runs it.
type Dispatcher interface {
	Dispatch(ctx context.Context, p GeneratePayload) error

	// Cancel stops the task of traceID, whether it waits or runs.
	Cancel(traceID string) error

	Close() error
}

// QueueDispatcher enqueues generations for a worker process.
type QueueDispatcher struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

func NewQueueDispatcher(opt asynq.RedisConnOpt, queue string) *QueueDispatcher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &QueueDispatcher{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     queue,
	}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, p GeneratePayload) error {
	task, err := NewGenerateTask(p, asynq.Queue(d.queue))
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	slog.Info("enqueued task", "trace", info.ID, "queue", info.Queue)
	return nil
}

// Cancel deletes the task while it waits in the queue and asks the
// worker to stop it once it is being processed.
func (d *QueueDispatcher) Cancel(traceID string) error {
	err := d.inspector.DeleteTask(d.queue, traceID)
	switch {
	case err == nil:
		slog.Debug("deleted queued task", "trace", traceID)
		return nil
	case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
		return fmt.Errorf("%w: '%s'", ErrUnknownTask, traceID)
	}

	// active tasks cannot be deleted
	if err := d.inspector.CancelProcessing(traceID); err != nil {
		return fmt.Errorf("failed to cancel task '%s': %w", traceID, err)
	}
	return nil
}

func (d *QueueDispatcher) Close() error {
	return errors.Join(d.client.Close(), d.inspector.Close())
}

// LocalDispatcher runs generations in process.
type LocalDispatcher struct {
	handler *GenerateTaskHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewLocalDispatcher(handler *GenerateTaskHandler) *LocalDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalDispatcher{
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		running: make(map[string]context.CancelFunc),
	}
}

// Dispatch starts the generation and returns immediately. The generation
// outlives ctx, like a queued task does.
func (d *LocalDispatcher) Dispatch(ctx context.Context, p GeneratePayload) error {
	if p.TraceID == "" {
		return fmt.Errorf("generate task requires a trace ID")
	}
	if err := d.ctx.Err(); err != nil {
		return fmt.Errorf("dispatcher closed: %w", err)
	}

	taskCtx, cancel := context.WithCancel(d.ctx)

	d.mu.Lock()
	if _, ok := d.running[p.TraceID]; ok {
		d.mu.Unlock()
		cancel()
		return fmt.Errorf("task '%s' already running", p.TraceID)
	}
	d.running[p.TraceID] = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.running, p.TraceID)
			d.mu.Unlock()
			cancel()
		}()

		if err := d.handler.Handle(taskCtx, p); err != nil {
			slog.Debug("local task finished with error", "trace", p.TraceID, "err", err)
		}
	}()
	return nil
}

func (d *LocalDispatcher) Cancel(traceID string) error {
	d.mu.Lock()
	cancel, ok := d.running[traceID]
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownTask, traceID)
	}
	cancel()
	return nil
}

// Close cancels running generations and waits for them to finish.
func (d *LocalDispatcher) Close() error {
	d.cancel()
	d.wg.Wait()
	return nil
}
