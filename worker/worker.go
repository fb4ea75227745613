package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/alan-mat/scholar/internal/config"
	"github.com/alan-mat/scholar/internal/tasks"
	"github.com/alan-mat/scholar/internal/transport"
)

type Worker struct {
	config config.Config

	rdb         *redis.Client
	asynqServer *asynq.Server

	transport transport.Transport
	stack     *Stack
}

func New(conf config.Config) *Worker {
	return &Worker{
		config: conf,
	}
}

func NewRedisClient(conf config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Username: conf.Username,
		Password: conf.Password,
		DB:       conf.DB,
	})
}

// Start processes generate tasks until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	w.rdb = NewRedisClient(w.config.Transport)
	defer w.rdb.Close()

	if err := w.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis at '%s': %w", w.config.Transport.Addr, err)
	}

	stack, err := Build(ctx, w.config, w.rdb)
	if err != nil {
		return fmt.Errorf("failed to build generation service: %w", err)
	}
	w.stack = stack
	defer w.stack.Close()

	w.transport = transport.NewRedisTransport(w.rdb).WithBlock(w.config.Transport.Block)

	queue := w.config.Worker.Queue
	if queue == "" {
		queue = tasks.DefaultQueue
	}
	w.asynqServer = asynq.NewServerFromRedisClient(
		w.rdb,
		asynq.Config{
			Concurrency: w.config.Worker.Concurrency,
			Queues:      map[string]int{queue: 1},
			Logger:      asynqLogger{},
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeGenerate, tasks.NewGenerateTaskHandler(w.transport, w.stack.Service))

	if err := w.asynqServer.Start(mux); err != nil {
		return err
	}
	slog.Info("worker started", "queue", queue, "concurrency", w.config.Worker.Concurrency)

	<-ctx.Done()
	slog.Info("worker shutting down")
	w.asynqServer.Shutdown()
	return nil
}

// asynqLogger routes asynq's logs to the default slog logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { slog.Debug(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Info(args ...any)  { slog.Info(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Error(args ...any) { slog.Error(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Fatal(args ...any) { slog.Error(fmt.Sprint(args...), "component", "asynq", "fatal", true) }
