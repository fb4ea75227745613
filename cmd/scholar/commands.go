package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/client"
	"github.com/alan-mat/scholar/internal/config"
	"github.com/alan-mat/scholar/internal/session"
	"github.com/alan-mat/scholar/internal/tasks"
	"github.com/alan-mat/scholar/internal/transport"
	"github.com/alan-mat/scholar/server"
	"github.com/alan-mat/scholar/worker"
)

func serverConfig(conf config.Config) server.ServerConfig {
	return server.ServerConfig{
		ListenHost:   conf.Server.ListenHost,
		ListenPort:   conf.Server.ListenPort,
		IdleTimeout:  conf.Server.IdleTimeout,
		MaxReadFails: conf.Server.MaxReadFails,
	}
}

func startServer(ctx context.Context, conf config.Config, cmd *serveCmd) error {
	if cmd.Local {
		return startLocalServer(ctx, conf)
	}

	rdb := worker.NewRedisClient(conf.Transport)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis at '%s': %w", conf.Transport.Addr, err)
	}

	t := transport.NewRedisTransport(rdb).WithBlock(conf.Transport.Block)
	d := tasks.NewQueueDispatcher(asynq.RedisClientOpt{
		Addr:     conf.Transport.Addr,
		Username: conf.Transport.Username,
		Password: conf.Transport.Password,
		DB:       conf.Transport.DB,
	}, conf.Worker.Queue)
	defer d.Close()

	srv := server.New(serverConfig(conf), t, d, worker.NewLimiter(conf.Quota, rdb))
	return srv.ListenAndServe(ctx)
}

// startLocalServer serves without redis or workers.
func startLocalServer(ctx context.Context, conf config.Config) error {
	stack, err := worker.Build(ctx, conf, nil)
	if err != nil {
		return err
	}
	defer stack.Close()

	t := transport.NewMemoryTransport().WithBlock(conf.Transport.Block)
	d := tasks.NewLocalDispatcher(tasks.NewGenerateTaskHandler(t, stack.Service))
	defer d.Close()

	slog.Info("running in local mode")
	srv := server.New(serverConfig(conf), t, d, stack.Limiter)
	return srv.ListenAndServe(ctx)
}

func startWorker(ctx context.Context, conf config.Config) error {
	return worker.New(conf).Start(ctx)
}

func runGenerate(ctx context.Context, cmd *generateCmd) error {
	backend, err := client.Dial(fmt.Sprintf("%s:%d", cmd.Host, cmd.Port))
	if err != nil {
		return err
	}
	defer backend.Close()

	sess := session.Anonymous()
	if cmd.User != "" {
		sess = session.New(session.User{
			ID:   cmd.User,
			Plan: session.Plan(strings.ToUpper(cmd.Plan)),
		})
	}

	req := api.NewGenerationRequest(cmd.Prompt)
	req.Tool = api.Tool(cmd.Tool)
	req.WithCitations = cmd.Citations
	req.Config = api.GenerationConfig{
		Words:        cmd.Words,
		Language:     cmd.Language,
		ContentType:  cmd.Type,
		Undetectable: cmd.Undetectable,
	}.WithDefaults()

	// snapshots are cumulative, print only what is new
	var printed int
	c := client.New(backend, sess, client.WithObserver(func(e client.Entry) {
		if e.Role != client.RoleAssistant || len(e.Content) <= printed {
			return
		}
		fmt.Print(e.Content[printed:])
		printed = len(e.Content)
	}))

	id := c.Submit(ctx, req)
	entry, err := c.Wait(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println()

	if entry.Status != client.StatusFinal {
		return fmt.Errorf("generation %s: %w", entry.Status, entry.Err)
	}

	if len(entry.Citations) > 0 {
		fmt.Fprintln(os.Stdout, "\nReferences:")
		for _, doi := range entry.Citations {
			fmt.Fprintf(os.Stdout, "  https://doi.org/%s\n", doi)
		}
	}

	usage, err := backend.Usage(ctx, sess)
	if err == nil && usage.Limit >= 0 {
		fmt.Fprintf(os.Stdout, "\n%d of %d generations used\n", usage.Used, usage.Limit)
	}
	return nil
}
