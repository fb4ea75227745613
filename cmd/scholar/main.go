package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/alan-mat/scholar/internal/config"
)

const (
	ProgramName   = "Scholar"
	Version       = "v0.1.0"
	RepositoryUrl = "github.com/alan-mat/scholar"
)

type serveCmd struct {
	Local bool `arg:"--local" help:"run generations in-process instead of queueing them for workers"`
}

type workerCmd struct{}

type generateCmd struct {
	Prompt       string `arg:"positional,required" help:"topic or text to write about"`
	Host         string `arg:"--host,-H" default:"localhost" help:"server host address"`
	Port         uint   `arg:"--port,-p" default:"50051" help:"server port"`
	Words        int    `arg:"--words,-w" help:"target length in words"`
	Language     string `arg:"--language,-l" help:"output language"`
	Type         string `arg:"--type,-t" help:"content type, e.g. Argumentative"`
	Tool         string `arg:"--tool" help:"writing tool the request comes from"`
	Undetectable bool   `arg:"--undetectable" help:"write in a more natural register"`
	Citations    bool   `arg:"--citations" help:"attach citations to the result"`
	User         string `arg:"--user,-u" help:"user ID, empty for a guest session"`
	Plan         string `arg:"--plan" default:"FREE" help:"plan of the user"`
}

type args struct {
	Config   string       `arg:"--config,-c" default:"scholar.yaml" help:"path to the config file"`
	Server   *serveCmd    `arg:"subcommand:serve" help:"start the Scholar server"`
	Worker   *workerCmd   `arg:"subcommand:work" help:"start a Scholar worker"`
	Generate *generateCmd `arg:"subcommand:generate" help:"stream a generation from a running server"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", ProgramName, Version)
}

func (args) Epilogue() string {
	return fmt.Sprintf("For more information visit %s", RepositoryUrl)
}

func main() {
	var args args

	p, err := arg.NewParser(arg.Config{Program: strings.ToLower(ProgramName)}, &args)
	if err != nil {
		log.Fatalf("there was an error in the definition of the Go struct: %v", err)
	}
	p.MustParse(os.Args[1:])

	if p.Subcommand() == nil {
		p.WriteUsage(os.Stdout)
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("error loading .env file: %v", err)
	}

	conf, err := loadConfig(args.Config)
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(conf.Log.Logger(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd := p.Subcommand().(type) {
	case *serveCmd:
		err = startServer(ctx, conf, cmd)
	case *workerCmd:
		err = startWorker(ctx, conf)
	case *generateCmd:
		err = runGenerate(ctx, cmd)
	default:
		p.FailSubcommand("unrecognized command", p.SubcommandNames()...)
	}

	if err != nil {
		slog.Error("command failed", "err", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads path, falling back to the defaults when the
// file does not exist.
func loadConfig(path string) (config.Config, error) {
	conf, err := config.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		conf = config.Default()
		err = conf.Validate()
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config '%s': %w", path, err)
	}
	return conf, nil
}
