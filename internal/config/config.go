// Package config reads the YAML configuration shared by the server,
// the worker and the CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/session"
	"github.com/goccy/go-yaml"
)

var (
	ErrInvalidValue = errors.New("invalid config value")
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Block is how long a stream read waits for new messages.
	Block time.Duration `yaml:"block"`
}

type ServerConfig struct {
	ListenHost   string        `yaml:"listen_host"`
	ListenPort   int           `yaml:"listen_port"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxReadFails int           `yaml:"max_read_fails"`
}

type WorkerConfig struct {
	Concurrency int    `yaml:"concurrency"`
	Queue       string `yaml:"queue"`
}

type MockConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type GenerationConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// Zero disables the timeout and the concurrency bound.
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`

	Mock MockConfig `yaml:"mock"`
}

const (
	QuotaBackendMemory    = "memory"
	QuotaBackendRedis     = "redis"
	QuotaBackendUnlimited = "unlimited"
)

type QuotaConfig struct {
	Backend string         `yaml:"backend"`
	Limits  map[string]int `yaml:"limits"`
}

const (
	CitationSourceNone   = "none"
	CitationSourceStatic = "static"
	CitationSourceVector = "vector"
)

type VectorStoreConfig struct {
	Type       string `yaml:"type"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

type CitationsConfig struct {
	Source string `yaml:"source"`
	Limit  int    `yaml:"limit"`

	// DOIs cited by the static source.
	DOIs []string `yaml:"dois"`

	Embedder    string            `yaml:"embedder"`
	Reranker    string            `yaml:"reranker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`

	// References are indexed into the vector store when the worker starts.
	References []api.Reference `yaml:"references"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Worker     WorkerConfig     `yaml:"worker"`
	Transport  RedisConfig      `yaml:"transport"`
	Generation GenerationConfig `yaml:"generation"`
	Quota      QuotaConfig      `yaml:"quota"`
	Citations  CitationsConfig  `yaml:"citations"`
	Log        LogConfig        `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenPort:   50051,
			IdleTimeout:  time.Minute,
			MaxReadFails: 10,
		},
		Worker: WorkerConfig{
			Concurrency: 10,
			Queue:       "default",
		},
		Transport: RedisConfig{
			Addr:  "localhost:6379",
			Block: time.Second,
		},
		Generation: GenerationConfig{
			Provider:    "mock",
			Temperature: 0.7,
			Mock: MockConfig{
				Interval: 50 * time.Millisecond,
			},
		},
		Quota: QuotaConfig{
			Backend: QuotaBackendMemory,
			Limits: map[string]int{
				string(session.PlanFree):    10,
				string(session.PlanStarter): 500,
				string(session.PlanPro):     2000,
			},
		},
		Citations: CitationsConfig{
			Source:   CitationSourceStatic,
			Limit:    3,
			Embedder: "cohere",
			VectorStore: VectorStoreConfig{
				Type:       "qdrant",
				Host:       "localhost",
				Port:       6334,
				Collection: "references",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Read parses the file at path on top of the defaults.
func Read(path string) (Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(file)
}

func Parse(data []byte) (Config, error) {
	conf := Default()
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

func (c Config) Validate() error {
	switch c.Quota.Backend {
	case QuotaBackendMemory, QuotaBackendRedis, QuotaBackendUnlimited:
	default:
		return fmt.Errorf("%w: quota.backend '%s'", ErrInvalidValue, c.Quota.Backend)
	}

	for plan := range c.Quota.Limits {
		switch session.Plan(plan) {
		case session.PlanFree, session.PlanStarter, session.PlanPro:
		default:
			return fmt.Errorf("%w: quota.limits plan '%s'", ErrInvalidValue, plan)
		}
	}

	switch c.Citations.Source {
	case CitationSourceNone, CitationSourceStatic, CitationSourceVector:
	default:
		return fmt.Errorf("%w: citations.source '%s'", ErrInvalidValue, c.Citations.Source)
	}

	if c.Server.ListenPort <= 0 || c.Server.ListenPort > 65535 {
		return fmt.Errorf("%w: server.listen_port %d", ErrInvalidValue, c.Server.ListenPort)
	}
	if c.Generation.Timeout < 0 || c.Generation.MaxConcurrent < 0 {
		return fmt.Errorf("%w: generation limits must not be negative", ErrInvalidValue)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// PlanLimits returns the quota limits keyed by plan.
func (c QuotaConfig) PlanLimits() map[session.Plan]int {
	limits := make(map[session.Plan]int, len(c.Limits))
	for plan, n := range c.Limits {
		limits[session.Plan(plan)] = n
	}
	return limits
}

// Logger builds the logger described by c writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("%w: log.level '%s'", ErrInvalidValue, s)
	}
	return level, nil
}
