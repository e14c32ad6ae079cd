package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"tds-relay/assistant"
	"tds-relay/service/query"
)

const (
	BackendPinecone = "pinecone"
	BackendOpenAI   = "openai"

	defaultAddr = ":8080"

	// DefaultSecretID is the Secrets Manager entry the Lambda deployment reads the key from.
	DefaultSecretID = "pinecone-api-key"
)

// Config is everything the relay needs at startup. It is read once and not modified afterwards.
type Config struct {
	APIKey        string
	APIKeySecret  string
	AssistantName string
	Host          string
	Backend       string
	BaseURL       string
	Model         string
	SystemPrompt  string
	Addr          string
	ServeFrontend bool
}

const (
	flagAPIKey        = "api-key"
	flagAPIKeySecret  = "api-key-secret"
	flagAssistant     = "assistant"
	flagHost          = "host"
	flagBackend       = "backend"
	flagBaseURL       = "base-url"
	flagModel         = "model"
	flagSystemPrompt  = "system-prompt"
	flagAddr          = "addr"
	flagServeFrontend = "frontend"
)

var (
	envAPIKey        = []string{"PINECONE_API_KEY", "pinecone_api_key"}
	envAPIKeySecret  = []string{"PINECONE_API_KEY_SECRET"}
	envAssistant     = []string{"ASSISTANT_NAME"}
	envHost          = []string{"ASSISTANT_HOST"}
	envBackend       = []string{"ASSISTANT_BACKEND"}
	envBaseURL       = []string{"OPENAI_BASE_URL"}
	envModel         = []string{"ASSISTANT_MODEL"}
	envSystemPrompt  = []string{"ASSISTANT_SYSTEM_PROMPT"}
	envAddr          = []string{"ADDR"}
	envServeFrontend = []string{"SERVE_FRONTEND"}
)

// ErrMissingAPIKey is returned when no credential could be found, so the process can stop before
// serving a single request.
var ErrMissingAPIKey = errors.New("missing assistant api key: set --api-key or PINECONE_API_KEY")

// AssistantFlags are shared by every command that talks to the assistant.
func AssistantFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagAPIKey,
			Usage:   "API key for the assistant service",
			EnvVars: envAPIKey,
		},
		&cli.StringFlag{
			Name:    flagAPIKeySecret,
			Usage:   "AWS Secrets Manager id to read the API key from when it is not set directly",
			EnvVars: envAPIKeySecret,
		},
		&cli.StringFlag{
			Name:    flagAssistant,
			Usage:   "Name of the assistant questions are sent to",
			Value:   assistant.DefaultAssistant,
			EnvVars: envAssistant,
		},
		&cli.StringFlag{
			Name:    flagHost,
			Usage:   "Assistant data plane host",
			Value:   assistant.DefaultHost,
			EnvVars: envHost,
		},
		&cli.StringFlag{
			Name:    flagBackend,
			Usage:   "Transport used to reach the assistant: pinecone or openai",
			Value:   BackendPinecone,
			EnvVars: envBackend,
		},
		&cli.StringFlag{
			Name:    flagBaseURL,
			Usage:   "OpenAI compatible base URL, defaults to the assistant's own chat completions endpoint",
			EnvVars: envBaseURL,
		},
		&cli.StringFlag{
			Name:    flagModel,
			Usage:   "Model the assistant should answer with",
			EnvVars: envModel,
		},
		&cli.StringFlag{
			Name:    flagSystemPrompt,
			Usage:   "System prompt prepended to every question (openai backend only)",
			EnvVars: envSystemPrompt,
		},
	}
}

// ServerFlags are the flags of the serve command.
func ServerFlags() []cli.Flag {
	return append(AssistantFlags(),
		&cli.StringFlag{
			Name:    flagAddr,
			Usage:   "Address to listen on",
			Value:   defaultAddr,
			EnvVars: envAddr,
		},
		&cli.BoolFlag{
			Name:    flagServeFrontend,
			Usage:   "Serve the chat page on /, otherwise / returns a JSON status",
			Value:   true,
			EnvVars: envServeFrontend,
		},
	)
}

// FromCLI builds a Config from parsed flags. The API key is looked up in Secrets Manager when only a
// secret id was given.
func FromCLI(ctx *cli.Context, secrets SecretGetter) (*Config, error) {
	cfg := &Config{
		APIKey:        ctx.String(flagAPIKey),
		APIKeySecret:  ctx.String(flagAPIKeySecret),
		AssistantName: ctx.String(flagAssistant),
		Host:          ctx.String(flagHost),
		Backend:       ctx.String(flagBackend),
		BaseURL:       ctx.String(flagBaseURL),
		Model:         ctx.String(flagModel),
		SystemPrompt:  ctx.String(flagSystemPrompt),
		Addr:          ctx.String(flagAddr),
		ServeFrontend: ctx.Bool(flagServeFrontend),
	}
	return cfg, cfg.resolve(ctx.Context, secrets)
}

// FromEnv builds a Config from the environment alone, for deployments without a command line. The
// secret id defaults to DefaultSecretID.
func FromEnv(ctx context.Context, secrets SecretGetter) (*Config, error) {
	cfg := &Config{
		APIKey:        lookup(envAPIKey, ""),
		APIKeySecret:  lookup(envAPIKeySecret, DefaultSecretID),
		AssistantName: lookup(envAssistant, assistant.DefaultAssistant),
		Host:          lookup(envHost, assistant.DefaultHost),
		Backend:       lookup(envBackend, BackendPinecone),
		BaseURL:       lookup(envBaseURL, ""),
		Model:         lookup(envModel, ""),
		SystemPrompt:  lookup(envSystemPrompt, ""),
		Addr:          lookup(envAddr, defaultAddr),
		ServeFrontend: true,
	}
	if v := lookup(envServeFrontend, ""); v != "" {
		serve, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", envServeFrontend[0], v, err)
		}
		cfg.ServeFrontend = serve
	}
	return cfg, cfg.resolve(ctx, secrets)
}

func lookup(names []string, fallback string) string {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
	}
	return fallback
}

func (c *Config) resolve(ctx context.Context, secrets SecretGetter) error {
	if c.Backend != BackendPinecone && c.Backend != BackendOpenAI {
		return fmt.Errorf("unknown assistant backend %q, expected %s or %s", c.Backend, BackendPinecone, BackendOpenAI)
	}

	if c.APIKey == "" && c.APIKeySecret != "" {
		if secrets == nil {
			return fmt.Errorf("api key secret %s configured but no secrets client available", c.APIKeySecret)
		}
		key, err := SecretValue(ctx, secrets, c.APIKeySecret)
		if err != nil {
			return err
		}
		c.APIKey = key
	}

	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// NewAssistant creates the long lived assistant client for this configuration.
func (c *Config) NewAssistant() query.Assistant {
	switch c.Backend {
	case BackendOpenAI:
		baseURL := c.BaseURL
		if baseURL == "" {
			baseURL = assistant.CompatibleBaseURL(c.Host, c.AssistantName)
		}
		return assistant.NewOpenAI(assistant.OpenAIConfig{
			APIKey:       c.APIKey,
			BaseURL:      baseURL,
			Model:        c.Model,
			SystemPrompt: c.SystemPrompt,
		})
	default:
		return assistant.NewPinecone(c.APIKey, c.AssistantName,
			assistant.WithHost(c.Host),
			assistant.WithModel(c.Model),
		)
	}
}

// LogValue keeps the credential out of the logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("assistant", c.AssistantName),
		slog.String("host", c.Host),
		slog.String("backend", c.Backend),
		slog.String("model", c.Model),
		slog.String("addr", c.Addr),
		slog.Bool("frontend", c.ServeFrontend),
	)
}

// LoadDotEnv reads a .env file from the working directory when there is one. Variables that are
// already set win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}
