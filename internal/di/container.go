// Package di wires the application together: environment, logging, server
// launch, tool session, model backend, and the task runner. Construction
// order matters because teardown mirrors it in reverse.
package di

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"webpilot/internal/application/port/input"
	"webpilot/internal/application/port/output"
	"webpilot/internal/infrastructure/config"
	"webpilot/internal/infrastructure/env"
	"webpilot/internal/infrastructure/launcher"
	"webpilot/internal/infrastructure/llm/gemini"
	"webpilot/internal/infrastructure/llm/openaichat"
	"webpilot/internal/infrastructure/logger"
	"webpilot/internal/infrastructure/mcp"
	"webpilot/internal/infrastructure/userinteraction"
	"webpilot/internal/usecase/runner"
)

type Config struct {
	ConfigPath string // servers file, default config.json
	ServerName string // entry to launch, empty = sole entry or "playwright"
	RunName    string // names the per-run log file
}

type Container struct {
	Env          *env.EnvService
	Logger       output.LoggerPort
	Launcher     output.ServerLauncher
	Session      output.ToolSession
	LLM          output.LLMPort
	TaskExecutor input.TaskExecutor

	closeOnce sync.Once
	closers   []func() error
}

// NewContainer builds the full dependency graph. A failure at any stage tears
// down everything built so far; the caller only needs Close on success.
func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	envSvc := env.NewEnvService()

	logCfg := logger.DefaultConfig(cfg.RunName)
	logCfg.Level = envSvc.GetWithDefault("LOG_LEVEL", logCfg.Level)
	log, err := logger.NewLoggerAdapter(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c := &Container{Env: envSvc, Logger: log}
	c.closers = append(c.closers, log.Close)

	// The model backend comes first: a missing credential must fail the run
	// before any server process exists to orphan.
	llm, err := buildLLM(ctx, envSvc, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.LLM = llm

	spec, err := config.LoadLaunchSpec(cfg.ConfigPath, cfg.ServerName)
	if err != nil {
		c.Close()
		return nil, err
	}

	launch := launcher.New(spec, launcher.DefaultConfig(), log)
	handle, err := launch.Start(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Launcher = launch
	c.closers = append(c.closers, func() error { return launch.Stop(handle) })

	connector := mcp.NewConnector(mcpConfig(envSvc), log)
	session, err := connector.Open(ctx, handle)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Session = session
	c.closers = append(c.closers, session.Close)

	runCfg := runner.DefaultConfig()
	runCfg.MaxIterations = envSvc.GetInt("MAX_ITERATIONS", runCfg.MaxIterations)
	c.TaskExecutor = runner.New(llm, session, log, userinteraction.NewConsoleUserInteraction(), runCfg)

	return c, nil
}

// buildLLM selects the model backend from LLM_PROVIDER. The OpenAI-compatible
// providers share one adapter; Gemini goes through its own client. Missing
// credentials come back as errors so the container can unwind cleanly.
func buildLLM(ctx context.Context, envSvc *env.EnvService, log output.LoggerPort) (output.LLMPort, error) {
	provider := strings.ToLower(envSvc.GetWithDefault("LLM_PROVIDER", "openai"))

	switch provider {
	case "openai":
		key, err := requireEnv(envSvc, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		cfg := openaichat.DefaultConfig(key, envSvc.GetWithDefault("OPENAI_MODEL", "gpt-4o"))
		cfg.Logger = log
		return openaichat.New(cfg), nil

	case "openrouter":
		key, err := requireEnv(envSvc, "OPENROUTER_API_KEY")
		if err != nil {
			return nil, err
		}
		cfg := openaichat.OpenRouterConfig(key, envSvc.GetWithDefault("OPENROUTER_MODEL", "anthropic/claude-sonnet-4"))
		cfg.Logger = log
		return openaichat.New(cfg), nil

	case "azure":
		key, err := requireEnv(envSvc, "AZURE_OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		endpoint, err := requireEnv(envSvc, "AZURE_OPENAI_ENDPOINT")
		if err != nil {
			return nil, err
		}
		deployment, err := requireEnv(envSvc, "AZURE_OPENAI_DEPLOYMENT")
		if err != nil {
			return nil, err
		}
		return openaichat.NewAzure(key, endpoint, deployment, log), nil

	case "gemini", "googleai":
		key, err := requireEnv(envSvc, "GEMINI_API_KEY")
		if err != nil {
			return nil, err
		}
		return gemini.New(ctx, gemini.Config{
			APIKey: key,
			Model:  envSvc.GetWithDefault("GEMINI_MODEL", "gemini-2.0-flash"),
			Logger: log,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", provider)
	}
}

func requireEnv(envSvc *env.EnvService, key string) (string, error) {
	if v := envSvc.Get(key); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("ENV %s is missing", key)
}

// mcpConfig applies the environment overrides for the bridge knobs.
func mcpConfig(envSvc *env.EnvService) mcp.Config {
	cfg := mcp.DefaultConfig()
	cfg.MaxRetries = envSvc.GetInt("MCP_MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryBackoff = envSvc.GetDuration("MCP_RETRY_BACKOFF", cfg.RetryBackoff)
	cfg.HTTPTimeout = envSvc.GetDuration("MCP_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.CleanHTML = envSvc.GetBool("MCP_CLEAN_HTML", cfg.CleanHTML)
	return cfg
}

// Close tears down in reverse construction order: session, server, logger.
// Safe to call multiple times and on a partially built container.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		for i := len(c.closers) - 1; i >= 0; i-- {
			if err := c.closers[i](); err != nil && c.Logger != nil {
				c.Logger.Warn("Shutdown step failed", "error", err)
			}
		}
	})
}
