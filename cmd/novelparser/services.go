package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/novelparser/internal/config"
	"github.com/jackzampolin/novelparser/internal/home"
	"github.com/jackzampolin/novelparser/internal/jobs"
	"github.com/jackzampolin/novelparser/internal/llmcall"
	"github.com/jackzampolin/novelparser/internal/progress"
	"github.com/jackzampolin/novelparser/internal/providers"
	"github.com/jackzampolin/novelparser/internal/store"
	"github.com/jackzampolin/novelparser/internal/svcctx"
	"github.com/jackzampolin/novelparser/internal/types"
)

// app is everything a command needs, built from config and the home dir.
type app struct {
	home     *home.Dir
	config   *config.Manager
	logger   *slog.Logger
	services *svcctx.Services
}

func (a *app) Close() error {
	if a.services != nil && a.services.Store != nil {
		return a.services.Store.Close()
	}
	return nil
}

// getHome returns the home directory, creating it if needed.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// loadConfig reads the config file and the home .env file.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	if err := config.LoadEnvFile(h.EnvPath()); err != nil {
		return nil, err
	}
	return config.NewManagerWithOptions(config.Options{
		ConfigFile: cfgFile,
		HomeDir:    h.Path(),
	})
}

// newApp opens the store and wires the model caller and the analysis jobs.
// sinks receive progress in addition to the log sink.
func newApp(ctx context.Context, sinks ...progress.Sink) (*app, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	h, err := getHome()
	if err != nil {
		return nil, err
	}
	cm, err := loadConfig(h)
	if err != nil {
		return nil, err
	}
	cfg := cm.Get()

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = h.DBPath()
	}
	st, err := store.Open(store.Config{Path: dbPath, Logger: logger})
	if err != nil {
		return nil, err
	}

	llm, err := effectiveLLMConfig(ctx, st, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	client := providers.NewOpenAIClient(providers.OpenAIConfig{
		APIKey:    llm.APIKey,
		BaseURL:   llm.BaseURL,
		Model:     llm.Model,
		RateLimit: llm.RequestsPerSecond,
		Timeout:   time.Duration(llm.TimeoutSeconds) * time.Second,
	})
	caller := llmcall.NewCaller(client, llmcall.NewRecorder(st, logger), logger)

	sink := progress.Multi(append([]progress.Sink{progress.NewLogSink(logger)}, sinks...)...)

	runner, err := jobs.NewRunner(jobs.RunnerConfig{
		Store:            st,
		Model:            caller,
		Sink:             sink,
		Logger:           logger,
		LLM:              llm,
		TemplateOverhead: cfg.Analysis.TemplateOverheadTokens,
		Stream:           cfg.Analysis.Stream,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	sched, err := jobs.NewScheduler(jobs.SchedulerConfig{
		Runner:      runner,
		Store:       st,
		Sink:        sink,
		Logger:      logger,
		Concurrency: cfg.Analysis.Concurrency,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	reducer, err := jobs.NewReducer(jobs.ReducerConfig{
		Store:     st,
		Model:     caller,
		Sink:      sink,
		Logger:    logger,
		LLM:       llm,
		GroupSize: cfg.Analysis.GroupSize,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		home:   h,
		config: cm,
		logger: logger,
		services: &svcctx.Services{
			Store:     st,
			Runner:    runner,
			Scheduler: sched,
			Reducer:   reducer,
			Caller:    caller,
			Logger:    logger,
		},
	}, nil
}

// effectiveLLMConfig layers the model settings saved in the store over the
// config file.
func effectiveLLMConfig(ctx context.Context, st *store.Store, cfg *config.Config) (types.LLMConfig, error) {
	base := cfg.LLMConfig()
	llm, saved, err := st.LoadLLMConfig(ctx, base)
	if err != nil {
		return base, err
	}
	if saved {
		// Saved values may hold ${ENV} references too.
		llm.APIKey = config.ResolveEnvVars(llm.APIKey)
		llm.BaseURL = config.ResolveEnvVars(llm.BaseURL)
	}
	return llm, nil
}
