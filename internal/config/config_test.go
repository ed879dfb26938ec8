package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func newTestManager(t *testing.T, path string) *Manager {
	t.Helper()
	mgr, err := NewManagerWithOptions(Options{
		ConfigFile: path,
		EnvFile:    filepath.Join(t.TempDir(), "missing.env"),
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return mgr
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LLM.APIKey != "${OPENAI_API_KEY}" {
		t.Errorf("api key = %q, want env placeholder", cfg.LLM.APIKey)
	}
	if cfg.LLM.MaxContextTokens != 1000000 || cfg.LLM.MaxOutputTokens != 8192 {
		t.Errorf("unexpected token limits: %+v", cfg.LLM)
	}
	if cfg.Analysis.Concurrency != 3 || cfg.Analysis.GroupSize != 10 || cfg.Analysis.TemplateOverheadTokens != 500 {
		t.Errorf("unexpected analysis defaults: %+v", cfg.Analysis)
	}
	if !cfg.Analysis.Stream {
		t.Error("expected streaming on by default")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")
		if got := ResolveEnvVars("${TEST_API_KEY}"); got != "secret123" {
			t.Errorf("expected secret123, got %s", got)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		if got := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}"); got != "" {
			t.Errorf("expected empty string, got %s", got)
		}
	})

	t.Run("expands inside a longer value", func(t *testing.T) {
		t.Setenv("TEST_HOST", "llm.local")
		if got := ResolveEnvVars("http://${TEST_HOST}/v1"); got != "http://llm.local/v1" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		if got := ResolveEnvVars("literal-value"); got != "literal-value" {
			t.Errorf("expected literal-value, got %s", got)
		}
	})
}

func TestConfig_LLMConfig(t *testing.T) {
	t.Setenv("TEST_DEEPSEEK_KEY", "ds-key-123")

	cfg := DefaultConfig()
	cfg.LLM.APIKey = "${TEST_DEEPSEEK_KEY}"

	llm := cfg.LLMConfig()
	if llm.APIKey != "ds-key-123" {
		t.Errorf("resolved key = %q", llm.APIKey)
	}
	if cfg.LLM.APIKey != "${TEST_DEEPSEEK_KEY}" {
		t.Error("resolving must not modify the stored config")
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
llm:
  model: "deepseek-chat"
  max_context_tokens: 64000
analysis:
  concurrency: 5
`)
		cfg := newTestManager(t, path).Get()

		if cfg.LLM.Model != "deepseek-chat" {
			t.Errorf("model = %q", cfg.LLM.Model)
		}
		if cfg.LLM.MaxContextTokens != 64000 {
			t.Errorf("max_context_tokens = %d", cfg.LLM.MaxContextTokens)
		}
		if cfg.Analysis.Concurrency != 5 {
			t.Errorf("concurrency = %d", cfg.Analysis.Concurrency)
		}
		// Unset keys keep their defaults
		if cfg.LLM.MaxOutputTokens != 8192 || cfg.Analysis.GroupSize != 10 {
			t.Errorf("defaults lost: %+v %+v", cfg.LLM, cfg.Analysis)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("NOVELPARSER_LLM_MODEL", "from-env")
		t.Setenv("NOVELPARSER_ANALYSIS_STREAM", "false")
		path := writeConfig(t, "llm:\n  model: from-file\n")

		cfg := newTestManager(t, path).Get()
		if cfg.LLM.Model != "from-env" {
			t.Errorf("model = %q, want from-env", cfg.LLM.Model)
		}
		if cfg.Analysis.Stream {
			t.Error("stream should be overridden to false")
		}
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		path := writeConfig(t, "llm: [unclosed\n")
		_, err := NewManagerWithOptions(Options{ConfigFile: path, EnvFile: filepath.Join(t.TempDir(), "none")})
		if err == nil {
			t.Fatal("expected error for malformed config")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("loads values into the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("NOVELPARSER_TEST_DOTENV=loaded\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("NOVELPARSER_TEST_DOTENV", "")
		os.Unsetenv("NOVELPARSER_TEST_DOTENV")

		if err := LoadEnvFile(path); err != nil {
			t.Fatalf("LoadEnvFile: %v", err)
		}
		if got := os.Getenv("NOVELPARSER_TEST_DOTENV"); got != "loaded" {
			t.Errorf("env = %q, want loaded", got)
		}
	})
}

func TestManager_ValueAndEntries(t *testing.T) {
	mgr := newTestManager(t, writeConfig(t, "server:\n  port: \"9090\"\n"))

	v, err := mgr.Value("server.port")
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "9090" {
		t.Errorf("server.port = %v", v)
	}

	_, err = mgr.Value("no.such.key")
	var unknown *UnknownKeyError
	if !errors.As(err, &unknown) || unknown.Key != "no.such.key" {
		t.Errorf("expected UnknownKeyError, got %v", err)
	}

	entries := mgr.Entries()
	if len(entries) != len(DefaultEntries()) {
		t.Fatalf("entries = %d, want %d", len(entries), len(DefaultEntries()))
	}
	for _, e := range entries {
		if e.Description == "" {
			t.Errorf("entry %s has no description", e.Key)
		}
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr := newTestManager(t, writeConfig(t, "llm:\n  model: m\n"))

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr := newTestManager(t, writeConfig(t, "llm:\n  model: m\n"))

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().LLM.Model
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	path := writeConfig(t, "llm:\n  model: initial_model\n")
	mgr := newTestManager(t, path)

	if got := mgr.Get().LLM.Model; got != "initial_model" {
		t.Fatalf("initial model = %q", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.LLM.Model)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("llm:\n  model: updated_model\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "updated_model" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().LLM.Model; got != "updated_model" {
		t.Errorf("config not updated: got %s", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid yaml: %v", err)
	}
	if cfg.LLM.APIKey != "${OPENAI_API_KEY}" || cfg.Analysis.GroupSize != 10 {
		t.Errorf("round trip lost values: %+v", cfg)
	}

	// And the manager reads it back
	if got := newTestManager(t, path).Get().Server.Port; got != "8080" {
		t.Errorf("server.port = %q", got)
	}
}
