package config

import "fmt"

// Entry is a single configuration key with its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries lists every leaf key with its default value.
// The manager registers each one with viper so env overrides apply to all of them.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// LLM
		{
			Key:         "llm.base_url",
			Value:       d.LLM.BaseURL,
			Description: "OpenAI-compatible API base URL",
		},
		{
			Key:         "llm.api_key",
			Value:       d.LLM.APIKey,
			Description: "API key (uses environment variable)",
		},
		{
			Key:         "llm.model",
			Value:       d.LLM.Model,
			Description: "Model used for chapter analysis and summaries",
		},
		{
			Key:         "llm.max_context_tokens",
			Value:       d.LLM.MaxContextTokens,
			Description: "Model context window in tokens",
		},
		{
			Key:         "llm.max_output_tokens",
			Value:       d.LLM.MaxOutputTokens,
			Description: "Tokens reserved for the model response",
		},
		{
			Key:         "llm.temperature",
			Value:       d.LLM.Temperature,
			Description: "Sampling temperature",
		},
		{
			Key:         "llm.requests_per_second",
			Value:       d.LLM.RequestsPerSecond,
			Description: "Request rate limit, 0 = unlimited",
		},
		{
			Key:         "llm.timeout_seconds",
			Value:       d.LLM.TimeoutSeconds,
			Description: "HTTP timeout in seconds for model requests",
		},

		// Analysis
		{
			Key:         "analysis.concurrency",
			Value:       d.Analysis.Concurrency,
			Description: "Chapters analyzed in parallel during a batch",
		},
		{
			Key:         "analysis.group_size",
			Value:       d.Analysis.GroupSize,
			Description: "Chapters folded into each stage summary",
		},
		{
			Key:         "analysis.template_overhead_tokens",
			Value:       d.Analysis.TemplateOverheadTokens,
			Description: "Tokens reserved for prompt scaffolding when splitting chapters",
		},
		{
			Key:         "analysis.stream",
			Value:       d.Analysis.Stream,
			Description: "Stream model output to progress listeners",
		},

		// Storage
		{
			Key:         "storage.path",
			Value:       d.Storage.Path,
			Description: "SQLite database path (empty = home data dir)",
		},

		// Server
		{
			Key:         "server.host",
			Value:       d.Server.Host,
			Description: "HTTP listen host",
		},
		{
			Key:         "server.port",
			Value:       d.Server.Port,
			Description: "HTTP listen port",
		},
	}
}

// GetDefault returns the default entry for a key, or nil if the key is unknown.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// UnknownKeyError reports a key that has no default entry.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown config key %q", e.Key)
}
