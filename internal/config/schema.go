package config

import "github.com/jackzampolin/novelparser/internal/types"

// Config is the root configuration structure.
type Config struct {
	LLM      types.LLMConfig `mapstructure:"llm" yaml:"llm"`
	Analysis AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Storage  StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Server   ServerConfig    `mapstructure:"server" yaml:"server"`
}

// AnalysisConfig tunes the chapter pipeline.
type AnalysisConfig struct {
	Concurrency            int  `mapstructure:"concurrency" yaml:"concurrency"`
	GroupSize              int  `mapstructure:"group_size" yaml:"group_size"`
	TemplateOverheadTokens int  `mapstructure:"template_overhead_tokens" yaml:"template_overhead_tokens"`
	Stream                 bool `mapstructure:"stream" yaml:"stream"`
}

// StorageConfig locates the sqlite database. An empty path means the home data dir.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns the configuration built from DefaultEntries.
func DefaultConfig() *Config {
	llm := types.DefaultLLMConfig()
	llm.APIKey = "${OPENAI_API_KEY}"
	return &Config{
		LLM: llm,
		Analysis: AnalysisConfig{
			Concurrency:            3,
			GroupSize:              10,
			TemplateOverheadTokens: 500,
			Stream:                 true,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8080",
		},
	}
}

// LLMConfig returns the model settings with ${ENV_VAR} references resolved.
func (c *Config) LLMConfig() types.LLMConfig {
	llm := c.LLM
	llm.APIKey = ResolveEnvVars(llm.APIKey)
	llm.BaseURL = ResolveEnvVars(llm.BaseURL)
	return llm
}
