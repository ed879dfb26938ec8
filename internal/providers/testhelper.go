package providers

import "os"

// TestConfig holds live endpoint settings loaded from environment variables.
type TestConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// LoadTestConfig loads live endpoint settings from the environment.
func LoadTestConfig() TestConfig {
	return TestConfig{
		APIKey:  os.Getenv("NOVELPARSER_TEST_API_KEY"),
		BaseURL: os.Getenv("NOVELPARSER_TEST_BASE_URL"),
		Model:   os.Getenv("NOVELPARSER_TEST_MODEL"),
	}
}

// HasLive returns true if a live endpoint is configured.
func (c TestConfig) HasLive() bool {
	return c.APIKey != ""
}
