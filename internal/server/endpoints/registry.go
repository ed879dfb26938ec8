package endpoints

import "github.com/jackzampolin/novelparser/internal/api"

// All returns all endpoint instances.
func All() []api.Endpoint {
	batch := &batchSlot{}
	summaries := &inflight{}

	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Novel endpoints
		&ListNovelsEndpoint{},
		&CreateNovelEndpoint{},
		&DeleteNovelEndpoint{},
		&DimensionsEndpoint{},

		// Chapter endpoints
		&ListChaptersEndpoint{},
		&GetChapterEndpoint{},
		&AnalyzeChapterEndpoint{},
		&ChapterPromptEndpoint{},
		&ManualResultEndpoint{},

		// Batch endpoints
		&AnalyzeNovelEndpoint{batch: batch},
		&CancelEndpoint{},

		// Summary endpoints
		&StartSummaryEndpoint{tasks: summaries},
		&GetSummaryEndpoint{},
		&SummaryPromptEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},

		// Model endpoints
		&ListLLMCallsEndpoint{},
		&LLMCallStatsEndpoint{},
		&ListModelsEndpoint{},
	}
}
