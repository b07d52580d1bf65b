package tokens

import "llm-dev-ops/connector-hub/pkg/providers"

// Estimator estimates token counts for text and requests.
type Estimator interface {
	// EstimateText estimates tokens for a single text string.
	EstimateText(text, model string) int

	// EstimateMessages estimates prompt tokens for messages, including
	// formatting overhead.
	EstimateMessages(messages []providers.Message, model string) int

	// EstimateRequest estimates every token a request will consume.
	EstimateRequest(req *providers.CompletionRequest) Estimate
}

// Estimate is a per-part token estimate for one request.
type Estimate struct {
	// PromptTokens is the estimated prompt size, overhead included.
	PromptTokens int

	// CompletionTokens is MaxTokens when set, otherwise a default derived
	// from the prompt size.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int

	// SystemTokens is the share of PromptTokens from system messages.
	SystemTokens int

	// MessageTokens is the share of PromptTokens from other messages.
	MessageTokens int

	// ToolTokens is the share of PromptTokens from tool definitions.
	ToolTokens int

	// OverheadTokens is request formatting overhead.
	OverheadTokens int

	// Model is the model the ratios were taken for.
	Model string
}
