package tokens

import (
	"encoding/json"
	"sort"
	"strings"

	"llm-dev-ops/connector-hub/pkg/providers"
)

const (
	// DefaultCharsPerToken applies to models without a ratio.
	DefaultCharsPerToken = 4.0

	messageOverhead  = 3
	requestOverhead  = 5
	toolOverhead     = 10
	toolCallOverhead = 15

	minCompletionEstimate = 100
	maxCompletionEstimate = 1000
)

// DefaultRatios maps model id prefixes to characters per token.
var DefaultRatios = map[string]float64{
	"gpt-4":   4.0,
	"gpt-3.5": 4.0,
	"o1":      4.0,
	"claude":  3.5,
}

// SimpleEstimator is a character-based Estimator. It is safe for
// concurrent use.
type SimpleEstimator struct {
	// prefixes sorted longest first so the most specific ratio wins
	prefixes []string
	ratios   map[string]float64
}

var _ Estimator = (*SimpleEstimator)(nil)

// NewSimpleEstimator creates an estimator from model prefix ratios. A nil
// map selects DefaultRatios; a "default" key replaces DefaultCharsPerToken.
func NewSimpleEstimator(ratios map[string]float64) *SimpleEstimator {
	if ratios == nil {
		ratios = DefaultRatios
	}
	e := &SimpleEstimator{ratios: make(map[string]float64, len(ratios))}
	for prefix, ratio := range ratios {
		if ratio <= 0 {
			continue
		}
		e.ratios[prefix] = ratio
		if prefix != "default" {
			e.prefixes = append(e.prefixes, prefix)
		}
	}
	sort.Slice(e.prefixes, func(i, j int) bool {
		if len(e.prefixes[i]) != len(e.prefixes[j]) {
			return len(e.prefixes[i]) > len(e.prefixes[j])
		}
		return e.prefixes[i] < e.prefixes[j]
	})
	return e
}

// EstimateText returns at least 1 for non-empty text.
func (e *SimpleEstimator) EstimateText(text, model string) int {
	if text == "" {
		return 0
	}

	tokens := float64(len(text)) / e.charsPerToken(model)
	if tokens < 1 {
		return 1
	}
	return int(tokens + 0.5)
}

// EstimateMessages counts one token per role, the content, name and tool
// calls, plus per-message and per-conversation overhead.
func (e *SimpleEstimator) EstimateMessages(messages []providers.Message, model string) int {
	if len(messages) == 0 {
		return 0
	}

	total := 0
	for _, msg := range messages {
		total++
		total += e.EstimateText(msg.Content, model)
		total += e.EstimateText(msg.Name, model)
		for _, tc := range msg.ToolCalls {
			total += toolCallOverhead
			total += e.EstimateText(tc.Function.Name, model)
			total += e.EstimateText(tc.Function.Arguments, model)
		}
		total += messageOverhead
	}
	return total + messageOverhead
}

// EstimateTools estimates tool definitions, parameters schema included.
func (e *SimpleEstimator) EstimateTools(tools []providers.Tool, model string) int {
	total := 0
	for _, tool := range tools {
		total += e.EstimateText(tool.Function.Name, model)
		total += e.EstimateText(tool.Function.Description, model)
		if tool.Function.Parameters != nil {
			if params, err := json.Marshal(tool.Function.Parameters); err == nil {
				total += e.EstimateText(string(params), model)
			}
		}
		total += toolOverhead
	}
	return total
}

// EstimateRequest splits system prompts from the rest of the conversation
// and adds tools and overhead. A nil request estimates to zero.
func (e *SimpleEstimator) EstimateRequest(req *providers.CompletionRequest) Estimate {
	if req == nil {
		return Estimate{}
	}

	est := Estimate{Model: req.Model, OverheadTokens: requestOverhead}

	var system, other []providers.Message
	for _, msg := range req.Messages {
		if msg.Role == providers.RoleSystem {
			system = append(system, msg)
		} else {
			other = append(other, msg)
		}
	}
	est.SystemTokens = e.EstimateMessages(system, req.Model)
	est.MessageTokens = e.EstimateMessages(other, req.Model)
	est.ToolTokens = e.EstimateTools(req.Tools, req.Model)
	est.PromptTokens = est.SystemTokens + est.MessageTokens + est.ToolTokens + est.OverheadTokens

	if req.MaxTokens > 0 {
		est.CompletionTokens = req.MaxTokens
	} else {
		est.CompletionTokens = min(max(est.PromptTokens/3, minCompletionEstimate), maxCompletionEstimate)
	}
	est.TotalTokens = est.PromptTokens + est.CompletionTokens

	return est
}

func (e *SimpleEstimator) charsPerToken(model string) float64 {
	if ratio, ok := e.ratios[model]; ok {
		return ratio
	}
	for _, prefix := range e.prefixes {
		if strings.HasPrefix(model, prefix) {
			return e.ratios[prefix]
		}
	}
	if ratio, ok := e.ratios["default"]; ok {
		return ratio
	}
	return DefaultCharsPerToken
}

// Usage returns reported when the provider filled it in, otherwise an
// estimate from req and the response content.
func Usage(e Estimator, req *providers.CompletionRequest, content string, reported providers.TokenUsage) providers.TokenUsage {
	if reported.TotalTokens > 0 || e == nil {
		return reported
	}
	model := ""
	if req != nil {
		model = req.Model
	}
	prompt := e.EstimateRequest(req).PromptTokens
	completion := e.EstimateText(content, model)
	return providers.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}
