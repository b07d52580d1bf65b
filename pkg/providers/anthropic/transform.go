package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// Anthropic API request/response types

// AnthropicRequest represents an Anthropic messages request.
type AnthropicRequest struct {
	Model         string             `json:"model"`
	Messages      []AnthropicMessage `json:"messages"`
	System        string             `json:"system,omitempty"`
	MaxTokens     int                `json:"max_tokens"`
	Temperature   float64            `json:"temperature,omitempty"`
	TopP          float64            `json:"top_p,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
	Tools         []AnthropicTool    `json:"tools,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Metadata      *RequestMetadata   `json:"metadata,omitempty"`
}

// RequestMetadata carries the end-user identifier.
type RequestMetadata struct {
	UserID string `json:"user_id,omitempty"`
}

// AnthropicMessage represents a message in Anthropic format.
type AnthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []ContentBlock
}

// ContentBlock represents a content block in Anthropic format.
type ContentBlock struct {
	Type string `json:"type"` // "text", "tool_use" or "tool_result"
	Text string `json:"text,omitempty"`

	// For tool_use blocks
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// For tool_result blocks
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// AnthropicTool represents a tool definition in Anthropic format.
type AnthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// AnthropicResponse represents an Anthropic messages response.
type AnthropicResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence,omitempty"`
	Usage        AnthropicUsage `json:"usage"`
}

// AnthropicUsage represents token usage in Anthropic format.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicStreamEvent represents an event in Anthropic's SSE stream.
// content_block_delta and message_delta share the "delta" key, so Delta
// holds the union of both shapes.
type AnthropicStreamEvent struct {
	Type string `json:"type"`

	// message_start
	Message *AnthropicResponse `json:"message,omitempty"`

	// content_block_start / content_block_delta
	Index        int           `json:"index"`
	ContentBlock *ContentBlock `json:"content_block,omitempty"`

	// content_block_delta / message_delta
	Delta *StreamDelta    `json:"delta,omitempty"`
	Usage *AnthropicUsage `json:"usage,omitempty"`

	// error
	Error *AnthropicError `json:"error,omitempty"`
}

// StreamDelta is the union of content block and message deltas.
type StreamDelta struct {
	Type         string `json:"type,omitempty"`
	Text         string `json:"text,omitempty"`
	PartialJSON  string `json:"partial_json,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

// AnthropicError is the error payload of an in-stream "error" event.
type AnthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DefaultMaxTokens is sent when a request omits max_tokens, which Anthropic requires.
const DefaultMaxTokens = 4096

// transformRequest transforms a provider-agnostic request to Anthropic format.
func transformRequest(req *providers.CompletionRequest) (*AnthropicRequest, error) {
	anthropicReq := &AnthropicRequest{
		Model:         req.Model,
		Messages:      make([]AnthropicMessage, 0, len(req.Messages)),
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		Stream:        req.Stream,
		StopSequences: req.Stop,
	}

	if anthropicReq.MaxTokens == 0 {
		anthropicReq.MaxTokens = DefaultMaxTokens
	}
	if req.User != "" {
		anthropicReq.Metadata = &RequestMetadata{UserID: req.User}
	}

	// System messages move to the top-level field.
	var system []string
	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			system = append(system, msg.Content)

		case providers.RoleTool:
			anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{
				Role: providers.RoleUser,
				Content: []ContentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})

		case providers.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{Role: msg.Role, Content: msg.Content})
				continue
			}
			blocks := make([]ContentBlock, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, ContentBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]interface{}
				if tc.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
						return nil, providers.NewValidationError("messages", "tool call %q has invalid arguments: %v", tc.ID, err)
					}
				}
				blocks = append(blocks, ContentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Function.Name, Input: input})
			}
			anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{Role: msg.Role, Content: blocks})

		default:
			anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{Role: msg.Role, Content: msg.Content})
		}
	}
	anthropicReq.System = strings.Join(system, "\n\n")

	if len(req.Tools) > 0 {
		anthropicReq.Tools = make([]AnthropicTool, len(req.Tools))
		for i, tool := range req.Tools {
			schema := tool.Function.Parameters
			if schema == nil {
				schema = map[string]interface{}{"type": "object"}
			}
			anthropicReq.Tools[i] = AnthropicTool{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				InputSchema: schema,
			}
		}
	}

	if err := validateMessageSequence(anthropicReq.Messages); err != nil {
		return nil, err
	}

	return anthropicReq, nil
}

// EncodeRequest returns the JSON body sent to the messages endpoint.
func EncodeRequest(req *providers.CompletionRequest) ([]byte, error) {
	body, err := transformRequest(req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(body)
}

// validateMessageSequence validates that messages alternate between user and assistant.
func validateMessageSequence(messages []AnthropicMessage) error {
	if len(messages) == 0 {
		return providers.NewValidationError("messages", "at least one non-system message is required")
	}

	if messages[0].Role != providers.RoleUser {
		return providers.NewValidationError("messages", "first message must be from user")
	}

	for i := 1; i < len(messages); i++ {
		if messages[i-1].Role == messages[i].Role {
			return providers.NewValidationError("messages",
				"messages must alternate between user and assistant, found consecutive %s messages at index %d", messages[i].Role, i)
		}
	}

	return nil
}

// transformResponse transforms an Anthropic response to provider-agnostic format.
func transformResponse(resp *AnthropicResponse, raw []byte) (*providers.CompletionResponse, error) {
	var content strings.Builder
	var toolCalls []providers.ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)

		case "tool_use":
			args, err := json.Marshal(block.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool input: %w", err)
			}
			toolCalls = append(toolCalls, providers.ToolCall{
				Index: len(toolCalls),
				ID:    block.ID,
				Type:  providers.ToolTypeFunction,
				Function: providers.FunctionCall{
					Name:      block.Name,
					Arguments: string(args),
				},
			})
		}
	}

	return &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Role:         providers.RoleAssistant,
		Content:      content.String(),
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		ToolCalls: toolCalls,
		Created:   time.Now(),
		Raw:       json.RawMessage(raw),
	}, nil
}

// streamState tracks state across stream events.
type streamState struct {
	id          string
	model       string
	inputTokens int
	roleSent    bool
	toolIndex   map[int]int
	stopped     bool
}

// transformStreamChunk transforms an Anthropic stream event to provider-agnostic format.
// A nil chunk with a nil error means the event carries nothing to emit.
func transformStreamChunk(event *AnthropicStreamEvent, state *streamState) (*providers.StreamChunk, error) {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			state.id = event.Message.ID
			state.model = event.Message.Model
			state.inputTokens = event.Message.Usage.InputTokens
		}
		return nil, nil

	case "content_block_start":
		if event.ContentBlock == nil || event.ContentBlock.Type != "tool_use" {
			return nil, nil
		}
		if state.toolIndex == nil {
			state.toolIndex = make(map[int]int)
		}
		idx := len(state.toolIndex)
		state.toolIndex[event.Index] = idx
		return state.chunk(&providers.StreamChunk{
			ToolCalls: []providers.ToolCall{{
				Index:    idx,
				ID:       event.ContentBlock.ID,
				Type:     providers.ToolTypeFunction,
				Function: providers.FunctionCall{Name: event.ContentBlock.Name},
			}},
		}), nil

	case "content_block_delta":
		if event.Delta == nil {
			return nil, nil
		}
		switch event.Delta.Type {
		case "input_json_delta":
			return state.chunk(&providers.StreamChunk{
				ToolCalls: []providers.ToolCall{{
					Index:    state.toolIndex[event.Index],
					Function: providers.FunctionCall{Arguments: event.Delta.PartialJSON},
				}},
			}), nil
		default:
			if event.Delta.Text == "" {
				return nil, nil
			}
			return state.chunk(&providers.StreamChunk{Delta: event.Delta.Text}), nil
		}

	case "message_delta":
		chunk := &providers.StreamChunk{}
		if event.Delta != nil {
			chunk.FinishReason = normalizeStopReason(event.Delta.StopReason)
		}
		if event.Usage != nil {
			chunk.Usage = &providers.TokenUsage{
				PromptTokens:     state.inputTokens,
				CompletionTokens: event.Usage.OutputTokens,
				TotalTokens:      state.inputTokens + event.Usage.OutputTokens,
			}
		}
		return state.chunk(chunk), nil

	case "message_stop":
		state.stopped = true
		return nil, nil

	case "error":
		if event.Error == nil {
			return nil, fmt.Errorf("stream error event without payload")
		}
		return nil, &providers.ProviderError{
			Message:   event.Error.Type + ": " + event.Error.Message,
			Retryable: event.Error.Type == "overloaded_error" || event.Error.Type == "api_error",
		}

	default:
		// ping, content_block_stop and event types added later carry no content.
		return nil, nil
	}
}

// chunk stamps id, model and the first-chunk role onto c.
func (s *streamState) chunk(c *providers.StreamChunk) *providers.StreamChunk {
	c.ID = s.id
	c.Model = s.model
	if !s.roleSent {
		c.Role = providers.RoleAssistant
		s.roleSent = true
	}
	return c
}

// normalizeStopReason normalizes Anthropic stop reasons to provider-agnostic values.
func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	case "tool_use":
		return providers.FinishReasonToolCalls
	default:
		return reason
	}
}
