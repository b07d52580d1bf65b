package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// TestConfig creates a provider config pointing at baseURL.
func TestConfig(name, providerType, baseURL string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:    name,
		Type:    providerType,
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}
}

// TestRequest creates a single-turn request for model.
func TestRequest(model, prompt string) *providers.CompletionRequest {
	return &providers.CompletionRequest{
		Model:    model,
		Messages: []providers.Message{{Role: providers.RoleUser, Content: prompt}},
	}
}

// OpenAIResponse creates a chat completion response body.
func OpenAIResponse(content, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// OpenAIStreamEvent creates one "data:" line of a chat completion stream.
func OpenAIStreamEvent(delta, finishReason string) string {
	choice := map[string]interface{}{
		"index": 0,
		"delta": map[string]interface{}{"content": delta},
	}
	if finishReason != "" {
		choice["finish_reason"] = finishReason
	}
	chunk := map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "gpt-4",
		"choices": []map[string]interface{}{choice},
	}
	b, _ := json.Marshal(chunk)
	return "data: " + string(b)
}

// OpenAIDone terminates an OpenAI stream.
const OpenAIDone = "data: [DONE]"

// OpenAIStream builds a complete stream of deltas ending in "stop".
func OpenAIStream(deltas ...string) []string {
	events := make([]string, 0, len(deltas)+1)
	for i, d := range deltas {
		finish := ""
		if i == len(deltas)-1 {
			finish = "stop"
		}
		events = append(events, OpenAIStreamEvent(d, finish))
	}
	return append(events, OpenAIDone)
}

// AnthropicResponse creates a messages API response body.
func AnthropicResponse(content, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":   "msg_123",
		"type": "message",
		"role": "assistant",
		"content": []map[string]interface{}{
			{"type": "text", "text": content},
		},
		"model":       model,
		"stop_reason": "end_turn",
		"usage": map[string]interface{}{
			"input_tokens":  10,
			"output_tokens": 20,
		},
	}
}

// AnthropicEvent creates one named Server-Sent Event.
func AnthropicEvent(eventType string, data interface{}) string {
	b, _ := json.Marshal(data)
	return fmt.Sprintf("event: %s\ndata: %s", eventType, b)
}

// AnthropicStream builds a complete messages stream for the given text deltas.
func AnthropicStream(model string, deltas ...string) []string {
	events := []string{
		AnthropicEvent("message_start", map[string]interface{}{
			"type": "message_start",
			"message": map[string]interface{}{
				"id": "msg_123", "type": "message", "role": "assistant", "model": model,
				"usage": map[string]interface{}{"input_tokens": 10, "output_tokens": 0},
			},
		}),
		AnthropicEvent("content_block_start", map[string]interface{}{
			"type": "content_block_start", "index": 0,
			"content_block": map[string]interface{}{"type": "text", "text": ""},
		}),
		AnthropicEvent("ping", map[string]interface{}{"type": "ping"}),
	}
	for _, d := range deltas {
		events = append(events, AnthropicEvent("content_block_delta", map[string]interface{}{
			"type": "content_block_delta", "index": 0,
			"delta": map[string]interface{}{"type": "text_delta", "text": d},
		}))
	}
	events = append(events,
		AnthropicEvent("content_block_stop", map[string]interface{}{"type": "content_block_stop", "index": 0}),
		AnthropicEvent("message_delta", map[string]interface{}{
			"type":  "message_delta",
			"delta": map[string]interface{}{"stop_reason": "end_turn"},
			"usage": map[string]interface{}{"output_tokens": 20},
		}),
		AnthropicEvent("message_stop", map[string]interface{}{"type": "message_stop"}),
	)
	return events
}

// ErrorResponse creates an error response with the given status.
func ErrorResponse(statusCode int, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body: map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
				"type":    "invalid_request_error",
			},
		},
	}
}

// ServerError creates a 500 response.
func ServerError() MockResponse {
	return ErrorResponse(http.StatusInternalServerError, "Internal server error")
}

// RateLimited creates a 429 response with a Retry-After header.
func RateLimited(retryAfter int) MockResponse {
	r := ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	r.Headers = map[string]string{"Retry-After": fmt.Sprintf("%d", retryAfter)}
	return r
}
