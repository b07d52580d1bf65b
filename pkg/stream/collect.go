package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// Collect drains s into a single response and closes it. A terminal error
// chunk is returned as its error.
func Collect(ctx context.Context, s *Stream) (*providers.CompletionResponse, error) {
	defer s.Close()

	resp := &providers.CompletionResponse{Role: providers.RoleAssistant}
	var content strings.Builder
	var calls []providers.ToolCall

	for {
		chunk, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk.FinishReason == providers.FinishReasonError {
			return nil, chunk.Err
		}

		if resp.ID == "" {
			resp.ID = chunk.ID
		}
		if resp.Model == "" {
			resp.Model = chunk.Model
		}
		if chunk.Role != "" {
			resp.Role = chunk.Role
		}
		content.WriteString(chunk.Delta)
		calls = MergeToolCalls(calls, chunk.ToolCalls)
		if chunk.FinishReason != "" {
			resp.FinishReason = chunk.FinishReason
		}
		if chunk.Usage != nil {
			resp.Usage = *chunk.Usage
		}
	}

	resp.Content = content.String()
	resp.ToolCalls = calls
	resp.Created = time.Now()
	return resp, nil
}

// MergeToolCalls folds streamed tool call deltas into complete calls,
// keyed by their index.
func MergeToolCalls(calls []providers.ToolCall, deltas []providers.ToolCall) []providers.ToolCall {
	for _, d := range deltas {
		pos := -1
		for i := range calls {
			if calls[i].Index == d.Index {
				pos = i
				break
			}
		}
		if pos < 0 {
			calls = append(calls, providers.ToolCall{Index: d.Index, Type: providers.ToolTypeFunction})
			pos = len(calls) - 1
		}
		c := &calls[pos]
		if d.ID != "" {
			c.ID = d.ID
		}
		if d.Type != "" {
			c.Type = d.Type
		}
		if d.Function.Name != "" {
			c.Function.Name = d.Function.Name
		}
		c.Function.Arguments += d.Function.Arguments
	}
	return calls
}
