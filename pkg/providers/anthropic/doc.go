// Package anthropic implements the Anthropic provider adapter.
//
// This package provides an implementation of the providers.Provider interface
// for Anthropic's Messages API. It supports:
//
//   - Messages API (Claude 3.x models)
//   - Streaming responses (Server-Sent Events)
//   - Tool calling, including streamed tool input
//   - Token usage tracking
//
// # Request Transformation
//
// System messages are lifted into the top-level "system" field, tool results
// become user messages with tool_result blocks, and max_tokens defaults to
// 4096 because the API requires it. Messages must alternate between user and
// assistant after that transformation.
//
// # Streaming
//
// The stream is a sequence of named events. message_start records the id,
// model and prompt token count, content_block_delta carries text or partial
// tool JSON, message_delta carries the stop reason and message_stop ends the
// stream. A body that ends before message_stop is io.ErrUnexpectedEOF.
package anthropic
