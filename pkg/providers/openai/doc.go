// Package openai implements the OpenAI provider adapter.
//
// This package provides an implementation of the providers.Provider interface
// for OpenAI's chat completions API. It supports:
//
//   - Chat completions
//   - Streaming responses (Server-Sent Events)
//   - Function/tool calling
//   - Token usage tracking
//
// # Basic Usage
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:   "openai",
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	resp, err := provider.Complete(ctx, req)
//
// # Streaming
//
// StreamComplete returns a providers.StreamReader that decodes "data:" lines
// until the [DONE] sentinel. A body that ends before [DONE] or a finish
// reason is reported as io.ErrUnexpectedEOF so it is never mistaken for a
// complete stream.
//
// # Errors
//
// The adapter never retries. Failures are returned as classified
// *providers.ProviderError values (5xx, 408 and 429 are retryable) or
// *providers.TimeoutError.
package openai
