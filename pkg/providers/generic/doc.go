// Package generic implements a generic OpenAI-compatible provider adapter.
//
// It serves any backend that speaks the OpenAI chat completions format, such
// as Ollama, LM Studio, vLLM or FastChat. The base URL is required and the
// API key is optional. When no models are configured, ListModels asks the
// server's /models endpoint.
//
//	provider, err := generic.NewProvider(providers.ProviderConfig{
//	    Name:    "ollama",
//	    BaseURL: "http://localhost:11434/v1",
//	})
package generic
