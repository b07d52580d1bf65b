package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"llm-dev-ops/connector-hub/internal/upstream"
	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/cache/memory"
	"llm-dev-ops/connector-hub/pkg/config"
	"llm-dev-ops/connector-hub/pkg/hub"
	"llm-dev-ops/connector-hub/pkg/providerfactory"
	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/providers/anthropic"
	"llm-dev-ops/connector-hub/pkg/providers/mock"
	"llm-dev-ops/connector-hub/pkg/providers/openai"
	"llm-dev-ops/connector-hub/pkg/telemetry/logging"
)

// Target IDs.
const (
	TargetProviderResolution    = "provider-resolution"
	TargetRequestTransformation = "request-transformation"
	TargetMiddlewarePipeline    = "middleware-pipeline"
	TargetCacheOperations       = "cache-operations"
	TargetStreamParsing         = "stream-parsing"
)

// Target is one named benchmark.
type Target struct {
	ID  string
	Run func(ctx context.Context) (map[string]float64, error)
}

// Targets returns every benchmark, each measured with opts.
func Targets(opts Options) []Target {
	return []Target{
		{ID: TargetProviderResolution, Run: func(ctx context.Context) (map[string]float64, error) { return providerResolution(ctx, opts) }},
		{ID: TargetRequestTransformation, Run: func(ctx context.Context) (map[string]float64, error) { return requestTransformation(ctx, opts) }},
		{ID: TargetMiddlewarePipeline, Run: func(ctx context.Context) (map[string]float64, error) { return middlewarePipeline(ctx, opts) }},
		{ID: TargetCacheOperations, Run: func(ctx context.Context) (map[string]float64, error) { return cacheOperations(ctx, opts) }},
		{ID: TargetStreamParsing, Run: func(ctx context.Context) (map[string]float64, error) { return streamParsing(ctx, opts) }},
	}
}

// ByPrefix returns the targets whose ID starts with prefix.
func ByPrefix(targets []Target, prefix string) []Target {
	var out []Target
	for _, t := range targets {
		if strings.HasPrefix(t.ID, prefix) {
			out = append(out, t)
		}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRequest(i int) *providers.CompletionRequest {
	return &providers.CompletionRequest{
		Model: "mock-small",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "You are a concise assistant."},
			{Role: providers.RoleUser, Content: "Summarize request " + strconv.Itoa(i)},
		},
		Temperature: 0.7,
		MaxTokens:   256,
		Stop:        []string{"\n\n"},
	}
}

// providerResolution measures model to adapter lookup over a registry
// holding several adapters.
func providerResolution(ctx context.Context, opts Options) (map[string]float64, error) {
	registry := providerfactory.NewRegistry(quietLogger())
	defer registry.Close()

	var models []string
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("provider-%d", i)
		pm := []string{name + "-small", name + "-large"}
		if err := registry.Register(mock.New(name, mock.WithModels(pm...))); err != nil {
			return nil, err
		}
		models = append(models, pm...)
	}

	i := 0
	return measure(ctx, opts, func(ctx context.Context) error {
		model := models[i%len(models)]
		i++
		name, ok := registry.ResolveProvider(model)
		if !ok {
			return fmt.Errorf("model %q did not resolve", model)
		}
		_, err := registry.Get(name)
		return err
	})
}

// requestTransformation measures encoding a request for the OpenAI and
// Anthropic wire formats.
func requestTransformation(ctx context.Context, opts Options) (map[string]float64, error) {
	req := sampleRequest(0)
	return measure(ctx, opts, func(ctx context.Context) error {
		if _, err := openai.EncodeRequest(req); err != nil {
			return err
		}
		_, err := anthropic.EncodeRequest(req)
		return err
	})
}

// middlewarePipeline measures a full hub Submit against a zero-latency mock
// with caching off, so every call crosses every stage and the adapter.
func middlewarePipeline(ctx context.Context, opts Options) (map[string]float64, error) {
	cfg := config.Default()
	disabled := false
	cfg.Cache.Enabled = &disabled
	cfg.Health.Enabled = &disabled

	logger, err := logging.New(logging.Config{Level: "error", Format: "json", Writer: io.Discard})
	if err != nil {
		return nil, err
	}
	h, err := hub.New(cfg, hub.WithLogger(logger), hub.WithProviders(mock.New("mock")))
	if err != nil {
		return nil, err
	}
	defer h.Close()

	req := sampleRequest(0)
	return measure(ctx, opts, func(ctx context.Context) error {
		_, err := h.Complete(ctx, req)
		return err
	})
}

// cacheOperations measures fingerprinting plus a set and get against the
// in-memory backend.
func cacheOperations(ctx context.Context, opts Options) (map[string]float64, error) {
	store := cache.NewStore(memory.New(1024), cache.WithDefaultTTL(time.Minute), cache.WithLogger(quietLogger()))
	defer store.Close()

	reqs := make([]*providers.CompletionRequest, 64)
	for i := range reqs {
		reqs[i] = sampleRequest(i)
	}
	resp := &providers.CompletionResponse{
		ID:           "bench",
		Model:        "mock-small",
		Content:      "cached content",
		FinishReason: providers.FinishReasonStop,
	}

	i := 0
	return measure(ctx, opts, func(ctx context.Context) error {
		req := reqs[i%len(reqs)]
		i++
		fp, err := cache.Fingerprint(req)
		if err != nil {
			return err
		}
		if err := store.Set(ctx, fp, cache.NewResponseEntry(fp, resp, 0), 0); err != nil {
			return err
		}
		e, err := store.Get(ctx, fp)
		if err != nil {
			return err
		}
		if e == nil {
			return errors.New("entry missing after set")
		}
		return nil
	})
}

// streamParsing measures decoding an OpenAI and an Anthropic SSE body of
// sixteen text deltas each.
func streamParsing(ctx context.Context, opts Options) (map[string]float64, error) {
	deltas := make([]string, 16)
	for i := range deltas {
		deltas[i] = "token" + strconv.Itoa(i) + " "
	}
	openaiBody := strings.Join(upstream.OpenAIStream(deltas...), "\n\n") + "\n\n"
	anthropicBody := strings.Join(upstream.AnthropicStream("claude-3-haiku", deltas...), "\n\n") + "\n\n"

	return measure(ctx, opts, func(ctx context.Context) error {
		if err := drain(ctx, openai.NewStreamDecoder("openai", strings.NewReader(openaiBody))); err != nil {
			return fmt.Errorf("openai: %w", err)
		}
		if err := drain(ctx, anthropic.NewStreamDecoder("anthropic", strings.NewReader(anthropicBody))); err != nil {
			return fmt.Errorf("anthropic: %w", err)
		}
		return nil
	})
}

func drain(ctx context.Context, r providers.StreamReader) error {
	defer r.Close()
	n := 0
	for {
		_, err := r.Read(ctx)
		if err == io.EOF {
			if n == 0 {
				return errors.New("no chunks decoded")
			}
			return nil
		}
		if err != nil {
			return err
		}
		n++
	}
}
