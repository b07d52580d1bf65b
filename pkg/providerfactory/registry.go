package providerfactory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// ErrDuplicateProvider is returned when a provider id is registered twice.
var ErrDuplicateProvider = errors.New("provider already registered")

// ErrUnknownProvider is returned when a provider id is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// modelListTimeout bounds the model listing done at registration.
const modelListTimeout = 5 * time.Second

// Registry maps provider ids to adapter instances.
//
// Registry is thread-safe and can be used concurrently. It owns the
// adapters it holds and closes them in Close.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]providers.Provider
	order     []string
	models    map[string][]string
	logger    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		providers: make(map[string]providers.Provider),
		models:    make(map[string][]string),
		logger:    logger.With("component", "registry"),
	}
}

// Register adds an adapter under its name. It fails fast if the name is
// empty or already taken; an existing registration is never replaced.
func (r *Registry) Register(p providers.Provider) error {
	if p == nil {
		return &providers.ConfigError{Provider: "unknown", Field: "provider", Message: "provider is nil"}
	}
	name := p.GetName()
	if name == "" {
		return &providers.ConfigError{Provider: "unknown", Field: "name", Message: "provider name is required"}
	}

	r.mu.Lock()
	if _, ok := r.providers[name]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.providers[name] = p
	r.order = append(r.order, name)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), modelListTimeout)
	defer cancel()
	if _, err := r.RefreshModels(ctx, name); err != nil {
		r.logger.Warn("model listing failed, accepting any model", "provider", name, "error", err)
	}

	r.logger.Info("provider registered", "provider", name, "type", p.GetType())
	return nil
}

// Add builds an adapter from config and registers it.
func (r *Registry) Add(config providers.ProviderConfig) error {
	r.mu.RLock()
	_, exists := r.providers[config.Name]
	r.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, config.Name)
	}

	p, err := NewProvider(config)
	if err != nil {
		return err
	}
	if err := r.Register(p); err != nil {
		p.Close()
		return err
	}
	return nil
}

// LoadFromConfig builds and registers every configuration.
// Failures are collected and returned together.
func (r *Registry) LoadFromConfig(configs []providers.ProviderConfig) error {
	var errs []error
	for _, config := range configs {
		if err := r.Add(config); err != nil {
			r.logger.Error("failed to load provider", "provider", config.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (providers.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns provider ids in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Models returns the cached model list for a provider. A nil list means
// the provider's models are unknown.
func (r *Registry) Models(name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.providers[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return append([]string(nil), r.models[name]...), nil
}

// RefreshModels asks the adapter for its models and caches them.
func (r *Registry) RefreshModels(ctx context.Context, name string) ([]string, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	models, err := p.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.models[name] = append([]string(nil), models...)
	r.mu.Unlock()
	return models, nil
}

// HasModel reports whether provider serves model. known is false when the
// provider's model list could not be determined.
func (r *Registry) HasModel(provider, model string) (has, known bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models, ok := r.models[provider]
	if !ok || len(models) == 0 {
		return false, false
	}
	for _, m := range models {
		if m == model {
			return true, true
		}
	}
	return false, true
}

// ResolveProvider returns the first provider, in registration order, that
// serves model.
func (r *Registry) ResolveProvider(model string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		for _, m := range r.models[name] {
			if m == model {
				return name, true
			}
		}
	}
	return "", false
}

// Providers returns the adapters in registration order.
func (r *Registry) Providers() []providers.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]providers.Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Close closes every adapter and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range r.order {
		if err := r.providers[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}

	r.providers = make(map[string]providers.Provider)
	r.models = make(map[string][]string)
	r.order = nil

	return errors.Join(errs...)
}
