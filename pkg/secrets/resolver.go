package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// refPattern matches ${secret:name} references.
var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// maxCached bounds the number of resolved values held at once.
const maxCached = 1024

// Resolver resolves secret names against an ordered list of sources.
//
// The first source that returns a value wins. Resolved values are cached for
// the configured TTL; a TTL of zero disables caching.
type Resolver struct {
	sources []Source
	cache   *expirable.LRU[string, string]
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a resolver over sources.
func NewResolver(sources []Source, ttl time.Duration, opts ...Option) *Resolver {
	r := &Resolver{
		sources: sources,
		logger:  slog.Default(),
	}
	if ttl > 0 {
		r.cache = expirable.NewLRU[string, string](maxCached, nil, ttl)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the value of the named secret.
func (r *Resolver) Lookup(ctx context.Context, name string) (string, error) {
	if r.cache != nil {
		if value, ok := r.cache.Get(name); ok {
			r.logger.DebugContext(ctx, "secret cache hit", "name", redactName(name))
			return value, nil
		}
	}

	var errs []error
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		value, err := src.Lookup(ctx, name)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				r.logger.WarnContext(ctx, "secret source failed",
					"source", src.Name(),
					"name", redactName(name),
					"error", err,
				)
			}
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		if r.cache != nil {
			r.cache.Add(name, value)
		}
		r.logger.DebugContext(ctx, "secret resolved", "source", src.Name(), "name", redactName(name))
		return value, nil
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("secret %s: %w (no sources configured)", redactName(name), ErrNotFound)
	}
	return "", fmt.Errorf("secret %s could not be resolved: %w", redactName(name), errors.Join(errs...))
}

// Resolve replaces every ${secret:name} reference in input. Input without
// references is returned unchanged. The first failed lookup aborts.
func (r *Resolver) Resolve(ctx context.Context, input string) (string, error) {
	if !HasReference(input) {
		return input, nil
	}

	var firstErr error
	out := refPattern.ReplaceAllStringFunc(input, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := strings.TrimSpace(refPattern.FindStringSubmatch(match)[1])
		value, err := r.Lookup(ctx, name)
		if err != nil {
			firstErr = err
			return match
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Refresh drops every cached value so the next lookup hits the sources.
func (r *Resolver) Refresh() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

// HasReference reports whether s contains a ${secret:name} reference.
func HasReference(s string) bool {
	return strings.Contains(s, "${secret:") && refPattern.MatchString(s)
}

// redactName keeps the first and last character of a secret name.
func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:1] + "***" + name[len(name)-1:]
}
