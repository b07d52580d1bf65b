package secrets

import (
	"log/slog"

	"llm-dev-ops/connector-hub/pkg/config"
)

// FromConfig builds the resolver described by cfg: the directory source
// first when a directory is set, then the environment.
func FromConfig(cfg config.SecretsConfig, logger *slog.Logger) *Resolver {
	var sources []Source
	if cfg.Dir != "" {
		sources = append(sources, NewFileSource(cfg.Dir))
	}
	sources = append(sources, NewEnvSource(cfg.EnvPrefix))

	var opts []Option
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return NewResolver(sources, cfg.CacheTTL, opts...)
}
