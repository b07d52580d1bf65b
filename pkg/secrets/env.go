package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvSource reads secrets from environment variables.
//
// The variable name is Prefix followed by the secret name upper-cased, with
// hyphens, dots and slashes replaced by underscores. With prefix
// "CONNECTOR_HUB_SECRET_", "openai-key" is read from
// CONNECTOR_HUB_SECRET_OPENAI_KEY.
type EnvSource struct {
	Prefix string
}

// NewEnvSource creates an environment source.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{Prefix: prefix}
}

// Name implements Source.
func (s *EnvSource) Name() string { return "env" }

// Lookup implements Source. An empty variable counts as unset.
func (s *EnvSource) Lookup(_ context.Context, name string) (string, error) {
	key := s.envName(name)
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: environment variable %s not set", ErrNotFound, key)
	}
	return value, nil
}

var envReplacer = strings.NewReplacer("-", "_", ".", "_", "/", "_")

func (s *EnvSource) envName(name string) string {
	return s.Prefix + strings.ToUpper(envReplacer.Replace(name))
}
