package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"llm-dev-ops/connector-hub/pkg/config"
)

type countingSource struct {
	values map[string]string
	calls  atomic.Int32
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Lookup(_ context.Context, name string) (string, error) {
	s.calls.Add(1)
	v, ok := s.values[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func TestEnvSource_Lookup(t *testing.T) {
	t.Setenv("TEST_SECRET_OPENAI_KEY", "sk-env")
	t.Setenv("TEST_SECRET_EMPTY", "")

	src := NewEnvSource("TEST_SECRET_")
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "openai-key", want: "sk-env"},
		{name: "openai.key", want: "sk-env"},
		{name: "empty", wantErr: true},
		{name: "missing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.Lookup(context.Background(), tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("Lookup() error = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Lookup() = %q, want %q", got, tt.want)
			}
		})
	}
}

func writeSecret(t *testing.T, dir, name, value string, perm os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), perm); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("chmod secret: %v", err)
	}
}

func TestFileSource_Lookup(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "openai-key", "sk-file\n", 0o600)
	writeSecret(t, dir, "readonly", "ro", 0o400)
	writeSecret(t, dir, "loose", "nope", 0o644)

	src := NewFileSource(dir)
	ctx := context.Background()

	if got, err := src.Lookup(ctx, "openai-key"); err != nil || got != "sk-file" {
		t.Errorf("Lookup(openai-key) = %q, %v; want sk-file", got, err)
	}
	if got, err := src.Lookup(ctx, "readonly"); err != nil || got != "ro" {
		t.Errorf("Lookup(readonly) = %q, %v; want ro", got, err)
	}

	_, err := src.Lookup(ctx, "loose")
	if err == nil || !strings.Contains(err.Error(), "insecure permissions") {
		t.Errorf("Lookup(loose) error = %v, want insecure permissions", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("insecure file reported as not found")
	}

	if _, err := src.Lookup(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFileSource_RejectsTraversal(t *testing.T) {
	src := NewFileSource(t.TempDir())
	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b", `a\b`} {
		if _, err := src.Lookup(context.Background(), name); err == nil {
			t.Errorf("Lookup(%q) succeeded, want error", name)
		} else if errors.Is(err, ErrNotFound) {
			t.Errorf("Lookup(%q) = ErrNotFound, want invalid name", name)
		}
	}
}

func TestResolver_SourceOrder(t *testing.T) {
	first := &countingSource{values: map[string]string{"a": "from-first"}}
	second := &countingSource{values: map[string]string{"a": "from-second", "b": "only-second"}}
	r := NewResolver([]Source{first, second}, 0)

	ctx := context.Background()
	if got, _ := r.Lookup(ctx, "a"); got != "from-first" {
		t.Errorf("Lookup(a) = %q, want from-first", got)
	}
	if got, _ := r.Lookup(ctx, "b"); got != "only-second" {
		t.Errorf("Lookup(b) = %q, want only-second", got)
	}
	if _, err := r.Lookup(ctx, "c"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(c) error = %v, want ErrNotFound", err)
	}
}

func TestResolver_Cache(t *testing.T) {
	src := &countingSource{values: map[string]string{"key": "v1"}}
	r := NewResolver([]Source{src}, time.Minute)
	ctx := context.Background()

	for range 3 {
		if got, err := r.Lookup(ctx, "key"); err != nil || got != "v1" {
			t.Fatalf("Lookup() = %q, %v", got, err)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("source calls = %d, want 1", n)
	}

	src.values["key"] = "v2"
	r.Refresh()
	if got, _ := r.Lookup(ctx, "key"); got != "v2" {
		t.Errorf("Lookup() after Refresh = %q, want v2", got)
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("source calls = %d, want 2", n)
	}
}

func TestResolver_NoCache(t *testing.T) {
	src := &countingSource{values: map[string]string{"key": "v"}}
	r := NewResolver([]Source{src}, 0)
	for range 2 {
		_, _ = r.Lookup(context.Background(), "key")
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("source calls = %d, want 2", n)
	}
}

func TestResolver_Resolve(t *testing.T) {
	src := &countingSource{values: map[string]string{"user": "alice", "pass": "s3cret"}}
	r := NewResolver([]Source{src}, 0)

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "plain", want: "plain"},
		{input: "${secret:pass}", want: "s3cret"},
		{input: "Bearer ${secret: pass }", want: "Bearer s3cret"},
		{input: "${secret:user}:${secret:pass}", want: "alice:s3cret"},
		{input: "${secret:missing}", wantErr: true},
		{input: "${HOME}", want: "${HOME}"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve() = %q, want error", got)
				}
				if strings.Contains(err.Error(), "missing") {
					t.Errorf("error leaks secret name: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_CanceledContext(t *testing.T) {
	r := NewResolver([]Source{&countingSource{}}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Lookup(ctx, "key"); !errors.Is(err, context.Canceled) {
		t.Errorf("Lookup() error = %v, want context.Canceled", err)
	}
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "shared", "from-file", 0o600)
	t.Setenv("CFG_SECRET_SHARED", "from-env")
	t.Setenv("CFG_SECRET_ENV_ONLY", "env-only")

	r := FromConfig(config.SecretsConfig{EnvPrefix: "CFG_SECRET_", Dir: dir, CacheTTL: time.Minute}, nil)
	ctx := context.Background()

	if got, _ := r.Lookup(ctx, "shared"); got != "from-file" {
		t.Errorf("Lookup(shared) = %q, want from-file", got)
	}
	if got, _ := r.Lookup(ctx, "env-only"); got != "env-only" {
		t.Errorf("Lookup(env-only) = %q, want env-only", got)
	}
}

func TestHasReference(t *testing.T) {
	tests := map[string]bool{
		"":                  false,
		"sk-123":            false,
		"${secret:x}":       true,
		"a ${secret:key} b": true,
		"${secret:}":        false,
		"${SECRET}":         false,
	}
	for in, want := range tests {
		if got := HasReference(in); got != want {
			t.Errorf("HasReference(%q) = %v, want %v", in, got, want)
		}
	}
}
