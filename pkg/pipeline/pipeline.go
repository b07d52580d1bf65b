package pipeline

import (
	"context"
	"errors"
	"fmt"

	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Handler processes one call. It sets c.Response or c.Stream on success.
type Handler func(ctx context.Context, c *Context) error

// Middleware wraps the next handler. Code before the call to next runs in
// stage order; code after it runs in reverse order.
type Middleware func(next Handler) Handler

// Stage is a named interceptor.
type Stage struct {
	Name       string
	Middleware Middleware
}

// ErrDuplicateStage is returned by New when two stages share a name.
var ErrDuplicateStage = errors.New("duplicate pipeline stage")

// Pipeline is an immutable ordered chain of stages around a terminal
// handler.
type Pipeline struct {
	names   []string
	handler Handler
}

// New builds a pipeline. stages[0] is the outermost interceptor. The order
// cannot be changed afterwards.
func New(terminal Handler, stages ...Stage) (*Pipeline, error) {
	if terminal == nil {
		return nil, errors.New("pipeline requires a terminal handler")
	}

	seen := make(map[string]bool, len(stages))
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		if s.Name == "" || s.Middleware == nil {
			return nil, fmt.Errorf("invalid pipeline stage %q", s.Name)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStage, s.Name)
		}
		seen[s.Name] = true
		names = append(names, s.Name)
	}

	h := terminal
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i].Middleware(h)
	}
	return &Pipeline{names: names, handler: h}, nil
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	return append([]string(nil), p.names...)
}

// Execute runs c through the chain.
func (p *Pipeline) Execute(ctx context.Context, c *Context) error {
	return p.handler(ctx, c)
}

// Traced wraps a stage so that each invocation runs inside a
// "pipeline.<name>" span.
func Traced(tracer *tracing.Tracer, s Stage) Stage {
	if tracer == nil || !tracer.Enabled() {
		return s
	}
	return Stage{
		Name: s.Name,
		Middleware: func(next Handler) Handler {
			inner := s.Middleware(next)
			return func(ctx context.Context, c *Context) error {
				ctx, span := tracer.Start(ctx, "pipeline."+s.Name)
				defer span.End()
				span.SetAttributes(attribute.String(tracing.AttrStage, s.Name))

				err := inner(ctx, c)
				tracing.SetErrorAttributes(span, err, providers.ErrorKind(err))
				return err
			}
		},
	}
}
