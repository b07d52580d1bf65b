package pipeline

import (
	"context"
	"errors"

	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/stream"
)

// Invoke returns the terminal handler that calls the selected adapter.
// Streaming calls are opened through mux; the request timeout bounds a
// complete call or the opening of a stream.
func Invoke(mux *stream.Multiplexer) Handler {
	return func(ctx context.Context, c *Context) error {
		req := c.Request
		if c.Streaming() {
			s, err := mux.Open(ctx, func(tctx context.Context) (providers.StreamReader, error) {
				return c.Provider.StreamComplete(tctx, req)
			}, stream.Options{Provider: req.Provider, Record: c.Record, OpenTimeout: req.Timeout})
			if err != nil {
				return err
			}
			c.Stream = s
			return nil
		}

		resp, err := complete(ctx, c.Provider, req)
		if err != nil {
			return err
		}
		c.Response = resp
		return nil
	}
}

func complete(ctx context.Context, p providers.Provider, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if req.Timeout <= 0 {
		return p.Complete(ctx, req)
	}

	callCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	resp, err := p.Complete(callCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var te *providers.TimeoutError
		if !errors.As(err, &te) {
			err = &providers.TimeoutError{Provider: req.Provider, Timeout: req.Timeout}
		}
	}
	return resp, err
}
