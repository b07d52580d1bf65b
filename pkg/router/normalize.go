package router

import (
	"fmt"
	"slices"
	"strings"

	"llm-dev-ops/connector-hub/pkg/config"
	"llm-dev-ops/connector-hub/pkg/providers"
)

// validate checks required fields and, unless validation is disabled,
// generation parameters. It runs on the normalized request.
func validate(req *providers.CompletionRequest, mode string) error {
	if len(req.Messages) == 0 {
		return &providers.ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	if req.Model == "" {
		return &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	if mode == config.ValidationDisabled {
		return nil
	}

	for i, m := range req.Messages {
		if !providers.ValidRole(m.Role) {
			return &providers.ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unknown role %q", m.Role),
			}
		}
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return &providers.ValidationError{Field: "temperature", Message: "must be between 0 and 2"}
	}
	if req.TopP < 0 || req.TopP > 1 {
		return &providers.ValidationError{Field: "top_p", Message: "must be between 0 and 1"}
	}
	if req.MaxTokens < 0 {
		return &providers.ValidationError{Field: "max_tokens", Message: "must not be negative"}
	}
	if req.Timeout < 0 {
		return &providers.ValidationError{Field: "timeout", Message: "must not be negative"}
	}
	return nil
}

// normalize rewrites req in place into its canonical form so that
// equivalent requests fingerprint identically. req must be a clone.
func normalize(req *providers.CompletionRequest, adapter providers.Provider) {
	req.Model = strings.TrimSpace(req.Model)
	for i := range req.Messages {
		req.Messages[i].Role = strings.ToLower(strings.TrimSpace(req.Messages[i].Role))
	}

	if len(req.Stop) > 0 {
		stop := slices.Clone(req.Stop)
		slices.Sort(stop)
		req.Stop = slices.Compact(stop)
	}

	if req.MaxTokens == 0 {
		if d, ok := adapter.(providers.ModelDefaulter); ok {
			req.MaxTokens = d.DefaultMaxTokens()
		}
	}
}
