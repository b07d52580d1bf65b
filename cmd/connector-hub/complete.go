package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"llm-dev-ops/connector-hub/pkg/cli"
	"llm-dev-ops/connector-hub/pkg/limits/ratelimit"
	"llm-dev-ops/connector-hub/pkg/providers"
)

var completeFlags struct {
	model       string
	provider    string
	system      string
	caller      string
	maxTokens   int
	temperature float64
	stream      bool
	noCache     bool
}

var completeCmd = &cobra.Command{
	Use:   "complete [prompt]",
	Short: "Send one prompt through the hub",
	Long: `Send a single user prompt through the full pipeline and print the reply.

The prompt is taken from the arguments, or from stdin when none are given.
With --stream chunks are printed as they arrive.

Examples:
  # Provider resolved from the model
  connector-hub complete --model gpt-4o "What is a circuit breaker?"

  # Explicit provider, streamed
  connector-hub complete --provider anthropic --model claude-3-5-sonnet --stream "Hello"

  # Full response as JSON
  echo "Hello" | connector-hub complete --model gpt-4o -o json`,
	RunE: runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)

	completeCmd.Flags().StringVarP(&completeFlags.model, "model", "m", "", "model id (required)")
	completeCmd.Flags().StringVarP(&completeFlags.provider, "provider", "p", "", "provider id (resolved from the model if empty)")
	completeCmd.Flags().StringVar(&completeFlags.system, "system", "", "system prompt")
	completeCmd.Flags().StringVar(&completeFlags.caller, "caller", "", "caller id for rate limiting")
	completeCmd.Flags().IntVar(&completeFlags.maxTokens, "max-tokens", 0, "maximum tokens to generate")
	completeCmd.Flags().Float64Var(&completeFlags.temperature, "temperature", 0, "sampling temperature (0-2)")
	completeCmd.Flags().BoolVar(&completeFlags.stream, "stream", false, "stream the reply")
	completeCmd.Flags().BoolVar(&completeFlags.noCache, "no-cache", false, "bypass the response cache")
	_ = completeCmd.MarkFlagRequired("model")
}

func runComplete(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(cmd, args)
	if err != nil {
		return err
	}

	h, _, err := newHub(cmd)
	if err != nil {
		return err
	}
	defer h.Close()

	req := buildRequest(prompt)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if completeFlags.stream {
		s, err := h.Stream(ctx, req)
		if err != nil {
			return err
		}
		defer s.Close()

		for {
			chunk, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				fmt.Fprintln(out)
				return err
			}
			fmt.Fprint(out, chunk.Delta)
		}
		fmt.Fprintln(out)
		return nil
	}

	resp, err := h.Complete(ctx, req)
	if err != nil {
		return err
	}

	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	if format == cli.FormatText {
		fmt.Fprintln(out, resp.Content)
		return nil
	}
	return cli.NewFormatter(format).FormatTo(out, responseTable{resp})
}

func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", &providers.ValidationError{Field: "prompt", Message: "prompt is empty"}
	}
	return prompt, nil
}

func buildRequest(prompt string) *providers.CompletionRequest {
	req := &providers.CompletionRequest{
		Provider:    completeFlags.provider,
		Model:       completeFlags.model,
		MaxTokens:   completeFlags.maxTokens,
		Temperature: completeFlags.temperature,
	}
	if completeFlags.system != "" {
		req.Messages = append(req.Messages, providers.Message{Role: providers.RoleSystem, Content: completeFlags.system})
	}
	req.Messages = append(req.Messages, providers.Message{Role: providers.RoleUser, Content: prompt})

	if completeFlags.caller != "" {
		req.Metadata = map[string]string{ratelimit.MetadataCaller: completeFlags.caller}
	}
	if completeFlags.noCache {
		req.CachePolicy.Mode = providers.CacheBypass
	}
	return req
}

// responseTable renders a response as one row in CSV output.
type responseTable struct {
	*providers.CompletionResponse
}

func (r responseTable) Table() *cli.Table {
	t := &cli.Table{Header: []string{"PROVIDER", "MODEL", "FINISH_REASON", "PROMPT_TOKENS", "COMPLETION_TOKENS", "CONTENT"}}
	t.Append(
		r.Provider,
		r.Model,
		r.FinishReason,
		fmt.Sprint(r.Usage.PromptTokens),
		fmt.Sprint(r.Usage.CompletionTokens),
		r.Content,
	)
	return t
}
