// Package tokens estimates token counts for completion requests and
// responses.
//
// Estimates are used where a provider does not report usage, so that token
// quotas still bind. They are character based with per-model-family ratios:
//
//   - gpt-4, gpt-3.5: ~4 characters per token
//   - claude: ~3.5 characters per token
//   - everything else: 4 characters per token
//
// # Usage
//
//	estimator := tokens.NewSimpleEstimator(nil)
//	est := estimator.EstimateRequest(req)
//	fmt.Println(est.PromptTokens, est.TotalTokens)
package tokens
