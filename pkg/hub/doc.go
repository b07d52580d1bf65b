// Package hub assembles a connector hub from configuration.
//
// A Hub is explicitly constructed and owns everything it uses: the adapter
// registry, cache store, rate limiters, circuit breakers, health monitor,
// pipeline, router and metrics registry. Two hubs in one process share no
// state.
//
// Typical use:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//		return err
//	}
//	h, err := hub.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer h.Close()
//
//	if err := h.Start(ctx); err != nil {
//		return err
//	}
//	resp, err := h.Complete(ctx, &providers.CompletionRequest{
//		Model:    "gpt-4o-mini",
//		Messages: []providers.Message{{Role: "user", Content: "hello"}},
//	})
package hub
