package hub

import (
	"context"

	"llm-dev-ops/connector-hub/pkg/config"
)

// Apply adopts the parts of a reloaded configuration that a running hub
// can change: the log level and the health section. Other changed
// sections are logged and ignored until restart.
func (h *Hub) Apply(change config.Change) {
	if change.Config == nil {
		return
	}

	if change.LogLevel {
		level := change.Config.Telemetry.Logging.Level
		if err := h.logger.SetLevel(level); err != nil {
			h.logger.Warn("ignoring invalid log level", "level", level, "error", err)
		} else {
			h.logger.Info("log level changed", "level", level)
		}
	}

	if change.Health {
		h.monitor.Reconfigure(change.Config.Health)
		h.logger.Info("health monitoring reconfigured",
			"enabled", change.Config.Health.IsEnabled(),
			"interval", change.Config.Health.Interval.String(),
		)
	}

	if len(change.RestartRequired) > 0 {
		h.logger.Warn("configuration changes require a restart", "sections", change.RestartRequired)
	}
}

// Watch applies every reload from w until ctx is cancelled.
func (h *Hub) Watch(ctx context.Context, w *config.Watcher) error {
	return w.Watch(ctx, h.Apply)
}
