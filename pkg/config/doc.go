// Package config loads, defaults and validates connector hub configuration.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("connector-hub.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("connector-hub.yaml")
//
// ${VAR} references inside the file are expanded from the environment
// before parsing. ${secret:name} references are kept verbatim; the hub
// resolves them through package secrets when it builds its adapters.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CONNECTOR_HUB_SECTION_FIELD:
//
//   - CONNECTOR_HUB_CACHE_BACKEND overrides cache.backend
//   - CONNECTOR_HUB_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//   - CONNECTOR_HUB_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// A provider without an api_key also reads <PROVIDER>_API_KEY, e.g.
// OPENAI_API_KEY.
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// All field errors are collected into one ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - cache.redis_addr: redis address is required for the redis backend
//	  - pipeline.stages[1]: stage "logging" is out of order: stages run as logging -> ratelimit -> cache -> resilience -> metrics
//
// # Reloading
//
// A Watcher reloads the file when it changes. Only the log level and the
// health probe settings apply to a running hub; other changes are reported
// as needing a restart.
//
// # Example Configuration
//
//	providers:
//	  openai:
//	    api_key: "${OPENAI_API_KEY}"
//	  local:
//	    type: generic
//	    base_url: "http://localhost:11434/v1"
//	    models: [llama3]
//
//	routing:
//	  validation_mode: strict
//	  default_provider: openai
//
//	cache:
//	  backend: sqlite
//	  path: data/cache.db
//	  default_ttl: 10m
//
//	rate_limits:
//	  default:
//	    requests_per_minute: 600
//	  max_wait: 200ms
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
