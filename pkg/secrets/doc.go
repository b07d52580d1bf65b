// Package secrets resolves ${secret:name} references in provider
// credentials.
//
// A Resolver consults its sources in order and caches resolved values for
// a bounded time. Two sources are provided: FileSource reads one file per
// secret from a directory (the layout used by mounted Kubernetes secrets)
// and EnvSource reads prefixed environment variables.
//
// Basic usage:
//
//	r := secrets.NewResolver([]secrets.Source{
//	    secrets.NewFileSource("/run/secrets"),
//	    secrets.NewEnvSource("CONNECTOR_HUB_SECRET_"),
//	}, 5*time.Minute)
//	key, err := r.Resolve(ctx, "${secret:openai-key}")
//
// Secret names are redacted in log output; values are never logged.
package secrets
