// Package router is the entry point of a connector hub call.
//
// Submit validates the request, selects the adapter by provider id (or by
// model when the provider is omitted), normalizes a copy of the request,
// fingerprints it and runs it through the pipeline.
//
// Validation modes:
//   - strict: a model outside the provider's model list is rejected
//   - lenient: such a model is logged and the call proceeds
//   - disabled: only required fields are checked
//
// An unknown provider and a request without messages are always rejected
// with a *providers.ValidationError, before any pipeline stage runs.
package router
