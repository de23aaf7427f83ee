// Package ai wraps the Gemini generateContent REST API for SOP drafting,
// content cleanup, and suggestion summarization. The key is optional; an
// unconfigured client fails fast with ErrNotConfigured.
package ai
