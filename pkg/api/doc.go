// Package api exposes the SOP hub over HTTP.
//
// Routes are registered on a gorilla/mux router. Login and health are
// public; every other route sits behind bearer-token authentication.
// Role-gated operations wrap their handlers in RequireOperation or
// RequireAdmin, while per-document visibility is enforced inside the domain
// services. Domain sentinel errors map to HTTP status codes in one place,
// writeDomainError.
package api
