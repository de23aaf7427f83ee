// Package middleware provides HTTP middleware for authentication, authorization, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware including JWT bearer
// authentication, role checks, request IDs, and token-bucket rate limiting.
//
// # Middleware Components
//
// AuthMiddleware: Bearer token authentication
//
//	m := middleware.NewAuthMiddleware(issuer)
//	router.Use(m.Handler)
//	// Extracts Bearer token, verifies, adds Identity to request context
//
// RequireOperation / RequireAdmin: role-based gating for individual routes
//
//	router.Handle("/sops", middleware.RequireOperation(auth.OpSopCreate)(handler))
//
// RequestID: request ID generation and propagation
//
//	router.Use(middleware.RequestID)
//
// RateLimiter: in-memory token-bucket rate limiting
//
//	limiter := middleware.NewRateLimiter(middleware.AssistRateLimitConfig())
//	router.Use(limiter.Handler)
package middleware
