// Package huddle is a small social network server: posts, likes, comments,
// replies, reposts, follows, notifications and chat, with a WebSocket relay
// that pushes new posts, chat and notifications to connected clients.
//
// The binaries live under cmd/:
//
// - cmd/server: the HTTP API and relay
// - cmd/huddle: the command-line client
// - cmd/seed: sample data for development and tests
// - cmd/migrate: schema creation
//
// Packages live under internal/:
//
// - internal/handlers: HTTP handlers and route registration
// - internal/auth: registration, login and JWT validation
// - internal/social: posts, likes, comments, replies, shares, follows and notifications
// - internal/chat: chat rooms and the chat relay handler
// - internal/websocket: the topic relay (hub, clients, upgrade handler)
// - internal/repository: query helpers over the gorm models
// - internal/cache: Redis-backed unread notification counts
// - internal/middleware: logging, metrics, tracing, request IDs and rate limiting
// - internal/client: Go SDK for the HTTP API and relay, plus client-side feed and unread state
// - internal/cli: the huddle command tree
package huddle
