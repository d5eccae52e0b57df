// Package api provides the HTTP REST API and WebSocket server for the
// RX Home hub.
//
// It exposes the state store, service registry, event bus and state
// history to user interfaces and integrations:
//
//	GET    /api/v1/health
//	GET    /api/v1/states
//	GET    /api/v1/states/{entity_id}
//	PUT    /api/v1/states/{entity_id}
//	DELETE /api/v1/states/{entity_id}
//	GET    /api/v1/services
//	POST   /api/v1/services/{domain}/{service}         (?blocking=1)
//	POST   /api/v1/events/{event_type}
//	GET    /api/v1/history/{entity_id}                 (?limit=N)
//	GET    /api/v1/ws                                  (?access_token=...)
//
// All routes except /health require a JWT bearer token signed with the
// configured secret. The WebSocket endpoint streams hub events to
// clients, filtered by per-client event type subscriptions.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
