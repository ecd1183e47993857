// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby handler.
const (
	SlowConsumerError = 3005 // Outbound queue overflowed; the client was not reading fast enough.
)
