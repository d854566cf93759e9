// Package ws implements the WebSocket hub of `apctl serve`.
//
// Hub manages a set of connected clients and pushes a JSON snapshot to all
// of them whenever Publish is called and on a fixed interval.
//
// New(event, snapshot, interval, log) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker; it blocks until ctx is
// cancelled, then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// snapshot immediately on connect, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "<event>",
//	  "data":  { /* snapshot() encoded as JSON */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. apctl mounts the hub at /ws/stream.
package ws
