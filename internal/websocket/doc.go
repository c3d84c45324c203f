// Package websocket serves the live dashboard endpoint.
//
// A client connects to /ws and receives a "connect" frame carrying its session
// ID. Each "dashboard:snapshot" frame it sends holds an edited table; the
// session rebuilds the dashboard from it and answers with a "dashboard:update"
// frame, or an "error" frame when the table cannot be charted. Frames are
// answered in the order they arrive. "heartbeat" frames are ignored and the
// server pings idle connections on the configured period.
package websocket
