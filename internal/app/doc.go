// Package app wires the stock dashboard server together and runs it.
//
// New builds every component from a loaded configuration: OpenTelemetry
// providers and dashboard metrics, the dashboard and health services, the SVG
// renderer, the WebSocket hub, and the chi router with its middleware chain.
// The /ws endpoint sits outside the middleware group so its ResponseWriter
// stays hijackable.
//
// Run serves until the context is cancelled or SIGINT/SIGTERM arrives. On
// shutdown the WebSocket sessions are closed first, then the HTTP server
// drains, then telemetry is flushed. Errors are returned to the caller; the
// package never calls os.Exit.
package app
