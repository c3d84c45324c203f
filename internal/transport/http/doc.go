// Package http implements the HTTP handlers of the stock dashboard.
//
// Handlers stay thin: they parse and validate the request, call the services
// layer and format the response. Failures are written as RFC 7807 problems by
// errors.ErrorHandler; successful JSON responses use the envelope
//
//	{"status": "success", "data": ...}
//
// Routes:
//
//	GET  /                          upload page (HTMLHandler)
//	POST /dashboard                 dashboard page with inline SVG figures
//	POST /api/dashboard             multipart upload, JSON dashboard
//	POST /api/dashboard/upload      data URL upload, JSON dashboard
//	POST /api/dashboard/snapshot    edited table snapshot, JSON dashboard
//	POST /api/dashboard/export      merged dataset as csv or xlsx
//	POST /api/logs                  browser error reports
//	GET  /api/health[/ready|/live]  health checks
//	GET  /api/version               build information
//	GET  /api/metrics/system        runtime statistics
//	GET  /metrics                   Prometheus scrape endpoint
//
// A dashboard whose pipeline fails (no date column, no comparable pair) is not
// an HTTP error: it is returned with state "error" and a message.
package http
