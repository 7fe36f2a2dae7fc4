package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - scan event stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Scanning (authenticated)
	mux.HandleFunc("/api/scan", s.requireAPIKey(s.app.ScanHandler.ScanTargetHandler))
	mux.HandleFunc("/api/scan/batch", s.requireAPIKey(s.app.ScanHandler.ScanBatchHandler))

	// API routes - Target registry
	mux.HandleFunc("/api/targets", s.app.TargetHandler.ListHandler)
	mux.HandleFunc("/api/targets/", s.app.TargetHandler.GetHandler)

	// API routes - Session administration (authenticated)
	mux.HandleFunc("/api/sessions", s.requireAPIKey(s.app.SessionHandler.ListHandler))
	mux.HandleFunc("/api/sessions/", s.requireAPIKey(s.app.SessionHandler.DeleteHandler))

	// API routes - Scan history
	mux.HandleFunc("/api/scans/recent", s.app.APIHandler.RecentScansHandler)

	// API routes - Service status
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	return mux
}
