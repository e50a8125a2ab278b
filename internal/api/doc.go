// Package api implements the HTTP REST API for the fire alarm design service.
//
// This package provides:
//   - A design run endpoint that accepts a device snapshot (YAML or JSON)
//   - Assignment and circuit endpoints for every design edit
//   - Validation reports per circuit and for the whole design
//   - A Prometheus scrape endpoint and a JSON status endpoint
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Status Codes
//
// A committed edit returns 200 with the edit result, even when it carries
// warnings or partial-progress errors. A rejected edit returns 422 with the
// same body. Unknown devices and circuits are 404, duplicates 409 and
// malformed requests 400.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
