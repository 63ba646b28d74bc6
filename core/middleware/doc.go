// Package middleware contains HTTP middleware for the Fiber application.
//
// It provides cross-cutting concerns that sit between the request and the handler.
//
// # Components
//
//   - auth: API key validation for the ingestion endpoints.
//   - rayid: a unique request ID (RayID) for every incoming request,
//     stored in the context locals and echoed in the response headers for tracing.
//
// These middleware components are registered globally in the serve command.
package middleware
