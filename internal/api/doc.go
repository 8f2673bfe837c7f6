// Package api implements the HTTP client for the docchat backend.
//
// # Overview
//
// The backend owns agents, uploaded documents, and model inference; this
// package is the only place that speaks its REST surface. All higher layers
// (the session manager, the TUI) go through Client and never construct HTTP
// requests themselves.
//
// # Endpoints
//
// The Client covers the full backend surface:
//
//   - ListAgents:   GET    /api/agents
//   - CreateAgent:  POST   /api/agents (multipart form)
//   - UpdateAgent:  PUT    /api/agents/{id} (multipart form)
//   - DeleteAgent:  DELETE /api/agents/{id}
//   - GetMessages:  GET    /api/agents/{id}/messages
//   - SendMessage:  POST   /api/agents/{id}/messages
//   - FetchFile:    GET    /api/files/{id}
//   - DeleteFile:   DELETE /api/files/{id}
//   - Login:        POST   /login
//   - Register:     POST   /register
//
// # Authentication
//
// A TokenSource supplies the bearer token attached to every request except
// Login and Register. A 401 response maps to ErrUnauthorized and fires the
// configured OnUnauthorized hook so the session layer can tear itself down
// regardless of which call tripped it.
package api
