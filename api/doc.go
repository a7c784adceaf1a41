// Package api provides the HTTP REST API for frontier chapter sessions.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                - Create a session {"chapter_id": "chapter1"}
//   - GET    /api/sessions                - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/unified        - Multi-session view (?sessionIds=a,b or ?chapterId=chapter1)
//   - GET    /api/sessions/{id}           - Session info with state, chapter and narrative log
//   - DELETE /api/sessions/{id}           - Delete a session
//
// Turns:
//   - GET  /api/sessions/{id}/state       - Current game state
//   - POST /api/sessions/{id}/move        - One turn {"direction": "up", "reset": false}
//   - POST /api/sessions/{id}/bulk-move   - Several turns {"moves": ["up","left"]}
//   - POST /api/sessions/{id}/reset       - Restart the chapter on a fresh board
//   - POST /api/sessions/{id}/flag        - Toggle a flag {"x": 2, "y": 3}
//   - GET  /api/sessions/{id}/history     - Paginated move history (?page=&limit=&order=)
//   - GET  /api/sessions/{id}/map.pdf     - Printable field map (?routes=true&reveal=true)
//
// Chapters and progress:
//   - GET  /api/configs                   - List chapters
//   - POST /api/configs                   - Save a chapter, body is JSON or YAML
//   - GET  /api/configs/{name}            - One chapter
//   - GET  /api/progress                  - Collected items, unlocked chapters and the gallery
//
// Live updates:
//   - GET /ws?session={id}                - WebSocket stream of state_update, turn, reset and flag events
//
// Errors are returned as JSON with the HTTP status in the body:
//
//	{"error": "session not found", "code": 404}
//
// Unknown sessions and chapters map to 404, locked chapters to 403, invalid
// directions, out of bounds flags and invalid chapters to 400.
package api
