// Package http provides HTTP handlers and middleware for the study group
// scheduling API.
//
// The router exposes the following endpoints:
//   - POST /sessions, GET /sessions/{id}, PUT /sessions/{id},
//     DELETE /sessions/{id}: session lifecycle endpoints exchanging the
//     `sessionDTO` payload defined in session_handler.go. Creation and time
//     changes run conflict detection; a blocking overlap yields 409 with the
//     full conflict analysis in the body.
//   - PUT /sessions/{id}/rsvp: records the acting user's response
//     (going/maybe/not_going).
//   - PUT /sessions/{id}/status: advances the session lifecycle
//     (scheduled -> ongoing -> completed, cancelled from any active state).
//   - DELETE /sessions/{id}/attendees/{userID}: removes an attendee.
//   - GET /conflicts/check?user=&start=&duration=&exclude=: dry-run conflict
//     analysis without mutating anything.
//   - POST /groups, GET /groups/{id}, GET /groups/{id}/sessions: group
//     provisioning and listing.
//
// The acting user is taken from the X-User-ID header; authenticating that
// identity is out of scope for this service and expected from a fronting
// gateway. X-User-Admin: true marks a deployment administrator.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
