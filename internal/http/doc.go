// Package http provides HTTP handlers and middleware for the office hours API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}.
//     Response: {"token","expires_at","account"} with the token also surfaced
//     via a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted
//     from the Authorization header or session cookie.
//   - POST /accounts: student self-signup; staff accounts require a staff
//     session. GET /accounts lists accounts (staff only). GET /accounts/{id}
//     reads one account, DELETE /accounts/{id} disables it (staff only).
//   - GET /courses, POST /courses, GET /courses/{id}, PUT /courses/{id},
//     DELETE /courses/{id}: course management exchanging the `courseDTO`
//     payload.
//   - GET /courses/{id}/occurrences?from=YYYY-MM-DD&to=YYYY-MM-DD: expands the
//     course's office hours into concrete occurrences.
//   - GET /courses/{id}/calendar.ics: the same expansion as an iCalendar feed.
//   - POST /office-hours, GET /office-hours/{id}, PUT /office-hours/{id},
//     DELETE /office-hours/{id}: office hour definition management.
//   - GET /office-hours/{id}/slots?date=YYYY-MM-DD: free slots of one
//     occurrence.
//   - POST /office-hours/{id}/cancellations: cancels one occurrence date and
//     staff-cancels its registrations.
//   - GET /courses/{id}/office-hours: office hour definitions of one course.
//   - GET /registrations, POST /registrations, GET /registrations/{id},
//     DELETE /registrations/{id}: slot registration management. Students see
//     and cancel only their own.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
