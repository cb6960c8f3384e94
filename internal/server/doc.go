// Package server is an in-memory stand-in for the remote story service.
//
// It speaks the same JSON contract as the real service so that `snooze serve` can run the client
// end to end without network access, and so that package tests can exercise the HTTP client against
// a real handler through [net/http/httptest]. State lives only in memory and is lost on restart.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] with method-qualified patterns
// ("POST /users/{username}/favorites/{storyId}"), so method filtering and path wildcards are handled
// by the mux itself.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which returns a list of [Route] values so that a
// single type can register several endpoints. Routes marked Auth are wrapped with [RequireToken].
//
// # Backend
//
// [Backend] holds users, bearer tokens, stories (newest first) and favorites. Passwords are stored as
// bcrypt hashes; tests lower the cost with [WithCost] to keep hashing fast.
//
// # Errors
//
// Failures are written as
//
//	{"error": {"status": 409, "message": "username already taken"}}
//
// with 400 for malformed input, 401 for bad credentials or tokens, 403 when acting on another
// user's data, 404 for unknown users or stories, and 409 for a taken username.
package server
