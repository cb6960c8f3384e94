// Package services defines the [Service] interface for the remote story service and implements it over HTTP.
//
// # Story Service
//
// [StoryService] speaks JSON over HTTP:
//
//	POST   /login                              → token + user
//	POST   /signup                             → token + user
//	GET    /stories                            → feed
//	POST   /stories                            → created story (bearer)
//	GET    /users/{username}                   → user with favorite stories (bearer)
//	POST   /users/{username}/favorites/{id}    → add favorite (bearer)
//	DELETE /users/{username}/favorites/{id}    → remove favorite (bearer)
//
// Authenticated calls go through an [oauth2.Transport] backed by a static token source, which
// sets the Authorization: Bearer header from the session's auth token.
//
// Requests are paced by an optional [rate.Limiter]; the client never retries.
//
// # Error Handling
//
// Failures are classified into sentinels from the shared package:
//   - [shared.ErrNetwork] : transport failure, cancelled context, 5xx, undecodable body
//   - [shared.ErrAuth] : 401 and 403, or a missing auth token
//   - [shared.ErrValidation] : 400, 404, 409 and 422, or malformed input caught before sending
package services
