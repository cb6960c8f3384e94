// Package models defines the domain entities shared by the story feed client.
//
// The package contains two categories of types:
//
// 1. Records returned by the story service
//   - [Story] : A submitted story; [Story.ID] is its only identity key
//   - [StoryDraft] : The user-supplied fields of a story before submission
//   - [User] : The account record returned on login and lookup
//
// 2. Session state owned by the client
//   - [Session] : The authenticated identity with its auth token and favorites
//   - [FavoriteSet] : Story ids marked as favorite by the session's user
//   - [Credentials] : The (auth token, identity) pair persisted between runs
//
// A [Session] without an auth token is never logged in. Favorites are a relation between a
// session and story ids, not a field of [Story].
package models
