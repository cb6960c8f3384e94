// package services defines interface Service for interacting with the story service HTTP API
package services

import (
	"context"

	"github.com/desertthunder/snooze/internal/models"
)

// Service is the typed façade over the remote story service.
//
// Every error returned wraps one of [shared.ErrAuth], [shared.ErrValidation] or [shared.ErrNetwork].
// Implementations never retry.
type Service interface {
	// Login exchanges identity and secret for a session. Fails with ErrAuth on bad credentials.
	Login(ctx context.Context, identity, secret string) (*models.Session, error)

	// CreateAccount registers a new identity and returns its session.
	// Fails with ErrValidation when the identity is taken or a field is malformed.
	CreateAccount(ctx context.Context, identity, secret, displayName string) (*models.Session, error)

	// Validate checks a persisted credential pair and returns the live session it belongs to.
	Validate(ctx context.Context, creds models.Credentials) (*models.Session, error)

	// FetchFeed returns the shared story feed in server order. Unauthenticated.
	FetchFeed(ctx context.Context) ([]models.Story, error)

	// SubmitStory creates a story and returns it with its server-assigned id.
	SubmitStory(ctx context.Context, sess *models.Session, draft models.StoryDraft) (*models.Story, error)

	// FetchFavorites returns the full story records favorited by the session's user.
	FetchFavorites(ctx context.Context, sess *models.Session) ([]models.Story, error)

	// SetFavorite marks or unmarks storyID as a favorite. Idempotent.
	SetFavorite(ctx context.Context, sess *models.Session, storyID string, favorite bool) error
}
