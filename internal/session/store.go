// Package session persists and restores the authenticated identity across runs.
//
// [Store] only reads and writes the (auth token, identity) pair on a [repositories.Medium].
// It never talks to the story service: whether a restored pair is still valid is decided by
// the [Validator] the caller injects.
package session

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/repositories"
)

// Keys written to the medium.
const (
	KeyAuthToken = "auth_token"
	KeyIdentity  = "identity"
)

// Validator turns a persisted credential pair into a live session, or rejects it.
type Validator interface {
	Validate(ctx context.Context, creds models.Credentials) (*models.Session, error)
}

// ValidatorFunc adapts a function to [Validator].
type ValidatorFunc func(ctx context.Context, creds models.Credentials) (*models.Session, error)

func (f ValidatorFunc) Validate(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	return f(ctx, creds)
}

// Store persists the session credential pair.
type Store struct {
	medium    repositories.Medium
	validator Validator
	logger    *log.Logger
}

// NewStore creates a [Store] over medium. validator may be nil, in which case [Store.Restore]
// never returns a session.
func NewStore(medium repositories.Medium, validator Validator, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{medium: medium, validator: validator, logger: logger.WithPrefix("session")}
}

// Credentials reads the persisted pair without validating it.
func (s *Store) Credentials(ctx context.Context) (models.Credentials, bool) {
	token, ok, err := s.medium.Get(ctx, KeyAuthToken)
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("failed to read auth token", "error", err)
		}
		return models.Credentials{}, false
	}

	identity, ok, err := s.medium.Get(ctx, KeyIdentity)
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("failed to read identity", "error", err)
		}
		return models.Credentials{}, false
	}

	creds := models.Credentials{AuthToken: token, Identity: identity}
	return creds, creds.Complete()
}

// Restore reads the persisted pair and validates it.
//
// It fails softly: absence, read errors and validation failures all return (nil, false).
func (s *Store) Restore(ctx context.Context) (*models.Session, bool) {
	creds, ok := s.Credentials(ctx)
	if !ok || s.validator == nil {
		return nil, false
	}

	sess, err := s.validator.Validate(ctx, creds)
	if err != nil {
		s.logger.Info("persisted session rejected", "identity", creds.Identity, "error", err)
		return nil, false
	}
	if !sess.LoggedIn() || sess.Identity != creds.Identity {
		s.logger.Info("persisted session did not validate", "identity", creds.Identity)
		return nil, false
	}
	return sess, true
}

// Persist writes the credential pair of sess, overwriting any prior entry.
func (s *Store) Persist(ctx context.Context, sess *models.Session) error {
	if err := s.medium.Set(ctx, KeyAuthToken, sess.AuthToken); err != nil {
		return err
	}
	if err := s.medium.Set(ctx, KeyIdentity, sess.Identity); err != nil {
		return err
	}

	s.logger.Debug("session persisted", "identity", sess.Identity)
	return nil
}

// Clear removes all persisted session data.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.medium.Delete(ctx, KeyAuthToken, KeyIdentity); err != nil {
		return err
	}

	s.logger.Debug("session cleared")
	return nil
}
