package lifecycle

import (
	"fmt"
	"time"

	"github.com/desertthunder/snooze/internal/models"
)

// Event is a notification about a state change, delivered to subscribers.
type Event struct {
	Kind     EventKind
	Identity string        // user the event concerns, if any
	StoryID  string        // story the event concerns, if any
	Story    *models.Story // submitted story for StorySubmitted
	Favorite bool          // resulting membership for toggle events
	Count    int           // number of stories for FeedRefreshed
	Err      error         // cause for failure events
	Message  string        // human-readable message for display
	At       time.Time
}

// EventKind enumerates the notifications the controller emits.
type EventKind int

const (
	Restored EventKind = iota
	LoginSucceeded
	LoginFailed
	LoggedOut
	FeedRefreshed
	StorySubmitted
	ToggleSucceeded
	ToggleFailed
)

func (k EventKind) String() string {
	switch k {
	case Restored:
		return "restored"
	case LoginSucceeded:
		return "login_succeeded"
	case LoginFailed:
		return "login_failed"
	case LoggedOut:
		return "logged_out"
	case FeedRefreshed:
		return "feed_refreshed"
	case StorySubmitted:
		return "story_submitted"
	case ToggleSucceeded:
		return "toggle_succeeded"
	case ToggleFailed:
		return "toggle_failed"
	default:
		return ""
	}
}

func restoredEvent(sess *models.Session) Event {
	return Event{
		Kind:     Restored,
		Identity: sess.Identity,
		Message:  fmt.Sprintf("Welcome back, %s", displayName(sess)),
		At:       time.Now(),
	}
}

func loginSucceededEvent(sess *models.Session) Event {
	return Event{
		Kind:     LoginSucceeded,
		Identity: sess.Identity,
		Message:  fmt.Sprintf("Signed in as %s", displayName(sess)),
		At:       time.Now(),
	}
}

func loginFailedEvent(identity string, err error) Event {
	return Event{
		Kind:     LoginFailed,
		Identity: identity,
		Err:      err,
		Message:  fmt.Sprintf("Sign in failed for %s: %v", identity, err),
		At:       time.Now(),
	}
}

func loggedOutEvent(identity string) Event {
	return Event{
		Kind:     LoggedOut,
		Identity: identity,
		Message:  "Signed out",
		At:       time.Now(),
	}
}

func feedRefreshedEvent(count int) Event {
	return Event{
		Kind:    FeedRefreshed,
		Count:   count,
		Message: fmt.Sprintf("Loaded %d stories", count),
		At:      time.Now(),
	}
}

func storySubmittedEvent(identity string, story *models.Story) Event {
	return Event{
		Kind:     StorySubmitted,
		Identity: identity,
		StoryID:  story.ID,
		Story:    story,
		Message:  fmt.Sprintf("Submitted %q", story.Title),
		At:       time.Now(),
	}
}

func toggleEvent(identity, storyID string, favorite bool, err error) Event {
	if err != nil {
		return Event{
			Kind:     ToggleFailed,
			Identity: identity,
			StoryID:  storyID,
			Favorite: favorite,
			Err:      err,
			Message:  fmt.Sprintf("Could not update favorite: %v", err),
			At:       time.Now(),
		}
	}

	message := "Removed from favorites"
	if favorite {
		message = "Added to favorites"
	}
	return Event{
		Kind:     ToggleSucceeded,
		Identity: identity,
		StoryID:  storyID,
		Favorite: favorite,
		Message:  message,
		At:       time.Now(),
	}
}

func displayName(sess *models.Session) string {
	if sess.DisplayName != "" {
		return sess.DisplayName
	}
	return sess.Identity
}
