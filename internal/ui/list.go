package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/snooze/internal/models"
)

var (
	_ list.Item = storyItem{}
)

// storyItem wraps [models.Story] to implement [list.Item].
type storyItem struct {
	story    models.Story
	signedIn bool
	favorite bool
	pending  bool
}

func (i storyItem) FilterValue() string { return i.story.Title }

func (i storyItem) Title() string {
	if !i.signedIn {
		return i.story.Title
	}

	star := "☆"
	if i.favorite {
		star = "★"
	}
	if i.pending {
		star += "…"
	}
	return fmt.Sprintf("%s %s", star, i.story.Title)
}

func (i storyItem) Description() string {
	parts := []string{}
	if host := i.story.Hostname(); host != "" {
		parts = append(parts, host)
	}
	if i.story.Author != "" {
		parts = append(parts, "by "+i.story.Author)
	}
	if i.story.SubmittedBy != "" {
		parts = append(parts, "posted by "+i.story.SubmittedBy)
	}
	return strings.Join(parts, " • ")
}
