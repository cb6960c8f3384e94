package main

import (
	"context"
	"time"

	"github.com/desertthunder/snooze/internal/formatter"
	"github.com/desertthunder/snooze/internal/lifecycle"
	"github.com/desertthunder/snooze/internal/models"
	"github.com/urfave/cli/v3"
)

// StoriesList prints the feed, starring favorites when signed in.
func (r *Runner) StoriesList(ctx context.Context, cmd *cli.Command) error {
	ctrl, err := r.started(ctx, cmd)
	if err != nil {
		return err
	}

	stories := ctrl.Feed()
	if limit := cmd.Int("limit"); limit > 0 && limit < len(stories) {
		stories = stories[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(stories, cmd.Bool("pretty"))
	}
	return r.writeStories("Stories", ctrl, stories)
}

// StoriesSubmit submits a story and prints the created record.
func (r *Runner) StoriesSubmit(ctx context.Context, cmd *cli.Command) error {
	ctrl, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	story, err := ctrl.SubmitStory(ctx, models.StoryDraft{
		Title:  cmd.String("title"),
		URL:    cmd.String("url"),
		Author: cmd.String("author"),
	})
	if err != nil {
		return err
	}

	r.logger.Info("story submitted", "id", story.ID)
	return r.writePlain("✓ Submitted %q (%s)\n", story.Title, story.ID)
}

// StoriesExport renders the feed or favorites with the formatter package.
func (r *Runner) StoriesExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	var ctrl *lifecycle.Controller
	if cmd.Bool("favorites") {
		ctrl, err = r.signedIn(ctx, cmd)
	} else {
		ctrl, err = r.started(ctx, cmd)
	}
	if err != nil {
		return err
	}

	export := &formatter.StoryExport{
		Title:       "Stories",
		Stories:     ctrl.Feed(),
		GeneratedAt: time.Now().UTC(),
	}
	if sess := ctrl.Session(); sess != nil {
		export.Favorites = sess.Favorites
	}
	if cmd.Bool("favorites") {
		export.Title = "Favorites"
		export.Stories = ctrl.FavoriteStories()
	}

	path := cmd.String("output")
	if path == "" {
		return formatter.WriteTo(r.output, export, format)
	}

	written, err := formatter.WriteFile(export, format, path)
	if err != nil {
		return err
	}
	r.logger.Info("export written", "path", written, "stories", len(export.Stories))
	return r.writePlain("✓ Exported %d stories to %s\n", len(export.Stories), written)
}

func (r *Runner) writeStories(title string, ctrl *lifecycle.Controller, stories []models.Story) error {
	r.writePlainHeader(title)
	if len(stories) == 0 {
		return r.writePlain("No stories\n")
	}

	signedIn := ctrl.State() == lifecycle.Authenticated
	for _, s := range stories {
		mark := " "
		if signedIn {
			mark = "☆"
			if ctrl.IsFavorite(s.ID) {
				mark = "★"
			}
		}
		if err := r.writePlain("%s %s (%s)\n  by %s, posted by %s [%s]\n", mark, s.Title, s.Hostname(), s.Author, s.SubmittedBy, s.ID); err != nil {
			return err
		}
	}
	return nil
}
