package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/snooze/internal/shared"
	"github.com/urfave/cli/v3"
)

// FavoritesList prints the signed-in user's favorites, newest first.
func (r *Runner) FavoritesList(ctx context.Context, cmd *cli.Command) error {
	ctrl, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	stories := ctrl.FavoriteStories()
	if cmd.Bool("json") {
		return r.writeJSON(stories, cmd.Bool("pretty"))
	}
	return r.writeStories("Favorites", ctrl, stories)
}

// FavoritesAdd marks a story as a favorite. Already-favorite stories are left alone.
func (r *Runner) FavoritesAdd(ctx context.Context, cmd *cli.Command) error {
	return r.setFavorite(ctx, cmd, true)
}

// FavoritesRemove removes a story from favorites.
func (r *Runner) FavoritesRemove(ctx context.Context, cmd *cli.Command) error {
	return r.setFavorite(ctx, cmd, false)
}

func (r *Runner) setFavorite(ctx context.Context, cmd *cli.Command, favorite bool) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: story id", shared.ErrMissingArgument)
	}

	ctrl, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	now, err := ctrl.SetFavorite(ctx, id, favorite)
	if err != nil {
		return err
	}
	return r.writeFavorite(id, now)
}

// FavoritesToggle flips the favorite state of a story.
func (r *Runner) FavoritesToggle(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: story id", shared.ErrMissingArgument)
	}

	ctrl, err := r.signedIn(ctx, cmd)
	if err != nil {
		return err
	}

	now, err := ctrl.ToggleFavorite(ctx, id)
	if err != nil {
		return err
	}
	return r.writeFavorite(id, now)
}

func (r *Runner) writeFavorite(id string, favorite bool) error {
	if favorite {
		return r.writePlain("★ %s is a favorite\n", id)
	}
	return r.writePlain("☆ %s is not a favorite\n", id)
}
