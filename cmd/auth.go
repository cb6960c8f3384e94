package main

import (
	"context"
	"errors"

	"github.com/desertthunder/snooze/internal/lifecycle"
	"github.com/desertthunder/snooze/internal/shared"
	"github.com/urfave/cli/v3"
)

type authStatus struct {
	State       string `json:"state"`
	Username    string `json:"username,omitempty"`
	Name        string `json:"name,omitempty"`
	Favorites   int    `json:"favorites"`
	Remembered  bool   `json:"remembered"`
	FeedEntries int    `json:"feedEntries"`
}

// AuthLogin signs in and persists the session for later commands.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	ctrl, err := r.controller(ctx, cmd)
	if err != nil {
		return err
	}

	username := cmd.String("username")
	r.logger.Info("signing in", "username", username)

	sess, err := ctrl.Login(ctx, username, cmd.String("password"))
	if err != nil {
		return err
	}

	return r.writePlain("✓ Signed in as %s (%s)\n", sess.Identity, sess.DisplayName)
}

// AuthSignup creates an account and signs in.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	ctrl, err := r.controller(ctx, cmd)
	if err != nil {
		return err
	}

	username := cmd.String("username")
	r.logger.Info("creating account", "username", username)

	sess, err := ctrl.CreateAccount(ctx, username, cmd.String("password"), cmd.String("name"))
	if err != nil {
		return err
	}

	return r.writePlain("✓ Created account %s (%s)\n", sess.Identity, sess.DisplayName)
}

// AuthLogout forgets the persisted session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	ctrl, err := r.controller(ctx, cmd)
	if err != nil {
		return err
	}

	creds, ok := ctrl.Credentials(ctx)
	if err := ctrl.Logout(ctx); err != nil {
		return err
	}

	if !ok {
		return r.writePlain("Not signed in\n")
	}
	return r.writePlain("✓ Signed out %s\n", creds.Identity)
}

// AuthStatus restores the persisted session and reports who is signed in.
//
// A feed that fails to load is logged, not returned.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	ctrl, err := r.controller(ctx, cmd)
	if err != nil {
		return err
	}

	_, remembered := ctrl.Credentials(ctx)
	if err := ctrl.Startup(ctx); err != nil {
		if !errors.Is(err, shared.ErrNetwork) {
			return err
		}
		r.logger.Warn("failed to load feed", "error", err)
	}

	status := authStatus{
		State:       ctrl.State().String(),
		Remembered:  remembered,
		FeedEntries: len(ctrl.Feed()),
	}
	if sess := ctrl.Session(); sess != nil {
		status.Username = sess.Identity
		status.Name = sess.DisplayName
		status.Favorites = sess.Favorites.Len()
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	if ctrl.State() != lifecycle.Authenticated {
		if remembered {
			return r.writePlain("Not signed in (remembered session was rejected)\n")
		}
		return r.writePlain("Not signed in\n")
	}
	return r.writePlain("Signed in as %s (%s), %d favorites\n", status.Username, status.Name, status.Favorites)
}
