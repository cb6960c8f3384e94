// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI renders the state exposed by the session lifecycle controller:
//  1. [FeedView] : Browse the shared story feed, star and unstar stories
//  2. [FavoritesView] : List the signed-in user's favorite stories
//  3. [LoginView] / [SignupView] : Sign in or create an account
//  4. [SubmitView] : Submit a new story, which appears at the top of the feed
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Controller events arrive over the channel from [lifecycle.Controller.Subscribe]; the model re-reads the
// controller's state on each one, so the lists always reflect confirmed or pending favorites.
//
// Keyboard navigation uses vim-style bindings (j/k, f, tab, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
