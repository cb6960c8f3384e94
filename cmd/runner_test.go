package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/repositories"
	"github.com/desertthunder/snooze/internal/server"
	"github.com/desertthunder/snooze/internal/services"
	"github.com/desertthunder/snooze/internal/session"
	"github.com/desertthunder/snooze/internal/shared"
	tu "github.com/desertthunder/snooze/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			svc := tu.NewMockService()
			medium := repositories.NewMemoryMedium()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Service:    svc,
				Medium:     medium,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.service != svc {
				t.Error("expected service to be set")
			}
			if runner.medium != medium {
				t.Error("expected medium to be set")
			}
			if runner.ctrl != nil {
				t.Error("expected controller to be built lazily")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				HTTPClient: nil,
			})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes formatted text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s\n", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("writePlainln surrounds with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("next"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\nnext\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("text")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "stories", "favorites", "serve", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("command %d: expected %s, got %s", i, name, commands[i].Name)
			}
		}
	})

	t.Run("Close without controller", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if err := runner.Close(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// harness runs commands against an in-process story service, sharing one medium
// across runs the way separate invocations share a database.
type harness struct {
	t       *testing.T
	backend *server.Backend
	service services.Service
	medium  *repositories.MemoryMedium
	story   models.Story
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := shared.NewLogger(io.Discard)
	backend := server.NewBackend(server.WithCost(bcrypt.MinCost))
	ts := httptest.NewServer(server.NewHandler(backend, logger))
	t.Cleanup(ts.Close)

	if _, _, err := backend.Signup("ada", "hunter2", "Ada Lovelace"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	story, err := backend.AddStory("ada", models.StoryDraft{
		Title:  "Notes on the Analytical Engine",
		URL:    "https://www.example.com/engine",
		Author: "Ada",
	})
	if err != nil {
		t.Fatalf("add story failed: %v", err)
	}

	return &harness{
		t:       t,
		backend: backend,
		service: services.NewStoryService(services.StoryServiceOpts{
			BaseURL:    ts.URL,
			HTTPClient: ts.Client(),
			Logger:     logger,
		}),
		medium: repositories.NewMemoryMedium(),
		story:  story,
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Service: h.service,
		Medium:  h.medium,
		Logger:  shared.NewLogger(io.Discard),
		Output:  output,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:      "snooze",
		Commands:  runner.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	err := app.Run(context.Background(), append([]string{"snooze"}, args...))
	return output.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("snooze %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func (h *harness) login() {
	h.t.Helper()
	h.mustRun("auth", "login", "-u", "ada", "-p", "hunter2")
}

func TestAuthCommands(t *testing.T) {
	t.Run("login persists credentials", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun("auth", "login", "-u", "ada", "-p", "hunter2")
		if !strings.Contains(out, "Signed in as ada (Ada Lovelace)") {
			t.Errorf("unexpected output %q", out)
		}

		token, ok, _ := h.medium.Get(context.Background(), session.KeyAuthToken)
		if !ok || token == "" {
			t.Error("expected token to be persisted")
		}
		identity, _, _ := h.medium.Get(context.Background(), session.KeyIdentity)
		if identity != "ada" {
			t.Errorf("expected identity ada, got %q", identity)
		}
	})

	t.Run("login with wrong password", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.run("auth", "login", "-u", "ada", "-p", "wrong")
		if !errors.Is(err, shared.ErrAuth) {
			t.Errorf("expected ErrAuth, got %v", err)
		}
		if h.medium.Len() != 0 {
			t.Errorf("expected nothing persisted, got %d entries", h.medium.Len())
		}
	})

	t.Run("signup creates account and signs in", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun("auth", "signup", "-u", "grace", "-p", "cobol", "-n", "Grace Hopper")
		if !strings.Contains(out, "Created account grace (Grace Hopper)") {
			t.Errorf("unexpected output %q", out)
		}

		out = h.mustRun("auth", "status")
		if !strings.Contains(out, "Signed in as grace") {
			t.Errorf("expected restored session, got %q", out)
		}
	})

	t.Run("signup with taken username", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.run("auth", "signup", "-u", "ada", "-p", "x", "-n", "Someone")
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("status when signed out", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun("auth", "status")
		if out != "Not signed in\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("status as JSON", func(t *testing.T) {
		h := newHarness(t)
		h.login()

		out := h.mustRun("auth", "status", "--json")
		for _, want := range []string{`"state":"authenticated"`, `"username":"ada"`, `"remembered":true`, `"feedEntries":1`} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %s in %q", want, out)
			}
		}
	})

	t.Run("status with rejected credentials", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.medium.Set(ctx, session.KeyAuthToken, "not-a-token")
		h.medium.Set(ctx, session.KeyIdentity, "ada")

		out := h.mustRun("auth", "status")
		if !strings.Contains(out, "remembered session was rejected") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("logout clears credentials", func(t *testing.T) {
		h := newHarness(t)
		h.login()

		out := h.mustRun("auth", "logout")
		if out != "✓ Signed out ada\n" {
			t.Errorf("unexpected output %q", out)
		}
		if h.medium.Len() != 0 {
			t.Errorf("expected credentials cleared, got %d entries", h.medium.Len())
		}

		out = h.mustRun("auth", "logout")
		if out != "Not signed in\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("explicit missing config", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.run("auth", "status", "--config", filepath.Join(t.TempDir(), "missing.toml"))
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestStoriesCommands(t *testing.T) {
	t.Run("list while anonymous has no stars", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun("stories", "list")
		if !strings.Contains(out, "Notes on the Analytical Engine (example.com)") {
			t.Errorf("expected story in output, got %q", out)
		}
		if strings.ContainsAny(out, "☆★") {
			t.Errorf("expected no favorite marks while anonymous, got %q", out)
		}
	})

	t.Run("list marks favorites when signed in", func(t *testing.T) {
		h := newHarness(t)
		h.login()
		h.mustRun("favorites", "add", h.story.ID)

		out := h.mustRun("stories", "list")
		if !strings.Contains(out, "★ Notes on the Analytical Engine") {
			t.Errorf("expected starred story, got %q", out)
		}
	})

	t.Run("list as JSON with limit", func(t *testing.T) {
		h := newHarness(t)
		h.backend.AddStory("ada", models.StoryDraft{Title: "Second", URL: "https://example.org", Author: "Ada"})

		out := h.mustRun("stories", "list", "--json", "--limit", "1")
		if strings.Count(out, `"storyId"`) != 1 {
			t.Errorf("expected one story, got %q", out)
		}
		if !strings.Contains(out, `"title":"Second"`) {
			t.Errorf("expected newest story first, got %q", out)
		}
	})

	t.Run("submit requires sign in", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.run("stories", "submit", "-t", "Title", "--url", "https://example.com", "-a", "Me")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("submit creates story", func(t *testing.T) {
		h := newHarness(t)
		h.login()

		out := h.mustRun("stories", "submit", "-t", "Sketch", "--url", "https://example.com/sketch", "-a", "Menabrea")
		if !strings.Contains(out, `Submitted "Sketch"`) {
			t.Errorf("unexpected output %q", out)
		}

		stories := h.backend.Stories()
		if len(stories) != 2 || stories[0].Title != "Sketch" {
			t.Errorf("expected new story first in backend, got %+v", stories)
		}
	})

	t.Run("submit invalid url", func(t *testing.T) {
		h := newHarness(t)
		h.login()

		_, err := h.run("stories", "submit", "-t", "Bad", "--url", "not a url", "-a", "Me")
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		if len(h.backend.Stories()) != 1 {
			t.Error("expected no story created")
		}
	})

	t.Run("export JSON to stdout", func(t *testing.T) {
		h := newHarness(t)
		h.login()
		h.mustRun("favorites", "add", h.story.ID)

		out := h.mustRun("stories", "export", "-f", "json")
		if !strings.Contains(out, h.story.ID) || !strings.Contains(out, `"favorite": true`) {
			t.Errorf("expected favorite story in export, got %q", out)
		}
	})

	t.Run("export favorites CSV to file", func(t *testing.T) {
		h := newHarness(t)
		h.login()
		h.mustRun("favorites", "add", h.story.ID)

		path := filepath.Join(t.TempDir(), "favorites.csv")
		out := h.mustRun("stories", "export", "--favorites", "-f", "csv", "-o", path)
		if !strings.Contains(out, fmt.Sprintf("Exported 1 stories to %s", path)) {
			t.Errorf("unexpected output %q", out)
		}

		tu.AssertFileExists(t, path)
		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "Notes on the Analytical Engine") {
			t.Errorf("expected story in csv, got %q", content)
		}
	})

	t.Run("export favorites requires sign in", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.run("stories", "export", "--favorites")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("export unknown format", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.run("stories", "export", "-f", "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestFavoritesCommands(t *testing.T) {
	t.Run("add and remove", func(t *testing.T) {
		h := newHarness(t)
		h.login()

		out := h.mustRun("favorites", "add", h.story.ID)
		if out != fmt.Sprintf("★ %s is a favorite\n", h.story.ID) {
			t.Errorf("unexpected output %q", out)
		}

		user, err := h.backend.User("ada")
		if err != nil {
			t.Fatalf("user lookup failed: %v", err)
		}
		if len(user.Favorites) != 1 || user.Favorites[0].ID != h.story.ID {
			t.Errorf("expected remote favorite, got %+v", user.Favorites)
		}

		h.mustRun("favorites", "add", h.story.ID)
		user, _ = h.backend.User("ada")
		if len(user.Favorites) != 1 {
			t.Errorf("expected add to be idempotent, got %d favorites", len(user.Favorites))
		}

		out = h.mustRun("favorites", "remove", h.story.ID)
		if out != fmt.Sprintf("☆ %s is not a favorite\n", h.story.ID) {
			t.Errorf("unexpected output %q", out)
		}
		user, _ = h.backend.User("ada")
		if len(user.Favorites) != 0 {
			t.Errorf("expected favorite removed, got %+v", user.Favorites)
		}
	})

	t.Run("toggle flips state", func(t *testing.T) {
		h := newHarness(t)
		h.login()

		if out := h.mustRun("favorites", "toggle", h.story.ID); !strings.HasPrefix(out, "★") {
			t.Errorf("expected favorite after first toggle, got %q", out)
		}
		if out := h.mustRun("favorites", "toggle", h.story.ID); !strings.HasPrefix(out, "☆") {
			t.Errorf("expected not favorite after second toggle, got %q", out)
		}
	})

	t.Run("list shows favorites", func(t *testing.T) {
		h := newHarness(t)
		h.login()

		out := h.mustRun("favorites", "list")
		if !strings.Contains(out, "No stories") {
			t.Errorf("expected empty list, got %q", out)
		}

		h.mustRun("favorites", "add", h.story.ID)
		out = h.mustRun("favorites", "list", "--json")
		if !strings.Contains(out, h.story.ID) {
			t.Errorf("expected favorite in list, got %q", out)
		}
	})

	t.Run("unknown story", func(t *testing.T) {
		h := newHarness(t)
		h.login()

		_, err := h.run("favorites", "add", "does-not-exist")
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		h := newHarness(t)
		h.login()

		_, err := h.run("favorites", "toggle")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("requires sign in", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.run("favorites", "add", h.story.ID)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config writes template once", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		out := h.mustRun("setup", "config", "-c", path)
		if out != fmt.Sprintf("✓ Wrote %s\n", path) {
			t.Errorf("unexpected output %q", out)
		}
		tu.AssertFileExists(t, path)

		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected written config to load, got %v", err)
		}

		if _, err := h.run("setup", "config", "-c", path); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("database runs migrations", func(t *testing.T) {
		h := newHarness(t)
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "snooze.db")
		configPath := filepath.Join(dir, "config.toml")

		config := fmt.Sprintf(`
[remote]
base_url = "http://127.0.0.1:5000"

[storage]
driver = "sqlite"

[database]
path = %q
max_open_conns = 1
max_idle_conns = 1
`, dbPath)
		if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		out := h.mustRun("setup", "database", "-c", configPath)
		if !strings.Contains(out, "Database ready at "+dbPath) {
			t.Errorf("unexpected output %q", out)
		}
		tu.AssertFileExists(t, dbPath)
	})
}
