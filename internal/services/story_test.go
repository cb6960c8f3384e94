package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/server"
	"github.com/desertthunder/snooze/internal/shared"
	mocks "github.com/desertthunder/snooze/internal/testing"
	"golang.org/x/crypto/bcrypt"
)

func newStandIn(t *testing.T) (*StoryService, *server.Backend) {
	t.Helper()
	backend := server.NewBackend(server.WithCost(bcrypt.MinCost))
	srv := httptest.NewServer(server.NewHandler(backend, log.New(io.Discard)))
	t.Cleanup(srv.Close)

	svc := NewStoryService(StoryServiceOpts{BaseURL: srv.URL, Logger: log.New(io.Discard)})
	return svc, backend
}

func newStubbed(t *testing.T, handler http.HandlerFunc) *StoryService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStoryService(StoryServiceOpts{BaseURL: srv.URL, Logger: log.New(io.Discard)})
}

func TestStoryService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewStoryService", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			svc := NewStoryService(StoryServiceOpts{})
			if svc.baseURL != defaultBaseURL {
				t.Errorf("expected default base URL, got %s", svc.baseURL)
			}
			if svc.limiter != nil {
				t.Error("expected no limiter when rate limit is zero")
			}
		})

		t.Run("Trims Trailing Slash", func(t *testing.T) {
			svc := NewStoryService(StoryServiceOpts{BaseURL: "http://example.com/api/", RateLimit: 2})
			if svc.baseURL != "http://example.com/api" {
				t.Errorf("unexpected base URL %s", svc.baseURL)
			}
			if svc.limiter == nil {
				t.Error("expected limiter to be configured")
			}
		})
	})

	t.Run("CreateAccount", func(t *testing.T) {
		svc, _ := newStandIn(t)

		sess, err := svc.CreateAccount(ctx, "ada", "secret", "Ada Lovelace")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sess.Identity != "ada" || sess.DisplayName != "Ada Lovelace" || sess.AuthToken == "" {
			t.Errorf("unexpected session %+v", sess)
		}
		if sess.Favorites.Len() != 0 {
			t.Errorf("expected empty favorites, got %d", sess.Favorites.Len())
		}

		t.Run("Taken Identity", func(t *testing.T) {
			_, err := svc.CreateAccount(ctx, "ada", "other", "Another")
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.Status != http.StatusConflict {
				t.Errorf("expected a 409 StatusError, got %v", err)
			}
		})

		t.Run("Missing Fields", func(t *testing.T) {
			_, err := svc.CreateAccount(ctx, "bob", "secret", " ")
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	})

	t.Run("Login", func(t *testing.T) {
		svc, backend := newStandIn(t)
		backend.Signup("ada", "secret", "Ada")

		tests := []struct {
			name     string
			identity string
			secret   string
			want     error
		}{
			{"Valid", "ada", "secret", nil},
			{"Wrong Secret", "ada", "nope", shared.ErrAuth},
			{"Unknown Identity", "bob", "secret", shared.ErrAuth},
			{"Empty Secret", "ada", "", shared.ErrValidation},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				sess, err := svc.Login(ctx, tc.identity, tc.secret)
				if tc.want == nil {
					if err != nil {
						t.Fatalf("expected no error, got %v", err)
					}
					if !sess.LoggedIn() || sess.Identity != tc.identity {
						t.Errorf("unexpected session %+v", sess)
					}
					return
				}
				if !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})

	t.Run("Validate", func(t *testing.T) {
		svc, backend := newStandIn(t)
		token, _, _ := backend.Signup("ada", "secret", "Ada")

		sess, err := svc.Validate(ctx, models.Credentials{AuthToken: token, Identity: "ada"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sess.AuthToken != token || sess.DisplayName != "Ada" {
			t.Errorf("unexpected session %+v", sess)
		}

		if _, err := svc.Validate(ctx, models.Credentials{AuthToken: "bogus", Identity: "ada"}); !errors.Is(err, shared.ErrAuth) {
			t.Errorf("expected ErrAuth for bad token, got %v", err)
		}
		if _, err := svc.Validate(ctx, models.Credentials{Identity: "ada"}); !errors.Is(err, shared.ErrAuth) {
			t.Errorf("expected ErrAuth for missing token, got %v", err)
		}
	})

	t.Run("Feed And Submit", func(t *testing.T) {
		svc, backend := newStandIn(t)
		token, _, _ := backend.Signup("ada", "secret", "Ada")
		sess := models.NewSession("ada", "Ada", token, nil)

		feed, err := svc.FetchFeed(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if feed == nil || len(feed) != 0 {
			t.Errorf("expected empty non-nil feed, got %#v", feed)
		}

		draft := models.StoryDraft{Title: "Go 1.24", URL: "https://go.dev/blog", Author: "Go Team"}
		story, err := svc.SubmitStory(ctx, sess, draft)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if story.ID == "" || story.SubmittedBy != "ada" || story.Title != draft.Title {
			t.Errorf("unexpected story %+v", story)
		}

		feed, _ = svc.FetchFeed(ctx)
		if len(feed) != 1 || feed[0].ID != story.ID {
			t.Errorf("expected submitted story in feed, got %+v", feed)
		}

		t.Run("Without Token", func(t *testing.T) {
			_, err := svc.SubmitStory(ctx, models.NewSession("ada", "Ada", "", nil), draft)
			if !errors.Is(err, shared.ErrAuth) {
				t.Errorf("expected ErrAuth, got %v", err)
			}
		})

		t.Run("Revoked Token", func(t *testing.T) {
			_, err := svc.SubmitStory(ctx, models.NewSession("ada", "Ada", "bogus", nil), draft)
			if !errors.Is(err, shared.ErrAuth) {
				t.Errorf("expected ErrAuth, got %v", err)
			}
		})

		t.Run("Invalid Draft", func(t *testing.T) {
			_, err := svc.SubmitStory(ctx, sess, models.StoryDraft{Title: "x", URL: "ftp://x", Author: "y"})
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	})

	t.Run("SetFavorite Is Idempotent", func(t *testing.T) {
		svc, backend := newStandIn(t)
		token, _, _ := backend.Signup("ada", "secret", "Ada")
		sess := models.NewSession("ada", "Ada", token, nil)
		story, _ := backend.AddStory("ada", models.StoryDraft{Title: "T", URL: "https://example.com", Author: "A"})

		for range 2 {
			if err := svc.SetFavorite(ctx, sess, story.ID, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}

		favs, err := svc.FetchFavorites(ctx, sess)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(favs) != 1 || favs[0].ID != story.ID {
			t.Errorf("expected exactly one favorite, got %+v", favs)
		}

		for range 2 {
			if err := svc.SetFavorite(ctx, sess, story.ID, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}

		favs, _ = svc.FetchFavorites(ctx, sess)
		if len(favs) != 0 {
			t.Errorf("expected no favorites, got %+v", favs)
		}

		t.Run("Unknown Story", func(t *testing.T) {
			err := svc.SetFavorite(ctx, sess, "missing", true)
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})

		t.Run("Empty Story ID", func(t *testing.T) {
			err := svc.SetFavorite(ctx, sess, "", true)
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	})

	t.Run("Request Headers", func(t *testing.T) {
		var gotAuth, gotRequestID string
		svc := newStubbed(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotRequestID = r.Header.Get(RequestIDHeader)
			w.Write([]byte(`{"message":"ok"}`))
		})

		if err := svc.SetFavorite(ctx, models.NewSession("ada", "Ada", "tok-123", nil), "s1", true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotAuth != "Bearer tok-123" {
			t.Errorf("expected bearer header, got %q", gotAuth)
		}
		if gotRequestID == "" {
			t.Error("expected request id header")
		}
	})

	t.Run("Classification", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			body   string
			want   error
		}{
			{"Server Error", http.StatusInternalServerError, `{"error":{"status":500,"message":"boom"}}`, shared.ErrNetwork},
			{"Bad Gateway", http.StatusBadGateway, `not json`, shared.ErrNetwork},
			{"Unauthorized", http.StatusUnauthorized, `{"error":{"status":401,"message":"bad token"}}`, shared.ErrAuth},
			{"Forbidden", http.StatusForbidden, ``, shared.ErrAuth},
			{"Bad Request", http.StatusBadRequest, ``, shared.ErrValidation},
			{"Not Found", http.StatusNotFound, ``, shared.ErrValidation},
			{"Conflict", http.StatusConflict, ``, shared.ErrValidation},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				svc := newStubbed(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tc.status)
					w.Write([]byte(tc.body))
				})

				_, err := svc.FetchFeed(ctx)
				if !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}

		t.Run("NewStatusError", func(t *testing.T) {
			err := NewStatusError(http.StatusNotFound, "story not found")
			if !errors.Is(err, shared.ErrValidation) || errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected 404 to unwrap to ErrValidation only, got %v", err)
			}
			if err.Status != http.StatusNotFound || err.Message != "story not found" {
				t.Errorf("unexpected fields %+v", err)
			}
			if !errors.Is(NewStatusError(http.StatusTeapot, ""), shared.ErrNetwork) {
				t.Error("expected unlisted status to be a network error")
			}
		})

		t.Run("Server Message Is Kept", func(t *testing.T) {
			svc := newStubbed(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"status":401,"message":"token expired"}}`))
			})

			_, err := svc.FetchFeed(ctx)
			if err == nil || !strings.Contains(err.Error(), "token expired") {
				t.Errorf("expected server message in error, got %v", err)
			}
		})

		t.Run("Malformed Success Body", func(t *testing.T) {
			svc := newStubbed(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"stories":`))
			})

			if _, err := svc.FetchFeed(ctx); !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})

		t.Run("Missing Token In Login Response", func(t *testing.T) {
			svc := newStubbed(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"user":{"username":"ada"}}`))
			})

			if _, err := svc.Login(ctx, "ada", "secret"); !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})
	})

	t.Run("Transport Failures", func(t *testing.T) {
		t.Run("Round Trip Error", func(t *testing.T) {
			client := &http.Client{Transport: mocks.NewMockRoundTripper(nil, errors.New("connection refused"))}
			svc := NewStoryService(StoryServiceOpts{HTTPClient: client, Logger: log.New(io.Discard)})

			if _, err := svc.FetchFeed(ctx); !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})

		t.Run("Body Read Error", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &mocks.FCloser{}, Header: http.Header{}}
			client := &http.Client{Transport: mocks.NewMockRoundTripper(resp, nil)}
			svc := NewStoryService(StoryServiceOpts{HTTPClient: client, Logger: log.New(io.Discard)})

			if _, err := svc.FetchFeed(ctx); !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})

		t.Run("Cancelled Context", func(t *testing.T) {
			svc := NewStoryService(StoryServiceOpts{BaseURL: "http://127.0.0.1:1", RateLimit: 1, Logger: log.New(io.Discard)})
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			if _, err := svc.FetchFeed(cctx); !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
		})
	})
}
