// Story service [Service] implementation
//
// Talks JSON to the story service; see the package documentation for the routes.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultBaseURL string = "http://127.0.0.1:5000"

// RequestIDHeader carries a per-request id for correlating client and server logs.
const RequestIDHeader = "X-Request-ID"

var _ Service = (*StoryService)(nil)

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type authRequest struct {
	User credentialsPayload `json:"user"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type userResponse struct {
	User models.User `json:"user"`
}

type feedResponse struct {
	Stories []models.Story `json:"stories"`
}

type storyRequest struct {
	Story models.StoryDraft `json:"story"`
}

type storyResponse struct {
	Story models.Story `json:"story"`
}

// errorResponse is the error body the service returns on non-2xx statuses.
type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// StoryServiceOpts configures a [StoryService].
type StoryServiceOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	RateLimit  float64 // requests per second; 0 disables pacing
	Logger     *log.Logger
}

// StoryService implements [Service] over HTTP.
type StoryService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewStoryService creates a new story service client.
func NewStoryService(opts StoryServiceOpts) *StoryService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &StoryService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		logger:     opts.Logger.WithPrefix("services"),
	}
}

// authorized returns a client that attaches token as a bearer credential.
func (s *StoryService) authorized(token string) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   s.httpClient.Transport,
		},
		CheckRedirect: s.httpClient.CheckRedirect,
		Jar:           s.httpClient.Jar,
		Timeout:       s.httpClient.Timeout,
	}
}

func (s *StoryService) doRequest(ctx context.Context, client *http.Client, method, endpoint string, body, result any) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %v", shared.ErrNetwork, err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request: %v", shared.ErrValidation, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", shared.ErrNetwork, err)
	}

	requestID := shared.GenerateID()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrNetwork, method, endpoint, err)
	}
	defer resp.Body.Close()

	s.logger.Debug("request complete",
		"method", method, "endpoint", endpoint, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrNetwork, err)
		}
	}
	return nil
}

// classify maps a non-2xx response to the sentinel error for its status.
func classify(resp *http.Response) error {
	message := http.StatusText(resp.StatusCode)

	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return NewStatusError(resp.StatusCode, message)
}

// StatusError is returned when the service answers with a non-2xx status.
//
// It unwraps to the sentinel chosen by status, so callers classify with [errors.Is].
type StatusError struct {
	kind    error
	Status  int
	Message string
}

// NewStatusError builds the error for a non-2xx status, choosing the sentinel it unwraps to.
func NewStatusError(status int, message string) *StatusError {
	var kind error
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = shared.ErrAuth
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		kind = shared.ErrValidation
	default:
		kind = shared.ErrNetwork
	}
	return &StatusError{kind: kind, Status: status, Message: message}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", e.kind, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

// Login exchanges identity and secret for a session.
//
// Calls POST /login.
func (s *StoryService) Login(ctx context.Context, identity, secret string) (*models.Session, error) {
	if identity == "" || secret == "" {
		return nil, fmt.Errorf("%w: username and password are required", shared.ErrValidation)
	}

	var resp authResponse
	req := authRequest{User: credentialsPayload{Username: identity, Password: secret}}
	if err := s.doRequest(ctx, s.httpClient, http.MethodPost, "/login", req, &resp); err != nil {
		return nil, err
	}
	return sessionFrom(resp)
}

// CreateAccount registers a new account.
//
// Calls POST /signup.
func (s *StoryService) CreateAccount(ctx context.Context, identity, secret, displayName string) (*models.Session, error) {
	if strings.TrimSpace(identity) == "" || secret == "" || strings.TrimSpace(displayName) == "" {
		return nil, fmt.Errorf("%w: username, password and name are required", shared.ErrValidation)
	}

	var resp authResponse
	req := authRequest{User: credentialsPayload{Username: identity, Password: secret, Name: displayName}}
	if err := s.doRequest(ctx, s.httpClient, http.MethodPost, "/signup", req, &resp); err != nil {
		return nil, err
	}
	return sessionFrom(resp)
}

func sessionFrom(resp authResponse) (*models.Session, error) {
	if resp.Token == "" || resp.User.Username == "" {
		return nil, fmt.Errorf("%w: response is missing token or user", shared.ErrNetwork)
	}
	return resp.User.SessionWithToken(resp.Token), nil
}

// Validate checks creds by fetching the user they belong to.
//
// Calls GET /users/{username}.
func (s *StoryService) Validate(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	user, err := s.fetchUser(ctx, creds.Identity, creds.AuthToken)
	if err != nil {
		return nil, err
	}
	return user.SessionWithToken(creds.AuthToken), nil
}

func (s *StoryService) fetchUser(ctx context.Context, identity, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing auth token", shared.ErrAuth)
	}
	if identity == "" {
		return nil, fmt.Errorf("%w: missing identity", shared.ErrValidation)
	}

	var resp userResponse
	endpoint := fmt.Sprintf("/users/%s", url.PathEscape(identity))
	if err := s.doRequest(ctx, s.authorized(token), http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User.Username != identity {
		return nil, fmt.Errorf("%w: token belongs to a different user", shared.ErrAuth)
	}
	return &resp.User, nil
}

// FetchFeed returns the shared story feed.
//
// Calls GET /stories.
func (s *StoryService) FetchFeed(ctx context.Context) ([]models.Story, error) {
	var resp feedResponse
	if err := s.doRequest(ctx, s.httpClient, http.MethodGet, "/stories", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Stories == nil {
		return []models.Story{}, nil
	}
	return resp.Stories, nil
}

// SubmitStory creates a story on behalf of sess.
//
// Calls POST /stories.
func (s *StoryService) SubmitStory(ctx context.Context, sess *models.Session, draft models.StoryDraft) (*models.Story, error) {
	if !sess.LoggedIn() {
		return nil, fmt.Errorf("%w: missing auth token", shared.ErrAuth)
	}
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	var resp storyResponse
	if err := s.doRequest(ctx, s.authorized(sess.AuthToken), http.MethodPost, "/stories", storyRequest{Story: draft}, &resp); err != nil {
		return nil, err
	}
	if resp.Story.ID == "" {
		return nil, fmt.Errorf("%w: created story has no id", shared.ErrNetwork)
	}
	return &resp.Story, nil
}

// FetchFavorites returns the favorite stories of the session's user.
//
// Calls GET /users/{username}.
func (s *StoryService) FetchFavorites(ctx context.Context, sess *models.Session) ([]models.Story, error) {
	if !sess.LoggedIn() {
		return nil, fmt.Errorf("%w: missing auth token", shared.ErrAuth)
	}

	user, err := s.fetchUser(ctx, sess.Identity, sess.AuthToken)
	if err != nil {
		return nil, err
	}
	if user.Favorites == nil {
		return []models.Story{}, nil
	}
	return user.Favorites, nil
}

// SetFavorite adds or removes storyID from the user's favorites.
//
// Calls POST or DELETE /users/{username}/favorites/{storyId}.
func (s *StoryService) SetFavorite(ctx context.Context, sess *models.Session, storyID string, favorite bool) error {
	if !sess.LoggedIn() {
		return fmt.Errorf("%w: missing auth token", shared.ErrAuth)
	}
	if storyID == "" {
		return fmt.Errorf("%w: story id is required", shared.ErrValidation)
	}

	method := http.MethodDelete
	if favorite {
		method = http.MethodPost
	}

	endpoint := fmt.Sprintf("/users/%s/favorites/%s", url.PathEscape(sess.Identity), url.PathEscape(storyID))
	return s.doRequest(ctx, s.authorized(sess.AuthToken), method, endpoint, nil, nil)
}
