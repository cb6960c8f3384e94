package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/shared"
)

type userPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authBody struct {
	User userPayload `json:"user"`
}

type storyBody struct {
	Story models.StoryDraft `json:"story"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// StoryAPI serves the story service endpoints from a [Backend].
type StoryAPI struct {
	backend *Backend
}

// NewStoryAPI creates the endpoint group for backend.
func NewStoryAPI(backend *Backend) *StoryAPI {
	return &StoryAPI{backend: backend}
}

// Routes implements [Handler].
func (a *StoryAPI) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/signup", Handler: a.signup},
		{Method: http.MethodPost, Path: "/login", Handler: a.login},
		{Method: http.MethodGet, Path: "/stories", Handler: a.listStories},
		{Method: http.MethodPost, Path: "/stories", Auth: true, Handler: a.createStory},
		{Method: http.MethodDelete, Path: "/stories/{storyId}", Auth: true, Handler: a.deleteStory},
		{Method: http.MethodGet, Path: "/users/{username}", Auth: true, Handler: a.getUser},
		{Method: http.MethodPost, Path: "/users/{username}/favorites/{storyId}", Auth: true, Handler: a.addFavorite},
		{Method: http.MethodDelete, Path: "/users/{username}/favorites/{storyId}", Auth: true, Handler: a.removeFavorite},
	}
}

func (a *StoryAPI) signup(w http.ResponseWriter, r *http.Request) {
	var body authBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, user, err := a.backend.Signup(body.User.Username, body.User.Password, body.User.Name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (a *StoryAPI) login(w http.ResponseWriter, r *http.Request) {
	var body authBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, user, err := a.backend.Login(body.User.Username, body.User.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (a *StoryAPI) listStories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stories": a.backend.Stories()})
}

func (a *StoryAPI) createStory(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFrom(r.Context())

	var body storyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	story, err := a.backend.AddStory(username, body.Story)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"story": story})
}

func (a *StoryAPI) deleteStory(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFrom(r.Context())

	story, err := a.backend.DeleteStory(username, r.PathValue("storyId"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "story deleted", "story": story})
}

func (a *StoryAPI) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.backend.User(r.PathValue("username"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *StoryAPI) addFavorite(w http.ResponseWriter, r *http.Request) {
	a.setFavorite(w, r, true)
}

func (a *StoryAPI) removeFavorite(w http.ResponseWriter, r *http.Request) {
	a.setFavorite(w, r, false)
}

func (a *StoryAPI) setFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	caller, _ := UsernameFrom(r.Context())
	username := r.PathValue("username")
	if caller != username {
		writeFailure(w, ErrForbidden)
		return
	}

	if err := a.backend.SetFavorite(username, r.PathValue("storyId"), favorite); err != nil {
		writeFailure(w, err)
		return
	}

	message := "favorite removed"
	if favorite {
		message = "favorite added"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// writeFailure maps backend errors to their HTTP status.
func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrStoryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrUsernameTaken):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Status: status, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
