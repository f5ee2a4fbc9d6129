package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/service"
)

// UserHandler exposes the identity store. Everything but HandleCreate sits
// behind the bearer API secret.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// HandleCreate creates an identity.
//
// HTTP: POST /api/users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, req.Email, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleFind lists identities. With ?email= it returns zero or one: an
// unknown email is an empty list, not an error.
//
// HTTP: GET /api/users[?email=]
func (h *UserHandler) HandleFind(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		users, err := h.users.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
		return
	}

	user, err := h.users.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			writeJSON(w, http.StatusOK, []model.User{})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, []model.User{*user})
}

type updateUserRequest struct {
	ID string `json:"id"`
	model.UserUpdate
}

// HandleUpdate merges the supplied fields into an identity.
//
// HTTP: PUT /api/users  {"id": "...", "name": "..."}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid user update JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	user, err := h.users.Update(r.Context(), req.ID, req.UserUpdate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDelete removes an identity. The id comes from ?id= or, failing that,
// a JSON body {"id": "..."}.
//
// HTTP: DELETE /api/users?id=
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" && r.ContentLength != 0 {
		var body struct {
			ID string `json:"id"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			h.logger.Warn("invalid user delete JSON", slog.String("error", err.Error()))
			writeError(w, err)
			return
		}
		id = body.ID
	}

	h.logger.Info("user delete requested", slog.String("id", id))

	user, err := h.users.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
