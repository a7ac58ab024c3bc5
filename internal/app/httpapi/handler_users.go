package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/icook-app/icook/internal/app"
	"github.com/icook-app/icook/internal/app/domain/user"
	"github.com/icook-app/icook/internal/app/services/users"
)

type updateUserRequest struct {
	Username string `json:"username" validate:"required,max=20"`
	user.Changes
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	var payload user.Registration
	if !h.decodeBody(w, r, &payload) {
		return
	}
	created, err := scope.Users.Create(r.Context(), payload)
	if errors.Is(err, users.ErrPasswordTooLong) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if !created {
		writeMessage(w, http.StatusConflict, "Username already exists")
		return
	}
	writeMessage(w, http.StatusOK, "User created")
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	var payload updateUserRequest
	if !h.decodeBody(w, r, &payload) {
		return
	}
	updated, err := scope.Users.Update(r.Context(), payload.Username, payload.Changes)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if !updated {
		writeMessage(w, http.StatusNotFound, "User was not updated")
		return
	}
	writeMessage(w, http.StatusOK, "User updated")
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	u, err := scope.Users.Get(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if u == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// login answers the same 404 for an unknown user and a wrong password.
func (h *handler) login(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	var payload loginRequest
	if !h.decodeBody(w, r, &payload) {
		return
	}
	outcome, err := scope.Users.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if outcome != user.LoginSucceeded {
		h.log.WithField("username", payload.Username).
			WithField("outcome", outcome.String()).
			Info("login refused")
		writeMessage(w, http.StatusNotFound, "invalid username or password")
		return
	}
	writeMessage(w, http.StatusOK, user.LoginSucceeded.String())
}
