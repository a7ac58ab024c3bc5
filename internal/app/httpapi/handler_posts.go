package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/icook-app/icook/internal/app"
	"github.com/icook-app/icook/internal/app/domain/post"
)

func (h *handler) createPost(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	var payload post.Draft
	if !h.decodeBody(w, r, &payload) {
		return
	}
	created, err := scope.Posts.Create(r.Context(), payload)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if !created {
		writeMessage(w, http.StatusConflict, "Post was not created")
		return
	}
	writeMessage(w, http.StatusOK, "Post created")
}

func (h *handler) postsByUsername(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	list, err := scope.Posts.GetByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.fault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) feed(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	entries, err := scope.Feed.Assemble(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.fault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) deletePost(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	id, err := pathID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	deleted, err := scope.Posts.Delete(r.Context(), id)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "Post was not deleted")
		return
	}
	writeMessage(w, http.StatusOK, "Post deleted")
}

func (h *handler) appendLike(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	id, err := pathID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	username := mux.Vars(r)["username"]
	ok, err := scope.Posts.AppendUserToLikedBy(r.Context(), id, username)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "Operation failed")
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("User %s added to Post %d likes", username, id))
}

func (h *handler) popLike(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	id, err := pathID(r, "id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	username := mux.Vars(r)["username"]
	ok, err := scope.Posts.PopUserFromLikedBy(r.Context(), id, username)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "Operation failed")
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("User %s removed from Post %d likes", username, id))
}
