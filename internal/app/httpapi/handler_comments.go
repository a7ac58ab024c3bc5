package httpapi

import (
	"net/http"

	app "github.com/icook-app/icook/internal/app"
	"github.com/icook-app/icook/internal/app/domain/comment"
)

func (h *handler) createComment(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	var payload comment.Draft
	if !h.decodeBody(w, r, &payload) {
		return
	}
	created, err := scope.Comments.Create(r.Context(), payload)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	if !created {
		writeMessage(w, http.StatusConflict, "Comment was not created")
		return
	}
	writeMessage(w, http.StatusOK, "Comment created")
}

func (h *handler) commentsByPost(w http.ResponseWriter, r *http.Request, scope *app.Scope) {
	postID, err := pathID(r, "post_id")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := scope.Comments.GetByPostID(r.Context(), postID)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
