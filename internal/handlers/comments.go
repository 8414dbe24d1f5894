package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/socialnet/apiserver/internal/services"
	"github.com/socialnet/apiserver/types"
	"go.uber.org/zap"
)

// CommentHandler serves the comments of a post.
type CommentHandler struct {
	commentService *services.CommentService
	log            *zap.Logger
}

func NewCommentHandler(commentService *services.CommentService, log *zap.Logger) *CommentHandler {
	return &CommentHandler{commentService: commentService, log: log}
}

// CommentRouter registers comment routes below /posts/{postID}/comments.
func CommentRouter(r chi.Router, handler *CommentHandler) {
	r.Get("/", handler.ListComments)
	r.With(RequireAuth).Post("/", handler.CreateComment)
	r.Route("/{commentID}", func(r chi.Router) {
		r.Get("/", handler.GetComment)
		r.With(RequireAuth).Patch("/", handler.UpdateComment)
		r.With(RequireAuth).Delete("/", handler.DeleteComment)
	})
}

func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	_, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := h.commentService.List(r.Context(), chi.URLParam(r, "postID"), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to fetch comments")
		return
	}
	writeJSON(w, http.StatusOK, CommentListResponse{Comments: comments})
}

func (h *CommentHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.commentService.Get(r.Context(), chi.URLParam(r, "postID"), chi.URLParam(r, "commentID"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to fetch comment")
		return
	}
	writeJSON(w, http.StatusOK, CommentResponse{Comment: comment})
}

func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.commentService.Create(r.Context(), viewerFromContext(r.Context()), chi.URLParam(r, "postID"), req.Content)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to add comment")
		return
	}
	writeJSON(w, http.StatusOK, CommentWriteResponse{Message: "Comment added successfully", Comment: comment})
}

func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.commentService.Update(r.Context(),
		viewerFromContext(r.Context()),
		chi.URLParam(r, "postID"),
		chi.URLParam(r, "commentID"),
		req.Content,
	)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to update comment")
		return
	}
	writeJSON(w, http.StatusOK, CommentWriteResponse{Message: "Comment updated successfully", Comment: comment})
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.commentService.Delete(r.Context(),
		viewerFromContext(r.Context()),
		chi.URLParam(r, "postID"),
		chi.URLParam(r, "commentID"),
	)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to delete comment")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}

type CommentRequest struct {
	Content string `json:"content"`
}

type CommentListResponse struct {
	Comments []types.CommentView `json:"comments"`
}

type CommentResponse struct {
	Comment types.CommentView `json:"comment"`
}

type CommentWriteResponse struct {
	Message string            `json:"message"`
	Comment types.CommentView `json:"comment"`
}
