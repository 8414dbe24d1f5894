package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/socialnet/apiserver/internal/services"
	"github.com/socialnet/apiserver/types"
	"go.uber.org/zap"
)

// PostHandler serves the feed, posts and likes.
type PostHandler struct {
	postService *services.PostService
	log         *zap.Logger
}

func NewPostHandler(postService *services.PostService, log *zap.Logger) *PostHandler {
	return &PostHandler{postService: postService, log: log}
}

// PostRouter registers post routes on the given router. Comment routes are
// mounted under each post by the caller.
func PostRouter(r chi.Router, handler *PostHandler, comments *CommentHandler) {
	r.Get("/", handler.Feed)
	r.With(RequireAuth).Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.With(RequireAuth).Patch("/", handler.UpdatePost)
		r.With(RequireAuth).Delete("/", handler.DeletePost)
		r.With(RequireAuth).Post("/like", handler.ToggleLike)
		r.Route("/comments", func(r chi.Router) {
			CommentRouter(r, comments)
		})
	})
}

func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	_, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	feedType := services.FeedLatest
	switch strings.TrimSpace(r.URL.Query().Get("type")) {
	case "", string(services.FeedLatest):
	case string(services.FeedFollowing):
		feedType = services.FeedFollowing
	default:
		writeError(w, http.StatusBadRequest, "invalid feed type")
		return
	}

	posts, err := h.postService.Feed(r.Context(), services.FeedQuery{
		Type:     feedType,
		ViewerID: viewerFromContext(r.Context()),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to fetch posts")
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts})
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Create(r.Context(), viewerFromContext(r.Context()), services.PostInput{
		Content:   req.Content,
		MediaURLs: req.MediaURLs,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to create post")
		return
	}
	writeJSON(w, http.StatusOK, PostWriteResponse{Message: "Post created successfully", Post: post})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Get(r.Context(), chi.URLParam(r, "postID"), viewerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to fetch post")
		return
	}
	writeJSON(w, http.StatusOK, PostResponse{Post: post})
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Update(r.Context(), viewerFromContext(r.Context()), chi.URLParam(r, "postID"), services.PostInput{
		Content:   req.Content,
		MediaURLs: req.MediaURLs,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to update post")
		return
	}
	writeJSON(w, http.StatusOK, PostWriteResponse{Message: "Post updated successfully", Post: post})
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.postService.Delete(r.Context(), viewerFromContext(r.Context()), chi.URLParam(r, "postID")); err != nil {
		writeServiceError(w, r, h.log, err, "failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted successfully"})
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	result, err := h.postService.ToggleLike(r.Context(), viewerFromContext(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to like/unlike post")
		return
	}

	message := "Post unliked successfully"
	if result.Liked {
		message = "Post liked successfully"
	}
	writeJSON(w, http.StatusOK, LikeResponse{Message: message, LikeResult: result})
}

type PostRequest struct {
	Content   string   `json:"content"`
	MediaURLs []string `json:"mediaUrls"`
}

type PostListResponse struct {
	Posts []types.PostView `json:"posts"`
}

type PostResponse struct {
	Post types.PostView `json:"post"`
}

type PostWriteResponse struct {
	Message string         `json:"message"`
	Post    types.PostView `json:"post"`
}

type LikeResponse struct {
	Message string `json:"message"`
	types.LikeResult
}
