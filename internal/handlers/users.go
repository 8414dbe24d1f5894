package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/socialnet/apiserver/internal/services"
	"github.com/socialnet/apiserver/types"
	"go.uber.org/zap"
)

// UserHandler serves profiles, follow toggles and per-user listings.
type UserHandler struct {
	userService *services.UserService
	postService *services.PostService
	log         *zap.Logger
}

func NewUserHandler(userService *services.UserService, postService *services.PostService, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, postService: postService, log: log}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.With(RequireAuth).Patch("/", handler.UpdateUser)
		r.With(RequireAuth).Post("/follow", handler.ToggleFollow)
		r.Get("/followers", handler.Followers)
		r.Get("/following", handler.Following)
		r.Get("/posts", handler.Posts)
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.Profile(r.Context(), chi.URLParam(r, "userID"), viewerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{User: profile})
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), viewerFromContext(r.Context()), chi.URLParam(r, "userID"), services.ProfileUpdate{
		Name:     req.Name,
		Username: req.Username,
		Bio:      req.Bio,
		Image:    req.Image,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, UpdatedUserResponse{
		Message: "Profile updated successfully",
		User:    user,
	})
}

func (h *UserHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	following, err := h.userService.ToggleFollow(r.Context(), viewerFromContext(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to follow/unfollow user")
		return
	}

	message := "User unfollowed successfully"
	if following {
		message = "User followed successfully"
	}
	writeJSON(w, http.StatusOK, FollowResponse{Message: message, Following: following})
}

func (h *UserHandler) Followers(w http.ResponseWriter, r *http.Request) {
	_, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.userService.Followers(r.Context(), chi.URLParam(r, "userID"), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to fetch followers")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]types.UserSummary{"followers": users})
}

func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	_, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.userService.Following(r.Context(), chi.URLParam(r, "userID"), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to fetch following")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]types.UserSummary{"following": users})
}

func (h *UserHandler) Posts(w http.ResponseWriter, r *http.Request) {
	_, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	posts, err := h.postService.ListByAuthor(r.Context(), chi.URLParam(r, "userID"), viewerFromContext(r.Context()), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to fetch user posts")
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts})
}

// UpdateProfileRequest leaves fields that are absent from the body untouched.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
}

type ProfileResponse struct {
	User types.Profile `json:"user"`
}

type UpdatedUserResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}

type FollowResponse struct {
	Message   string `json:"message"`
	Following bool   `json:"following"`
}
