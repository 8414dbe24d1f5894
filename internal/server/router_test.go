package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/socialnet/apiserver/config"
	"github.com/socialnet/apiserver/internal/logging"
	"github.com/socialnet/apiserver/internal/storage"
	"github.com/socialnet/apiserver/internal/store/memory"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	objects *storage.MemoryStorage
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mem := memory.New()
	backend := storage.NewMemoryStorage("media")
	cfg := config.Config{
		Env: "test",
		Auth: config.AuthConfig{
			JWTSecret:  "router-test-secret",
			SessionTTL: time.Hour,
			CookieName: "session-token",
		},
		Storage: config.StorageConfig{
			Backend:       config.StorageMemory,
			PublicBaseURL: "https://cdn.example.com/media",
			Folder:        "social-media-app",
			MaxBytes:      1 << 20,
		},
	}

	router := NewRouter(Deps{
		Config: cfg,
		Repos: Repositories{
			Users:    mem.Users(),
			Posts:    mem.Posts(),
			Comments: mem.Comments(),
		},
		Objects: storage.NewStorage(backend, cfg.Storage.PublicBaseURL),
		Log:     logging.Discard(),
	})
	return &testAPI{t: t, handler: router, objects: backend}
}

func (a *testAPI) do(method, path string, body any, session *http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) expect(rec *httptest.ResponseRecorder, status int, out any) {
	a.t.Helper()
	if rec.Code != status {
		a.t.Fatalf("status = %d, want %d: %s", rec.Code, status, strings.TrimSpace(rec.Body.String()))
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode response: %v", err)
		}
	}
}

type account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// register signs a user up and logs them in, returning the account and the
// session cookie.
func (a *testAPI) register(username string) (account, *http.Cookie) {
	a.t.Helper()

	email := username + "@example.com"
	var signup struct {
		Message string  `json:"message"`
		User    account `json:"user"`
	}
	a.expect(a.do(http.MethodPost, "/auth/signup", map[string]string{
		"name":     strings.ToUpper(username[:1]) + username[1:],
		"username": username,
		"email":    email,
		"password": "hunter22",
	}, nil), http.StatusOK, &signup)
	if signup.Message != "User created successfully" || signup.User.ID == "" {
		a.t.Fatalf("unexpected signup response: %+v", signup)
	}

	rec := a.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": "hunter22"}, nil)
	a.expect(rec, http.StatusOK, nil)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session-token" {
			return signup.User, cookie
		}
	}
	a.t.Fatalf("login did not set a session cookie")
	return account{}, nil
}

type postView struct {
	ID           string   `json:"_id"`
	Content      string   `json:"content"`
	MediaURLs    []string `json:"mediaUrls"`
	LikeCount    int      `json:"likeCount"`
	CommentCount int      `json:"commentCount"`
	IsLiked      bool     `json:"isLiked"`
	Author       struct {
		ID       string `json:"_id"`
		Username string `json:"username"`
	} `json:"author"`
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	var body map[string]string
	api.expect(api.do(http.MethodGet, "/healthz", nil, nil), http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	user, session := api.register("alice")

	if !session.HttpOnly || session.SameSite != http.SameSiteLaxMode || session.Path != "/" {
		t.Fatalf("unexpected cookie attributes: %+v", session)
	}
	if session.Secure {
		t.Fatalf("cookie must not be secure outside production")
	}

	var me struct {
		User struct {
			ID        string `json:"_id"`
			Email     string `json:"email"`
			Followers int    `json:"followers"`
		} `json:"user"`
	}
	api.expect(api.do(http.MethodGet, "/auth/me", nil, session), http.StatusOK, &me)
	if me.User.ID != user.ID || me.User.Email != "alice@example.com" {
		t.Fatalf("unexpected /auth/me: %+v", me)
	}
	if strings.Contains(api.do(http.MethodGet, "/auth/me", nil, session).Body.String(), "password") {
		t.Fatalf("credential leaked in response")
	}

	api.expect(api.do(http.MethodGet, "/auth/me", nil, nil), http.StatusUnauthorized, nil)

	var failure struct {
		Error string `json:"error"`
	}
	api.expect(api.do(http.MethodPost, "/auth/login", map[string]string{"email": "alice@example.com", "password": "nope"}, nil), http.StatusUnauthorized, &failure)
	if failure.Error != "Invalid password" {
		t.Fatalf("unexpected login error: %q", failure.Error)
	}
	api.expect(api.do(http.MethodPost, "/auth/login", map[string]string{"email": "bob@example.com", "password": "x"}, nil), http.StatusUnauthorized, nil)
	api.expect(api.do(http.MethodPost, "/auth/signup", map[string]string{
		"name": "Alice", "username": "alice2", "email": "alice@example.com", "password": "pw",
	}, nil), http.StatusBadRequest, nil)

	rec := api.do(http.MethodPost, "/auth/logout", nil, session)
	api.expect(rec, http.StatusOK, nil)
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("logout did not expire the cookie: %+v", cleared)
	}
}

func TestPostsFeedAndLikes(t *testing.T) {
	api := newTestAPI(t)
	alice, aliceSession := api.register("alice")
	_, bobSession := api.register("bob")

	api.expect(api.do(http.MethodPost, "/posts", map[string]any{"content": "anonymous"}, nil), http.StatusUnauthorized, nil)
	api.expect(api.do(http.MethodPost, "/posts", map[string]any{"content": ""}, aliceSession), http.StatusBadRequest, nil)

	var created struct {
		Message string   `json:"message"`
		Post    postView `json:"post"`
	}
	api.expect(api.do(http.MethodPost, "/posts", map[string]any{"content": "hello world"}, aliceSession), http.StatusOK, &created)
	if created.Message != "Post created successfully" || created.Post.Author.ID != alice.ID {
		t.Fatalf("unexpected create response: %+v", created)
	}
	postPath := "/posts/" + created.Post.ID

	var like struct {
		Message   string `json:"message"`
		Liked     bool   `json:"liked"`
		LikeCount int    `json:"likeCount"`
	}
	api.expect(api.do(http.MethodPost, postPath+"/like", nil, bobSession), http.StatusOK, &like)
	if !like.Liked || like.LikeCount != 1 || like.Message != "Post liked successfully" {
		t.Fatalf("unexpected like: %+v", like)
	}

	var feed struct {
		Posts []postView `json:"posts"`
	}
	api.expect(api.do(http.MethodGet, "/posts", nil, bobSession), http.StatusOK, &feed)
	if len(feed.Posts) != 1 || !feed.Posts[0].IsLiked || feed.Posts[0].LikeCount != 1 {
		t.Fatalf("unexpected feed for liker: %+v", feed.Posts)
	}
	api.expect(api.do(http.MethodGet, "/posts", nil, nil), http.StatusOK, &feed)
	if feed.Posts[0].IsLiked {
		t.Fatalf("anonymous viewer must not see isLiked")
	}

	api.expect(api.do(http.MethodPost, postPath+"/like", nil, bobSession), http.StatusOK, &like)
	if like.Liked || like.LikeCount != 0 || like.Message != "Post unliked successfully" {
		t.Fatalf("unexpected unlike: %+v", like)
	}

	api.expect(api.do(http.MethodGet, "/posts?type=following", nil, bobSession), http.StatusOK, &feed)
	if len(feed.Posts) != 0 {
		t.Fatalf("following feed should be empty before following, got %d", len(feed.Posts))
	}
	api.expect(api.do(http.MethodGet, "/posts?type=trending", nil, bobSession), http.StatusBadRequest, nil)

	api.expect(api.do(http.MethodPatch, postPath, map[string]any{"content": "hijacked"}, bobSession), http.StatusUnauthorized, nil)
	api.expect(api.do(http.MethodPatch, postPath, map[string]any{"content": "edited"}, aliceSession), http.StatusOK, &created)
	if created.Post.Content != "edited" {
		t.Fatalf("update not applied: %+v", created.Post)
	}

	api.expect(api.do(http.MethodDelete, postPath, nil, bobSession), http.StatusUnauthorized, nil)
	api.expect(api.do(http.MethodDelete, postPath, nil, aliceSession), http.StatusOK, nil)
	api.expect(api.do(http.MethodGet, postPath, nil, nil), http.StatusNotFound, nil)
	api.expect(api.do(http.MethodPost, postPath+"/like", nil, bobSession), http.StatusNotFound, nil)
}

func TestFollowAndProfiles(t *testing.T) {
	api := newTestAPI(t)
	alice, aliceSession := api.register("alice")
	bob, bobSession := api.register("bob")

	api.expect(api.do(http.MethodPost, "/posts", map[string]any{"content": "from alice"}, aliceSession), http.StatusOK, nil)

	var follow struct {
		Message   string `json:"message"`
		Following bool   `json:"following"`
	}
	api.expect(api.do(http.MethodPost, "/users/"+alice.ID+"/follow", nil, bobSession), http.StatusOK, &follow)
	if !follow.Following || follow.Message != "User followed successfully" {
		t.Fatalf("unexpected follow: %+v", follow)
	}
	api.expect(api.do(http.MethodPost, "/users/"+bob.ID+"/follow", nil, bobSession), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodPost, "/users/missing/follow", nil, bobSession), http.StatusNotFound, nil)

	var profile struct {
		User struct {
			Followers   int  `json:"followers"`
			PostCount   int  `json:"postCount"`
			IsFollowing bool `json:"isFollowing"`
		} `json:"user"`
	}
	api.expect(api.do(http.MethodGet, "/users/"+alice.ID, nil, bobSession), http.StatusOK, &profile)
	if profile.User.Followers != 1 || profile.User.PostCount != 1 || !profile.User.IsFollowing {
		t.Fatalf("unexpected profile: %+v", profile.User)
	}

	var followers struct {
		Followers []struct {
			ID string `json:"_id"`
		} `json:"followers"`
	}
	api.expect(api.do(http.MethodGet, "/users/"+alice.ID+"/followers", nil, nil), http.StatusOK, &followers)
	if len(followers.Followers) != 1 || followers.Followers[0].ID != bob.ID {
		t.Fatalf("unexpected followers: %+v", followers)
	}

	var feed struct {
		Posts []postView `json:"posts"`
	}
	api.expect(api.do(http.MethodGet, "/posts?type=following", nil, bobSession), http.StatusOK, &feed)
	if len(feed.Posts) != 1 || feed.Posts[0].Author.ID != alice.ID {
		t.Fatalf("following feed missing followed author's post: %+v", feed.Posts)
	}
	api.expect(api.do(http.MethodGet, "/users/"+alice.ID+"/posts", nil, nil), http.StatusOK, &feed)
	if len(feed.Posts) != 1 {
		t.Fatalf("expected one post by alice, got %d", len(feed.Posts))
	}

	api.expect(api.do(http.MethodPatch, "/users/"+alice.ID, map[string]any{"bio": "nope"}, bobSession), http.StatusUnauthorized, nil)
	var updated struct {
		Message string `json:"message"`
		User    struct {
			Bio      string `json:"bio"`
			Username string `json:"username"`
		} `json:"user"`
	}
	api.expect(api.do(http.MethodPatch, "/users/"+alice.ID, map[string]any{"bio": "hi there"}, aliceSession), http.StatusOK, &updated)
	if updated.User.Bio != "hi there" || updated.User.Username != "alice" {
		t.Fatalf("unexpected profile update: %+v", updated)
	}
	api.expect(api.do(http.MethodPatch, "/users/"+alice.ID, map[string]any{"username": "bob"}, aliceSession), http.StatusBadRequest, nil)
}

func TestComments(t *testing.T) {
	api := newTestAPI(t)
	_, aliceSession := api.register("alice")
	bob, bobSession := api.register("bob")

	var created struct {
		Post postView `json:"post"`
	}
	api.expect(api.do(http.MethodPost, "/posts", map[string]any{"content": "discuss"}, aliceSession), http.StatusOK, &created)
	commentsPath := "/posts/" + created.Post.ID + "/comments"

	api.expect(api.do(http.MethodPost, commentsPath, map[string]string{"content": "   "}, bobSession), http.StatusBadRequest, nil)

	var comment struct {
		Message string `json:"message"`
		Comment struct {
			ID     string `json:"_id"`
			Author struct {
				ID string `json:"_id"`
			} `json:"author"`
		} `json:"comment"`
	}
	api.expect(api.do(http.MethodPost, commentsPath, map[string]string{"content": "first"}, bobSession), http.StatusOK, &comment)
	if comment.Message != "Comment added successfully" || comment.Comment.Author.ID != bob.ID {
		t.Fatalf("unexpected comment: %+v", comment)
	}

	var post struct {
		Post postView `json:"post"`
	}
	api.expect(api.do(http.MethodGet, "/posts/"+created.Post.ID, nil, nil), http.StatusOK, &post)
	if post.Post.CommentCount != 1 {
		t.Fatalf("commentCount = %d", post.Post.CommentCount)
	}

	var list struct {
		Comments []struct {
			ID string `json:"_id"`
		} `json:"comments"`
	}
	api.expect(api.do(http.MethodGet, commentsPath, nil, nil), http.StatusOK, &list)
	if len(list.Comments) != 1 || list.Comments[0].ID != comment.Comment.ID {
		t.Fatalf("unexpected comment list: %+v", list)
	}

	commentPath := commentsPath + "/" + comment.Comment.ID
	api.expect(api.do(http.MethodPatch, commentPath, map[string]string{"content": "edit"}, aliceSession), http.StatusUnauthorized, nil)
	api.expect(api.do(http.MethodPatch, commentPath, map[string]string{"content": "edited"}, bobSession), http.StatusOK, nil)
	api.expect(api.do(http.MethodGet, "/posts/other/comments/"+comment.Comment.ID, nil, nil), http.StatusNotFound, nil)
	api.expect(api.do(http.MethodDelete, commentPath, nil, bobSession), http.StatusOK, nil)
	api.expect(api.do(http.MethodGet, commentPath, nil, nil), http.StatusNotFound, nil)
}

func TestUpload(t *testing.T) {
	api := newTestAPI(t)
	_, session := api.register("alice")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("\xff\xd8\xff\xe0 fake jpeg"))
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	api.expect(rec, http.StatusUnauthorized, nil)

	req = httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	var uploaded struct {
		Message  string `json:"message"`
		URL      string `json:"url"`
		PublicID string `json:"publicId"`
	}
	api.expect(rec, http.StatusOK, &uploaded)
	if uploaded.Message != "File uploaded successfully" {
		t.Fatalf("unexpected message %q", uploaded.Message)
	}
	if !strings.HasPrefix(uploaded.URL, "https://cdn.example.com/media/social-media-app/") {
		t.Fatalf("unexpected url %q", uploaded.URL)
	}
	if _, ok := api.objects.Object(uploaded.PublicID); !ok {
		t.Fatalf("object %q not stored", uploaded.PublicID)
	}

	var post struct {
		Post postView `json:"post"`
	}
	api.expect(api.do(http.MethodPost, "/posts", map[string]any{"mediaUrls": []string{uploaded.URL}}, session), http.StatusOK, &post)
	if len(post.Post.MediaURLs) != 1 || post.Post.Content != "" {
		t.Fatalf("media-only post not stored: %+v", post.Post)
	}

	empty := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("--x--\r\n"))
	empty.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	empty.AddCookie(session)
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, empty)
	api.expect(rec, http.StatusBadRequest, nil)
}

func TestFeedPagesDoNotWrap(t *testing.T) {
	api := newTestAPI(t)
	_, session := api.register("alice")
	api.expect(api.do(http.MethodPost, "/posts", map[string]any{"content": "only post"}, session), http.StatusOK, nil)

	var failure struct {
		Error string `json:"error"`
	}
	api.expect(api.do(http.MethodGet, "/posts?page=922337203685477582&limit=10", nil, nil), http.StatusBadRequest, &failure)
	if failure.Error != "Invalid page" {
		t.Fatalf("unexpected error %q", failure.Error)
	}

	var feed struct {
		Posts []postView `json:"posts"`
	}
	api.expect(api.do(http.MethodGet, "/posts?page=922337203685477580&limit=10", nil, nil), http.StatusOK, &feed)
	if len(feed.Posts) != 0 {
		t.Fatalf("page far past the end returned %d posts", len(feed.Posts))
	}
}
