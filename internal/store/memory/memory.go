// Package memory provides in-process implementations of the repositories,
// used by DB_DRIVER=memory for local development and by the test suites.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/socialnet/apiserver/internal/store"
	"github.com/socialnet/apiserver/types"
)

// DB holds every collection behind a single lock, which makes each
// repository call atomic.
type DB struct {
	mu       sync.Mutex
	users    map[string]types.User
	posts    map[string]types.Post
	comments map[string]types.Comment
}

func New() *DB {
	return &DB{
		users:    make(map[string]types.User),
		posts:    make(map[string]types.Post),
		comments: make(map[string]types.Comment),
	}
}

func (db *DB) Users() *UserRepository       { return &UserRepository{db: db} }
func (db *DB) Posts() *PostRepository       { return &PostRepository{db: db} }
func (db *DB) Comments() *CommentRepository { return &CommentRepository{db: db} }

// UserRepository stores users in memory.
type UserRepository struct {
	db *DB
}

func (r *UserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return copyUser(user), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Email == email })
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == username })
}

func (r *UserRepository) find(match func(types.User) bool) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, user := range r.db.users {
		if match(user) {
			return copyUser(user), nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) GetByIDs(_ context.Context, ids []string) ([]types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	users := make([]types.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.db.users[id]; ok {
			users = append(users, copyUser(user))
		}
	}
	return users, nil
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
		if existing.Username == user.Username {
			return types.User{}, store.ErrDuplicateUsername
		}
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.Followers = []string{}
	user.Following = []string{}
	r.db.users[user.ID] = user
	return copyUser(user), nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, existing := range r.db.users {
		if id != user.ID && existing.Username == user.Username {
			return types.User{}, store.ErrDuplicateUsername
		}
	}

	current.Name = user.Name
	current.Username = user.Username
	current.Bio = user.Bio
	current.Image = user.Image
	r.db.users[user.ID] = current
	return copyUser(current), nil
}

func (r *UserRepository) ToggleFollow(_ context.Context, actorID, targetID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	actor, ok := r.db.users[actorID]
	if !ok {
		return false, store.ErrNotFound
	}
	target, ok := r.db.users[targetID]
	if !ok {
		return false, store.ErrNotFound
	}

	following := !actor.Follows(targetID)
	if following {
		actor.Following = append(copyStrings(actor.Following), targetID)
		target.Followers = append(copyStrings(target.Followers), actorID)
	} else {
		actor.Following = without(actor.Following, targetID)
		target.Followers = without(target.Followers, actorID)
	}
	r.db.users[actorID] = actor
	r.db.users[targetID] = target
	return following, nil
}

// PostRepository stores posts in memory.
type PostRepository struct {
	db *DB
}

func (r *PostRepository) List(_ context.Context, filter store.PostFilter, offset, limit int) ([]types.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	authors := make(map[string]bool, len(filter.AuthorIDs))
	for _, id := range filter.AuthorIDs {
		authors[id] = true
	}

	matched := make([]types.Post, 0, len(r.db.posts))
	for _, post := range r.db.posts {
		if filter.ByAuthor && !authors[post.AuthorID] {
			continue
		}
		matched = append(matched, post)
	}
	sort.Slice(matched, func(i, j int) bool {
		return newer(matched[i].CreatedAt, matched[i].ID, matched[j].CreatedAt, matched[j].ID)
	})

	page := paginate(len(matched), offset, limit)
	posts := make([]types.Post, 0, page.end-page.start)
	for _, post := range matched[page.start:page.end] {
		posts = append(posts, copyPost(post))
	}
	return posts, nil
}

func (r *PostRepository) CountByAuthor(_ context.Context, authorID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	total := 0
	for _, post := range r.db.posts {
		if post.AuthorID == authorID {
			total++
		}
	}
	return total, nil
}

func (r *PostRepository) Get(_ context.Context, id string) (types.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	post, ok := r.db.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return copyPost(post), nil
}

func (r *PostRepository) Create(_ context.Context, post types.Post) (types.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	post.ID = uuid.NewString()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.MediaURLs = copyStrings(post.MediaURLs)
	post.Likes = []types.Like{}
	r.db.posts[post.ID] = post
	return copyPost(post), nil
}

func (r *PostRepository) Update(_ context.Context, post types.Post) (types.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.posts[post.ID]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	current.Content = post.Content
	current.MediaURLs = copyStrings(post.MediaURLs)
	r.db.posts[post.ID] = current
	return copyPost(current), nil
}

func (r *PostRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for commentID, comment := range r.db.comments {
		if comment.PostID == id {
			delete(r.db.comments, commentID)
		}
	}
	if _, ok := r.db.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.posts, id)
	return nil
}

func (r *PostRepository) ToggleLike(_ context.Context, postID, userID string, at time.Time) (types.LikeResult, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	post, ok := r.db.posts[postID]
	if !ok {
		return types.LikeResult{}, store.ErrNotFound
	}

	liked := !post.LikedBy(userID)
	likes := make([]types.Like, 0, len(post.Likes)+1)
	for _, like := range post.Likes {
		if like.UserID != userID {
			likes = append(likes, like)
		}
	}
	if liked {
		likes = append(likes, types.Like{UserID: userID, CreatedAt: at})
	}
	post.Likes = likes
	r.db.posts[postID] = post
	return types.LikeResult{Liked: liked, LikeCount: len(likes)}, nil
}

// CommentRepository stores comments in memory.
type CommentRepository struct {
	db *DB
}

func (r *CommentRepository) ListByPost(_ context.Context, postID string, offset, limit int) ([]types.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	matched := make([]types.Comment, 0)
	for _, comment := range r.db.comments {
		if comment.PostID == postID {
			matched = append(matched, comment)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return newer(matched[i].CreatedAt, matched[i].ID, matched[j].CreatedAt, matched[j].ID)
	})

	page := paginate(len(matched), offset, limit)
	return append([]types.Comment{}, matched[page.start:page.end]...), nil
}

func (r *CommentRepository) CountByPost(_ context.Context, postID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	total := 0
	for _, comment := range r.db.comments {
		if comment.PostID == postID {
			total++
		}
	}
	return total, nil
}

func (r *CommentRepository) Get(_ context.Context, id string) (types.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	comment, ok := r.db.comments[id]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	return comment, nil
}

func (r *CommentRepository) Create(_ context.Context, comment types.Comment) (types.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	comment.ID = uuid.NewString()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	r.db.comments[comment.ID] = comment
	return comment, nil
}

func (r *CommentRepository) UpdateContent(_ context.Context, id, content string) (types.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	comment, ok := r.db.comments[id]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	comment.Content = content
	r.db.comments[id] = comment
	return comment, nil
}

func (r *CommentRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.comments[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.comments, id)
	return nil
}

type window struct {
	start, end int
}

func paginate(total, offset, limit int) window {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return window{start: offset, end: end}
}

func newer(a time.Time, aID string, b time.Time, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func copyStrings(values []string) []string {
	return append([]string{}, values...)
}

func without(values []string, value string) []string {
	out := make([]string, 0, len(values))
	for _, candidate := range values {
		if candidate != value {
			out = append(out, candidate)
		}
	}
	return out
}

func copyUser(user types.User) types.User {
	user.Followers = copyStrings(user.Followers)
	user.Following = copyStrings(user.Following)
	return user
}

func copyPost(post types.Post) types.Post {
	post.MediaURLs = copyStrings(post.MediaURLs)
	post.Likes = append([]types.Like{}, post.Likes...)
	return post
}
