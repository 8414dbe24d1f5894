package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/socialnet/apiserver/internal/events"
	"github.com/socialnet/apiserver/internal/store"
	"github.com/socialnet/apiserver/types"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, filter store.PostFilter, offset, limit int) ([]types.Post, error)
	CountByAuthor(ctx context.Context, authorID string) (int, error)
	Get(ctx context.Context, id string) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, postID, userID string, at time.Time) (types.LikeResult, error)
}

// CommentCounter reports how many comments reference a post.
type CommentCounter interface {
	CountByPost(ctx context.Context, postID string) (int, error)
}

// UserLookup resolves authors and callers.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]types.User, error)
}

// FeedType selects which posts a feed contains.
type FeedType string

const (
	FeedLatest    FeedType = "latest"
	FeedFollowing FeedType = "following"
)

// FeedQuery describes one page of a feed as seen by ViewerID.
type FeedQuery struct {
	Type     FeedType
	ViewerID string
	Offset   int
	Limit    int
}

// PostInput is the user-editable part of a post.
type PostInput struct {
	Content   string
	MediaURLs []string
}

// PostService encapsulates post, feed and like use-cases.
type PostService struct {
	repo     PostRepository
	comments CommentCounter
	users    UserLookup
	events   EventPublisher
	now      func() time.Time
}

func NewPostService(repo PostRepository, comments CommentCounter, users UserLookup, publisher EventPublisher) *PostService {
	if publisher == nil {
		publisher = events.NewPublisher(nil, nil)
	}
	return &PostService{
		repo:     repo,
		comments: comments,
		users:    users,
		events:   publisher,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Feed returns a page of posts, newest first. The following feed requires a
// viewer and contains only posts by users the viewer follows.
func (s *PostService) Feed(ctx context.Context, q FeedQuery) ([]types.PostView, error) {
	filter := store.PostFilter{}
	if q.Type == FeedFollowing {
		if q.ViewerID == "" {
			return nil, ErrUnauthenticated
		}
		viewer, err := s.loadUser(ctx, q.ViewerID)
		if err != nil {
			return nil, err
		}
		filter = store.PostFilter{ByAuthor: true, AuthorIDs: viewer.Following}
	}

	posts, err := s.repo.List(ctx, filter, q.Offset, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.enrich(ctx, posts, q.ViewerID)
}

// ListByAuthor returns a page of one user's posts, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID, viewerID string, offset, limit int) ([]types.PostView, error) {
	filter := store.PostFilter{ByAuthor: true, AuthorIDs: []string{authorID}}
	posts, err := s.repo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.enrich(ctx, posts, viewerID)
}

func (s *PostService) Get(ctx context.Context, id, viewerID string) (types.PostView, error) {
	post, err := s.loadPost(ctx, id)
	if err != nil {
		return types.PostView{}, err
	}
	views, err := s.enrich(ctx, []types.Post{post}, viewerID)
	if err != nil {
		return types.PostView{}, err
	}
	return views[0], nil
}

func (s *PostService) Create(ctx context.Context, authorID string, in PostInput) (types.PostView, error) {
	in = normalizePostInput(in)
	draft := types.Post{Content: in.Content, MediaURLs: in.MediaURLs}
	if !draft.HasContent() {
		return types.PostView{}, ErrEmptyPost
	}
	author, err := s.loadUser(ctx, authorID)
	if err != nil {
		return types.PostView{}, err
	}

	draft.AuthorID = author.ID
	draft.CreatedAt = s.now()
	post, err := s.repo.Create(ctx, draft)
	if err != nil {
		return types.PostView{}, fmt.Errorf("create post: %w", err)
	}

	s.events.Publish(ctx, events.New(events.PostCreated, author.ID, post.ID))
	return view(post, author.Author(), 0, ""), nil
}

// Update replaces the content and media of the actor's own post.
func (s *PostService) Update(ctx context.Context, actorID, id string, in PostInput) (types.PostView, error) {
	post, err := s.ownedPost(ctx, actorID, id)
	if err != nil {
		return types.PostView{}, err
	}

	in = normalizePostInput(in)
	post.Content = in.Content
	post.MediaURLs = in.MediaURLs
	if !post.HasContent() {
		return types.PostView{}, ErrEmptyPost
	}

	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PostView{}, ErrPostNotFound
		}
		return types.PostView{}, fmt.Errorf("update post: %w", err)
	}
	return s.Get(ctx, updated.ID, actorID)
}

// Delete removes the actor's own post and every comment on it.
func (s *PostService) Delete(ctx context.Context, actorID, id string) error {
	post, err := s.ownedPost(ctx, actorID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}

	event := events.New(events.PostDeleted, actorID, post.ID)
	event.MediaURLs = post.MediaURLs
	s.events.Publish(ctx, event)
	return nil
}

// ToggleLike likes the post for the actor, or removes an existing like.
func (s *PostService) ToggleLike(ctx context.Context, actorID, postID string) (types.LikeResult, error) {
	if _, err := s.loadUser(ctx, actorID); err != nil {
		return types.LikeResult{}, err
	}

	result, err := s.repo.ToggleLike(ctx, postID, actorID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.LikeResult{}, ErrPostNotFound
		}
		return types.LikeResult{}, fmt.Errorf("toggle like: %w", err)
	}

	eventType := events.PostUnliked
	if result.Liked {
		eventType = events.PostLiked
	}
	s.events.Publish(ctx, events.New(eventType, actorID, postID))
	return result, nil
}

func (s *PostService) ownedPost(ctx context.Context, actorID, id string) (types.Post, error) {
	if _, err := s.loadUser(ctx, actorID); err != nil {
		return types.Post{}, err
	}
	post, err := s.loadPost(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if post.AuthorID != actorID {
		return types.Post{}, ErrForbidden
	}
	return post, nil
}

// enrich populates authors and computes counts for each post. Comment counts
// are queried per post.
func (s *PostService) enrich(ctx context.Context, posts []types.Post, viewerID string) ([]types.PostView, error) {
	views := make([]types.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	authors, err := s.authors(ctx, posts)
	if err != nil {
		return nil, err
	}

	for _, post := range posts {
		commentCount, err := s.comments.CountByPost(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("count comments: %w", err)
		}
		author, ok := authors[post.AuthorID]
		if !ok {
			author = types.Author{ID: post.AuthorID}
		}
		views = append(views, view(post, author, commentCount, viewerID))
	}
	return views, nil
}

func (s *PostService) authors(ctx context.Context, posts []types.Post) (map[string]types.Author, error) {
	seen := make(map[string]bool, len(posts))
	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		if !seen[post.AuthorID] {
			seen[post.AuthorID] = true
			ids = append(ids, post.AuthorID)
		}
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	authors := make(map[string]types.Author, len(users))
	for _, user := range users {
		authors[user.ID] = user.Author()
	}
	return authors, nil
}

func (s *PostService) loadUser(ctx context.Context, id string) (types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *PostService) loadPost(ctx context.Context, id string) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, ErrPostNotFound
		}
		return types.Post{}, fmt.Errorf("load post: %w", err)
	}
	return post, nil
}

func view(post types.Post, author types.Author, commentCount int, viewerID string) types.PostView {
	media := post.MediaURLs
	if media == nil {
		media = []string{}
	}
	likes := post.Likes
	if likes == nil {
		likes = []types.Like{}
	}
	return types.PostView{
		ID:           post.ID,
		Content:      post.Content,
		MediaURLs:    media,
		Author:       author,
		Likes:        likes,
		CreatedAt:    post.CreatedAt,
		LikeCount:    len(likes),
		CommentCount: commentCount,
		IsLiked:      post.LikedBy(viewerID),
	}
}

func normalizePostInput(in PostInput) PostInput {
	media := make([]string, 0, len(in.MediaURLs))
	for _, url := range in.MediaURLs {
		if url = strings.TrimSpace(url); url != "" {
			media = append(media, url)
		}
	}
	return PostInput{Content: strings.TrimSpace(in.Content), MediaURLs: media}
}
