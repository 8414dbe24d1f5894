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

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	ListByPost(ctx context.Context, postID string, offset, limit int) ([]types.Comment, error)
	CountByPost(ctx context.Context, postID string) (int, error)
	Get(ctx context.Context, id string) (types.Comment, error)
	Create(ctx context.Context, comment types.Comment) (types.Comment, error)
	UpdateContent(ctx context.Context, id, content string) (types.Comment, error)
	Delete(ctx context.Context, id string) error
}

// PostLookup resolves the post a comment is attached to.
type PostLookup interface {
	Get(ctx context.Context, id string) (types.Post, error)
}

// CommentService encapsulates comment use-cases. Ownership is checked per
// comment: the author of the post has no extra rights over its comments.
type CommentService struct {
	repo   CommentRepository
	posts  PostLookup
	users  UserLookup
	events EventPublisher
	now    func() time.Time
}

func NewCommentService(repo CommentRepository, posts PostLookup, users UserLookup, publisher EventPublisher) *CommentService {
	if publisher == nil {
		publisher = events.NewPublisher(nil, nil)
	}
	return &CommentService{
		repo:   repo,
		posts:  posts,
		users:  users,
		events: publisher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns a page of a post's comments, newest first.
func (s *CommentService) List(ctx context.Context, postID string, offset, limit int) ([]types.CommentView, error) {
	comments, err := s.repo.ListByPost(ctx, postID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return s.populate(ctx, comments)
}

// Get returns one comment of a post.
func (s *CommentService) Get(ctx context.Context, postID, id string) (types.CommentView, error) {
	comment, err := s.load(ctx, postID, id)
	if err != nil {
		return types.CommentView{}, err
	}
	return s.populateOne(ctx, comment)
}

func (s *CommentService) Create(ctx context.Context, actorID, postID, content string) (types.CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.CommentView{}, ErrEmptyComment
	}
	if _, err := s.loadUser(ctx, actorID); err != nil {
		return types.CommentView{}, err
	}
	if _, err := s.posts.Get(ctx, postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.CommentView{}, ErrPostNotFound
		}
		return types.CommentView{}, fmt.Errorf("load post: %w", err)
	}

	comment, err := s.repo.Create(ctx, types.Comment{
		Content:   content,
		AuthorID:  actorID,
		PostID:    postID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return types.CommentView{}, fmt.Errorf("create comment: %w", err)
	}

	s.events.Publish(ctx, events.New(events.CommentCreated, actorID, comment.ID))
	return s.populateOne(ctx, comment)
}

// Update replaces the text of the actor's own comment.
func (s *CommentService) Update(ctx context.Context, actorID, postID, id, content string) (types.CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.CommentView{}, ErrEmptyComment
	}
	if _, err := s.owned(ctx, actorID, postID, id); err != nil {
		return types.CommentView{}, err
	}

	updated, err := s.repo.UpdateContent(ctx, id, content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.CommentView{}, ErrCommentNotFound
		}
		return types.CommentView{}, fmt.Errorf("update comment: %w", err)
	}
	return s.populateOne(ctx, updated)
}

// Delete removes the actor's own comment.
func (s *CommentService) Delete(ctx context.Context, actorID, postID, id string) error {
	if _, err := s.owned(ctx, actorID, postID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *CommentService) owned(ctx context.Context, actorID, postID, id string) (types.Comment, error) {
	if _, err := s.loadUser(ctx, actorID); err != nil {
		return types.Comment{}, err
	}
	comment, err := s.load(ctx, postID, id)
	if err != nil {
		return types.Comment{}, err
	}
	if comment.AuthorID != actorID {
		return types.Comment{}, ErrForbidden
	}
	return comment, nil
}

// load fetches a comment and checks that it belongs to postID.
func (s *CommentService) load(ctx context.Context, postID, id string) (types.Comment, error) {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Comment{}, ErrCommentNotFound
		}
		return types.Comment{}, fmt.Errorf("load comment: %w", err)
	}
	if comment.PostID != postID {
		return types.Comment{}, ErrCommentNotFound
	}
	return comment, nil
}

func (s *CommentService) loadUser(ctx context.Context, id string) (types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *CommentService) populateOne(ctx context.Context, comment types.Comment) (types.CommentView, error) {
	views, err := s.populate(ctx, []types.Comment{comment})
	if err != nil {
		return types.CommentView{}, err
	}
	return views[0], nil
}

func (s *CommentService) populate(ctx context.Context, comments []types.Comment) ([]types.CommentView, error) {
	views := make([]types.CommentView, 0, len(comments))
	if len(comments) == 0 {
		return views, nil
	}

	ids := make([]string, 0, len(comments))
	for _, comment := range comments {
		ids = append(ids, comment.AuthorID)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	authors := make(map[string]types.Author, len(users))
	for _, user := range users {
		authors[user.ID] = user.Author()
	}

	for _, comment := range comments {
		author, ok := authors[comment.AuthorID]
		if !ok {
			author = types.Author{ID: comment.AuthorID}
		}
		views = append(views, types.CommentView{
			ID:        comment.ID,
			Content:   comment.Content,
			Author:    author,
			PostID:    comment.PostID,
			CreatedAt: comment.CreatedAt,
		})
	}
	return views, nil
}
