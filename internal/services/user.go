package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/socialnet/apiserver/internal/events"
	"github.com/socialnet/apiserver/internal/store"
	"github.com/socialnet/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, user types.User) (types.User, error)
	ToggleFollow(ctx context.Context, actorID, targetID string) (bool, error)
}

// PostCounter reports how many posts a user has written.
type PostCounter interface {
	CountByAuthor(ctx context.Context, authorID string) (int, error)
}

// EventPublisher receives domain events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

// ProfileUpdate lists the profile fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	Name     *string
	Username *string
	Bio      *string
	Image    *string
}

// UserService encapsulates account, profile and follow use-cases.
type UserService struct {
	repo       UserRepository
	posts      PostCounter
	events     EventPublisher
	bcryptCost int
}

func NewUserService(repo UserRepository, posts PostCounter, publisher EventPublisher) *UserService {
	if publisher == nil {
		publisher = events.NewPublisher(nil, nil)
	}
	return &UserService{
		repo:       repo,
		posts:      posts,
		events:     publisher,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Signup validates and stores a new account with a bcrypt-hashed password.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (types.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return types.User{}, ErrMissingFields
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.repo.GetByUsername(ctx, in.Username); err == nil {
		return types.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check username: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return types.User{}, uniqueViolation(err)
	}
	return user, nil
}

// Authenticate checks an email/password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return types.User{}, ErrMissingCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNoSuchUser
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidPassword
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Profile renders a user for viewerID, who may be empty for anonymous callers.
func (s *UserService) Profile(ctx context.Context, id, viewerID string) (types.Profile, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return types.Profile{}, err
	}

	postCount, err := s.posts.CountByAuthor(ctx, user.ID)
	if err != nil {
		return types.Profile{}, fmt.Errorf("count posts: %w", err)
	}

	isFollowing := false
	if viewerID != "" {
		viewer, err := s.repo.GetByID(ctx, viewerID)
		switch {
		case err == nil:
			isFollowing = viewer.Follows(user.ID)
		case !errors.Is(err, store.ErrNotFound):
			return types.Profile{}, fmt.Errorf("load viewer: %w", err)
		}
	}

	return types.Profile{
		ID:          user.ID,
		Name:        user.Name,
		Username:    user.Username,
		Email:       user.Email,
		Image:       user.Image,
		Bio:         user.Bio,
		Followers:   len(user.Followers),
		Following:   len(user.Following),
		PostCount:   postCount,
		IsFollowing: isFollowing,
		CreatedAt:   user.CreatedAt,
	}, nil
}

// UpdateProfile applies the supplied fields to the caller's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, actorID, id string, update ProfileUpdate) (types.User, error) {
	if actorID == "" || actorID != id {
		return types.User{}, ErrForbidden
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.Image != nil {
		user.Image = strings.TrimSpace(*update.Image)
	}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username != user.Username {
			existing, err := s.repo.GetByUsername(ctx, username)
			if err == nil && existing.ID != user.ID {
				return types.User{}, ErrUsernameTaken
			}
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return types.User{}, fmt.Errorf("check username: %w", err)
			}
		}
		user.Username = username
	}
	if user.Name == "" || user.Username == "" {
		return types.User{}, ErrInvalidProfile
	}

	updated, err := s.repo.UpdateProfile(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, uniqueViolation(err)
	}
	return updated, nil
}

// ToggleFollow follows targetID if the actor does not already, otherwise
// unfollows. It returns whether the actor follows the target afterwards.
func (s *UserService) ToggleFollow(ctx context.Context, actorID, targetID string) (bool, error) {
	if _, err := s.GetByID(ctx, actorID); err != nil {
		return false, err
	}
	if _, err := s.repo.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrFollowTargetNotFound
		}
		return false, fmt.Errorf("load target: %w", err)
	}
	if actorID == targetID {
		return false, ErrSelfFollow
	}

	following, err := s.repo.ToggleFollow(ctx, actorID, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrFollowTargetNotFound
		}
		return false, fmt.Errorf("toggle follow: %w", err)
	}

	eventType := events.UserUnfollowed
	if following {
		eventType = events.UserFollowed
	}
	s.events.Publish(ctx, events.New(eventType, actorID, targetID))
	return following, nil
}

// Followers returns a page of the users following id, oldest follow first.
func (s *UserService) Followers(ctx context.Context, id string, offset, limit int) ([]types.UserSummary, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, user.Followers, offset, limit)
}

// Following returns a page of the users id follows, oldest follow first.
func (s *UserService) Following(ctx context.Context, id string, offset, limit int) ([]types.UserSummary, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, user.Following, offset, limit)
}

func (s *UserService) summaries(ctx context.Context, ids []string, offset, limit int) ([]types.UserSummary, error) {
	page := pageOf(ids, offset, limit)
	if len(page) == 0 {
		return []types.UserSummary{}, nil
	}

	users, err := s.repo.GetByIDs(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	byID := make(map[string]types.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	out := make([]types.UserSummary, 0, len(page))
	for _, id := range page {
		if user, ok := byID[id]; ok {
			out = append(out, user.Summary())
		}
	}
	return out, nil
}

func pageOf(ids []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) || limit < 1 {
		return nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end]
}

func uniqueViolation(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		return ErrEmailInUse
	case errors.Is(err, store.ErrDuplicateUsername):
		return ErrUsernameTaken
	default:
		return fmt.Errorf("save user: %w", err)
	}
}
