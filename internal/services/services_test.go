package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/socialnet/apiserver/internal/events"
	"github.com/socialnet/apiserver/internal/store/memory"
	"github.com/socialnet/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) eventTypes() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

type fixture struct {
	users     *UserService
	posts     *PostService
	comments  *CommentService
	publisher *recordingPublisher

	clockMu sync.Mutex
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memory.New()
	publisher := &recordingPublisher{}
	f := &fixture{
		users:     NewUserService(db.Users(), db.Posts(), publisher),
		posts:     NewPostService(db.Posts(), db.Comments(), db.Users(), publisher),
		comments:  NewCommentService(db.Comments(), db.Posts(), db.Users(), publisher),
		publisher: publisher,
		clock:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.users.bcryptCost = bcrypt.MinCost

	// Every write advances the clock so ordering by createdAt is deterministic.
	tick := func() time.Time {
		f.clockMu.Lock()
		defer f.clockMu.Unlock()
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.posts.now = tick
	f.comments.now = tick
	return f
}

func (f *fixture) signup(t *testing.T, username string) types.User {
	t.Helper()
	user, err := f.users.Signup(context.Background(), SignupInput{
		Name:     "User " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-" + username,
	})
	if err != nil {
		t.Fatalf("signup %s: %v", username, err)
	}
	return user
}

func (f *fixture) post(t *testing.T, authorID, content string) types.PostView {
	t.Helper()
	post, err := f.posts.Create(context.Background(), authorID, PostInput{Content: content})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

func TestSignupAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.Signup(ctx, SignupInput{
		Name:     "  Ada Lovelace ",
		Username: " ada ",
		Email:    " ada@example.com ",
		Password: "analytical",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Username != "ada" || user.Email != "ada@example.com" || user.Name != "Ada Lovelace" {
		t.Fatalf("fields were not trimmed: %+v", user)
	}
	if user.PasswordHash == "analytical" || user.PasswordHash == "" {
		t.Fatalf("password was not hashed")
	}

	if _, err := f.users.Authenticate(ctx, "ada@example.com", "analytical"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := f.users.Authenticate(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if _, err := f.users.Authenticate(ctx, "nobody@example.com", "analytical"); !errors.Is(err, ErrNoSuchUser) {
		t.Fatalf("expected ErrNoSuchUser, got %v", err)
	}
	if _, err := f.users.Authenticate(ctx, "", "analytical"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "grace")

	tests := []struct {
		name string
		in   SignupInput
		want error
	}{
		{"missing name", SignupInput{Username: "x", Email: "x@example.com", Password: "p"}, ErrMissingFields},
		{"blank username", SignupInput{Name: "X", Username: "   ", Email: "x@example.com", Password: "p"}, ErrMissingFields},
		{"missing password", SignupInput{Name: "X", Username: "x", Email: "x@example.com"}, ErrMissingFields},
		{"email taken", SignupInput{Name: "X", Username: "x", Email: "grace@example.com", Password: "p"}, ErrEmailInUse},
		{"username taken", SignupInput{Name: "X", Username: "grace", Email: "x@example.com", Password: "p"}, ErrUsernameTaken},
		{"email checked first", SignupInput{Name: "X", Username: "grace", Email: "grace@example.com", Password: "p"}, ErrEmailInUse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.users.Signup(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestToggleFollowKeepsBothSidesInStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")

	following, err := f.users.ToggleFollow(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	if !following {
		t.Fatalf("expected following after first toggle")
	}

	bobProfile, err := f.users.Profile(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if bobProfile.Followers != 1 || !bobProfile.IsFollowing {
		t.Fatalf("unexpected profile after follow: %+v", bobProfile)
	}
	aliceProfile, err := f.users.Profile(ctx, alice.ID, "")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if aliceProfile.Following != 1 || aliceProfile.IsFollowing {
		t.Fatalf("unexpected profile for anonymous viewer: %+v", aliceProfile)
	}

	followers, err := f.users.Followers(ctx, bob.ID, 0, 10)
	if err != nil {
		t.Fatalf("followers: %v", err)
	}
	if len(followers) != 1 || followers[0].ID != alice.ID {
		t.Fatalf("unexpected followers: %+v", followers)
	}

	following, err = f.users.ToggleFollow(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if following {
		t.Fatalf("expected not following after second toggle")
	}
	bobProfile, _ = f.users.Profile(ctx, bob.ID, alice.ID)
	aliceProfile, _ = f.users.Profile(ctx, alice.ID, alice.ID)
	if bobProfile.Followers != 0 || aliceProfile.Following != 0 || bobProfile.IsFollowing {
		t.Fatalf("relation not removed on both sides: bob=%+v alice=%+v", bobProfile, aliceProfile)
	}

	got := f.publisher.eventTypes()
	want := []events.Type{events.UserFollowed, events.UserUnfollowed}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestToggleFollowErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	if _, err := f.users.ToggleFollow(ctx, alice.ID, alice.ID); !errors.Is(err, ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow, got %v", err)
	}
	if _, err := f.users.ToggleFollow(ctx, alice.ID, "missing"); !errors.Is(err, ErrFollowTargetNotFound) {
		t.Fatalf("expected ErrFollowTargetNotFound, got %v", err)
	}
	if _, err := f.users.ToggleFollow(ctx, "ghost", alice.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	profile, _ := f.users.Profile(ctx, alice.ID, "")
	if profile.Followers != 0 || profile.Following != 0 {
		t.Fatalf("failed toggles changed state: %+v", profile)
	}
}

func TestFollowListsPaginateInInsertionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := f.signup(t, "target")

	var ids []string
	for i := 0; i < 5; i++ {
		u := f.signup(t, fmt.Sprintf("fan%d", i))
		if _, err := f.users.ToggleFollow(ctx, u.ID, target.ID); err != nil {
			t.Fatalf("follow: %v", err)
		}
		ids = append(ids, u.ID)
	}

	page, err := f.users.Followers(ctx, target.ID, 2, 2)
	if err != nil {
		t.Fatalf("followers: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[2] || page[1].ID != ids[3] {
		t.Fatalf("unexpected page: %+v", page)
	}

	empty, err := f.users.Followers(ctx, target.ID, 10, 2)
	if err != nil {
		t.Fatalf("followers: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil page, got %#v", empty)
	}

	if _, err := f.users.Following(ctx, "missing", 0, 10); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")

	bio := "mathematician"
	updated, err := f.users.UpdateProfile(ctx, alice.ID, alice.ID, ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Bio != bio || updated.Name != alice.Name || updated.Username != alice.Username {
		t.Fatalf("absent fields changed: %+v", updated)
	}

	taken := "bob"
	if _, err := f.users.UpdateProfile(ctx, alice.ID, alice.ID, ProfileUpdate{Username: &taken}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	same := "alice"
	if _, err := f.users.UpdateProfile(ctx, alice.ID, alice.ID, ProfileUpdate{Username: &same}); err != nil {
		t.Fatalf("keeping own username should succeed: %v", err)
	}

	if _, err := f.users.UpdateProfile(ctx, bob.ID, alice.ID, ProfileUpdate{Bio: &bio}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	blank := "  "
	if _, err := f.users.UpdateProfile(ctx, alice.ID, alice.ID, ProfileUpdate{Name: &blank}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestProfileCountsPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	f.post(t, alice.ID, "one")
	f.post(t, alice.ID, "two")

	profile, err := f.users.Profile(ctx, alice.ID, "")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.PostCount != 2 {
		t.Fatalf("postCount = %d, want 2", profile.PostCount)
	}

	if _, err := f.users.Profile(ctx, "missing", ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestToggleLikeIsIdempotentPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	post := f.post(t, alice.ID, "hello")

	result, err := f.posts.ToggleLike(ctx, bob.ID, post.ID)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !result.Liked || result.LikeCount != 1 {
		t.Fatalf("unexpected like result: %+v", result)
	}

	view, err := f.posts.Get(ctx, post.ID, bob.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !view.IsLiked || view.LikeCount != 1 || len(view.Likes) != 1 || view.Likes[0].UserID != bob.ID {
		t.Fatalf("unexpected view after like: %+v", view)
	}
	if anon, _ := f.posts.Get(ctx, post.ID, ""); anon.IsLiked {
		t.Fatalf("anonymous viewer must not see isLiked")
	}

	result, err = f.posts.ToggleLike(ctx, bob.ID, post.ID)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if result.Liked || result.LikeCount != 0 {
		t.Fatalf("unexpected unlike result: %+v", result)
	}

	if _, err := f.posts.ToggleLike(ctx, bob.ID, "missing"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestConcurrentLikesKeepOneEntryPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	post := f.post(t, alice.ID, "popular")

	var likers []types.User
	for i := 0; i < 8; i++ {
		likers = append(likers, f.signup(t, fmt.Sprintf("liker%d", i)))
	}

	var wg sync.WaitGroup
	for _, liker := range likers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.posts.ToggleLike(ctx, id, post.ID); err != nil {
				t.Errorf("like: %v", err)
			}
		}(liker.ID)
	}
	wg.Wait()

	view, err := f.posts.Get(ctx, post.ID, "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.LikeCount != len(likers) {
		t.Fatalf("likeCount = %d, want %d", view.LikeCount, len(likers))
	}
	seen := map[string]bool{}
	for _, like := range view.Likes {
		if seen[like.UserID] {
			t.Fatalf("duplicate like entry for %s", like.UserID)
		}
		seen[like.UserID] = true
	}
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	if _, err := f.posts.Create(ctx, alice.ID, PostInput{Content: "   "}); !errors.Is(err, ErrEmptyPost) {
		t.Fatalf("expected ErrEmptyPost, got %v", err)
	}
	if _, err := f.posts.Create(ctx, alice.ID, PostInput{MediaURLs: []string{" "}}); !errors.Is(err, ErrEmptyPost) {
		t.Fatalf("blank media urls should not count, got %v", err)
	}
	if _, err := f.posts.Create(ctx, "ghost", PostInput{Content: "hi"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	media, err := f.posts.Create(ctx, alice.ID, PostInput{MediaURLs: []string{"https://cdn.example.com/a.png"}})
	if err != nil {
		t.Fatalf("media-only post: %v", err)
	}
	if media.Content != "" || len(media.MediaURLs) != 1 || media.LikeCount != 0 || media.CommentCount != 0 {
		t.Fatalf("unexpected media post: %+v", media)
	}
	if media.Author.ID != alice.ID || media.Author.Email != alice.Email {
		t.Fatalf("author not populated: %+v", media.Author)
	}
}

func TestFeedOrderingAndFollowingFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	carol := f.signup(t, "carol")

	first := f.post(t, bob.ID, "first")
	f.post(t, carol.ID, "second")
	third := f.post(t, bob.ID, "third")

	latest, err := f.posts.Feed(ctx, FeedQuery{Type: FeedLatest, Offset: 0, Limit: 10})
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest) != 3 || latest[0].ID != third.ID || latest[2].ID != first.ID {
		t.Fatalf("latest feed not newest first: %+v", latest)
	}

	empty, err := f.posts.Feed(ctx, FeedQuery{Type: FeedFollowing, ViewerID: alice.ID, Limit: 10})
	if err != nil {
		t.Fatalf("following feed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty feed for user following nobody, got %d posts", len(empty))
	}

	if _, err := f.users.ToggleFollow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	following, err := f.posts.Feed(ctx, FeedQuery{Type: FeedFollowing, ViewerID: alice.ID, Limit: 10})
	if err != nil {
		t.Fatalf("following feed: %v", err)
	}
	if len(following) != 2 {
		t.Fatalf("expected 2 posts from bob, got %d", len(following))
	}
	for _, post := range following {
		if post.Author.ID != bob.ID {
			t.Fatalf("post by %s leaked into following feed", post.Author.ID)
		}
	}

	if _, err := f.posts.Feed(ctx, FeedQuery{Type: FeedFollowing, Limit: 10}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	page2, err := f.posts.Feed(ctx, FeedQuery{Type: FeedLatest, Offset: 2, Limit: 2})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != first.ID {
		t.Fatalf("unexpected second page: %+v", page2)
	}
}

func TestFeedBreaksTimestampTiesByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.posts.now = func() time.Time { return fixed }
	a := f.post(t, alice.ID, "a")
	b := f.post(t, alice.ID, "b")

	feed, err := f.posts.Feed(ctx, FeedQuery{Type: FeedLatest, Limit: 10})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	wantFirst := a.ID
	if b.ID > a.ID {
		wantFirst = b.ID
	}
	if feed[0].ID != wantFirst {
		t.Fatalf("tie not broken by descending id: got %s first", feed[0].ID)
	}
}

func TestFeedCountsComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	post := f.post(t, alice.ID, "discuss")

	for i := 0; i < 3; i++ {
		if _, err := f.comments.Create(ctx, bob.ID, post.ID, fmt.Sprintf("comment %d", i)); err != nil {
			t.Fatalf("comment: %v", err)
		}
	}

	posts, err := f.posts.ListByAuthor(ctx, alice.ID, bob.ID, 0, 10)
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(posts) != 1 || posts[0].CommentCount != 3 {
		t.Fatalf("unexpected posts: %+v", posts)
	}
}

func TestPostOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	post := f.post(t, alice.ID, "mine")

	if _, err := f.posts.Update(ctx, bob.ID, post.ID, PostInput{Content: "hijack"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on update, got %v", err)
	}
	if err := f.posts.Delete(ctx, bob.ID, post.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}

	updated, err := f.posts.Update(ctx, alice.ID, post.ID, PostInput{MediaURLs: []string{"https://cdn.example.com/x.jpg"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Content != "" || len(updated.MediaURLs) != 1 {
		t.Fatalf("update must replace content and media wholesale: %+v", updated)
	}
	if !updated.CreatedAt.Equal(post.CreatedAt) || updated.Author.ID != alice.ID {
		t.Fatalf("update changed immutable fields: %+v", updated)
	}

	if _, err := f.posts.Update(ctx, alice.ID, post.ID, PostInput{}); !errors.Is(err, ErrEmptyPost) {
		t.Fatalf("expected ErrEmptyPost, got %v", err)
	}
	if _, err := f.posts.Update(ctx, alice.ID, "missing", PostInput{Content: "x"}); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestDeletePostCascadesComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	post, err := f.posts.Create(ctx, alice.ID, PostInput{
		Content:   "bye",
		MediaURLs: []string{"https://cdn.example.com/bye.png"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	comment, err := f.comments.Create(ctx, bob.ID, post.ID, "nice")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}

	if err := f.posts.Delete(ctx, alice.ID, post.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.posts.Get(ctx, post.ID, ""); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected post to be gone, got %v", err)
	}
	if _, err := f.comments.Get(ctx, post.ID, comment.ID); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("expected comment to be gone, got %v", err)
	}
	remaining, err := f.comments.List(ctx, post.ID, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("orphaned comments: %+v", remaining)
	}

	f.publisher.mu.Lock()
	last := f.publisher.events[len(f.publisher.events)-1]
	f.publisher.mu.Unlock()
	if last.Type != events.PostDeleted || last.SubjectID != post.ID || len(last.MediaURLs) != 1 {
		t.Fatalf("unexpected delete event: %+v", last)
	}
}

func TestCommentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	post := f.post(t, alice.ID, "post")
	other := f.post(t, alice.ID, "other")

	if _, err := f.comments.Create(ctx, bob.ID, post.ID, "  "); !errors.Is(err, ErrEmptyComment) {
		t.Fatalf("expected ErrEmptyComment, got %v", err)
	}
	if _, err := f.comments.Create(ctx, bob.ID, "missing", "hi"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}

	older, err := f.comments.Create(ctx, bob.ID, post.ID, "first")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	newer, err := f.comments.Create(ctx, alice.ID, post.ID, "second")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if older.Author.Username != "bob" || older.PostID != post.ID {
		t.Fatalf("unexpected comment view: %+v", older)
	}

	list, err := f.comments.List(ctx, post.ID, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("comments not newest first: %+v", list)
	}

	// The post author has no rights over other people's comments.
	if _, err := f.comments.Update(ctx, alice.ID, post.ID, older.ID, "edited"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.comments.Delete(ctx, alice.ID, post.ID, older.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := f.comments.Update(ctx, bob.ID, other.ID, older.ID, "edited"); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("comment addressed through the wrong post should be not found, got %v", err)
	}

	edited, err := f.comments.Update(ctx, bob.ID, post.ID, older.ID, " edited ")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if edited.Content != "edited" || !edited.CreatedAt.Equal(older.CreatedAt) {
		t.Fatalf("unexpected edit: %+v", edited)
	}
	if _, err := f.comments.Update(ctx, bob.ID, post.ID, older.ID, ""); !errors.Is(err, ErrEmptyComment) {
		t.Fatalf("expected ErrEmptyComment, got %v", err)
	}

	if err := f.comments.Delete(ctx, bob.ID, post.ID, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.comments.Delete(ctx, bob.ID, post.ID, older.ID); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("expected ErrCommentNotFound, got %v", err)
	}
}
