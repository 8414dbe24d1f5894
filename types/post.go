package types

import "time"

// Post is a unit of user content: text, media, or both.
type Post struct {
	// ID is the unique identifier of the post.
	ID string `json:"_id" db:"id"`

	// Content is the optional text body.
	Content string `json:"content" db:"content"`

	// MediaURLs are references to media held in object storage.
	MediaURLs []string `json:"mediaUrls" db:"media_urls"`

	// AuthorID identifies the user who created the post. It never changes.
	AuthorID string `json:"author" db:"author_id"`

	// Likes holds at most one entry per liker.
	Likes []Like `json:"likes" db:"likes"`

	// CreatedAt is the server time at which the post was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Like records that a user liked a post.
type Like struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasContent reports whether the post carries text or at least one media reference.
func (p Post) HasContent() bool {
	return p.Content != "" || len(p.MediaURLs) > 0
}

// LikedBy reports whether userID has an entry in the like list.
func (p Post) LikedBy(userID string) bool {
	if userID == "" {
		return false
	}
	for _, like := range p.Likes {
		if like.UserID == userID {
			return true
		}
	}
	return false
}

// PostView is a post annotated for a particular viewer.
type PostView struct {
	ID           string    `json:"_id"`
	Content      string    `json:"content"`
	MediaURLs    []string  `json:"mediaUrls"`
	Author       Author    `json:"author"`
	Likes        []Like    `json:"likes"`
	CreatedAt    time.Time `json:"createdAt"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	IsLiked      bool      `json:"isLiked"`
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}
