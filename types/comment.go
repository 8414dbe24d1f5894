package types

import "time"

// Comment is a text reply attached to a post.
type Comment struct {
	ID        string    `json:"_id" db:"id"`
	Content   string    `json:"content" db:"content"`
	AuthorID  string    `json:"author" db:"author_id"`
	PostID    string    `json:"postId" db:"post_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CommentView is a comment with its author populated.
type CommentView struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}
