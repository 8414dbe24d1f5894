package types

import "time"

// User represents an account in the system.
// It contains identity, profile, and the two halves of the follow graph.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"_id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Username is the unique handle chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address, used to log in.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Image is an optional avatar URL.
	Image string `json:"image" db:"image"`

	// Bio is optional free-form profile text.
	Bio string `json:"bio" db:"bio"`

	// Followers holds the identifiers of users following this user,
	// in the order they followed.
	Followers []string `json:"-" db:"followers"`

	// Following holds the identifiers of users this user follows,
	// in the order they were followed.
	Following []string `json:"-" db:"following"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Follows reports whether the user's following set contains id.
func (u User) Follows(id string) bool {
	return containsID(u.Following, id)
}

// Summary returns the compact representation used in follower lists.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Username: u.Username, Image: u.Image}
}

// Author returns the representation embedded in posts and comments.
func (u User) Author() Author {
	return Author{ID: u.ID, Name: u.Name, Username: u.Username, Image: u.Image, Email: u.Email}
}

// UserSummary is the public shape of a user in follower/following lists.
type UserSummary struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Image    string `json:"image"`
}

// Author is the populated author of a post or comment.
type Author struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Image    string `json:"image"`
	Email    string `json:"email"`
}

// Profile is a user as rendered on a profile page: the account without
// its credential, plus counts derived at read time.
type Profile struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Image       string    `json:"image"`
	Bio         string    `json:"bio"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	PostCount   int       `json:"postCount"`
	IsFollowing bool      `json:"isFollowing"`
	CreatedAt   time.Time `json:"createdAt"`
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
