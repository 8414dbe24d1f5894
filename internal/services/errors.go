package services

import "errors"

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrEmailInUse         = errors.New("email already in use")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrNoSuchUser         = errors.New("no user found with this email")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidProfile     = errors.New("name and username cannot be empty")

	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("not the owner")
	ErrUserNotFound         = errors.New("user not found")
	ErrFollowTargetNotFound = errors.New("user to follow not found")
	ErrSelfFollow           = errors.New("you cannot follow yourself")

	ErrEmptyPost       = errors.New("post must contain text or media")
	ErrPostNotFound    = errors.New("post not found")
	ErrEmptyComment    = errors.New("comment content is required")
	ErrCommentNotFound = errors.New("comment not found")

	ErrNoMedia = errors.New("no file provided")
)
