package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/socialnet/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	commentsCollection = "comments"

	userEmailIndex    = "email_1"
	userUsernameIndex = "username_1"
)

// duplicateIndexPattern pulls the index name out of an E11000 message, e.g.
// "E11000 duplicate key error collection: socialnet.users index: email_1 dup key: ...".
var duplicateIndexPattern = regexp.MustCompile(`index: (\S+)`)

// newestFirst orders documents by creation time, then id, descending.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

type userDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Name      string               `bson:"name"`
	Username  string               `bson:"username"`
	Email     string               `bson:"email"`
	Password  string               `bson:"password"`
	Image     string               `bson:"image"`
	Bio       string               `bson:"bio"`
	Followers []primitive.ObjectID `bson:"followers"`
	Following []primitive.ObjectID `bson:"following"`
	CreatedAt time.Time            `bson:"createdAt"`
}

func (d userDocument) toUser() types.User {
	return types.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		Image:        d.Image,
		Bio:          d.Bio,
		Followers:    hexIDs(d.Followers),
		Following:    hexIDs(d.Following),
		CreatedAt:    d.CreatedAt,
	}
}

type likeDocument struct {
	UserID    primitive.ObjectID `bson:"userId"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type postDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Content   string             `bson:"content"`
	MediaURLs []string           `bson:"mediaUrls"`
	Author    primitive.ObjectID `bson:"author"`
	Likes     []likeDocument     `bson:"likes"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d postDocument) toPost() types.Post {
	likes := make([]types.Like, 0, len(d.Likes))
	for _, like := range d.Likes {
		likes = append(likes, types.Like{UserID: like.UserID.Hex(), CreatedAt: like.CreatedAt})
	}
	media := d.MediaURLs
	if media == nil {
		media = []string{}
	}
	return types.Post{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		MediaURLs: media,
		AuthorID:  d.Author.Hex(),
		Likes:     likes,
		CreatedAt: d.CreatedAt,
	}
}

type commentDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Content   string             `bson:"content"`
	Author    primitive.ObjectID `bson:"author"`
	PostID    primitive.ObjectID `bson:"postId"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d commentDocument) toComment() types.Comment {
	return types.Comment{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		AuthorID:  d.Author.Hex(),
		PostID:    d.PostID.Hex(),
		CreatedAt: d.CreatedAt,
	}
}

// EnsureMongoIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName(userUsernameIndex).SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(userEmailIndex).SetUnique(true)},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: newestFirst},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(commentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
	})
	return err
}

// objectIDs converts hex ids, dropping any that are malformed.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		out = append(out, oid)
	}
	return out
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

// parseObjectID treats a malformed id like a missing document.
func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func translateMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		switch duplicateIndex(err) {
		case userEmailIndex:
			return ErrDuplicateEmail
		case userUsernameIndex:
			return ErrDuplicateUsername
		default:
			return ErrDuplicate
		}
	}
	return err
}

// duplicateIndex names the unique index a duplicate key error violated. The
// key values in the message are user input, so only the index name is used.
func duplicateIndex(err error) string {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if match := duplicateIndexPattern.FindStringSubmatch(we.Message); match != nil {
				return match[1]
			}
		}
	}
	if match := duplicateIndexPattern.FindStringSubmatch(err.Error()); match != nil {
		return match[1]
	}
	return ""
}

func pageOptions(offset, limit int) *options.FindOptions {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}
	return options.Find().
		SetSort(newestFirst).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
}
