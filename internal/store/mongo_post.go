package store

import (
	"context"
	"time"

	"github.com/socialnet/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPostRepository handles persistence for posts in MongoDB.
type MongoPostRepository struct {
	posts    *mongo.Collection
	comments *mongo.Collection
}

func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{
		posts:    db.Collection(postsCollection),
		comments: db.Collection(commentsCollection),
	}
}

func (r *MongoPostRepository) List(ctx context.Context, filter PostFilter, offset, limit int) ([]types.Post, error) {
	query := bson.M{}
	if filter.ByAuthor {
		authors := objectIDs(filter.AuthorIDs)
		if len(authors) == 0 {
			return []types.Post{}, nil
		}
		query["author"] = bson.M{"$in": authors}
	}

	cursor, err := r.posts.Find(ctx, query, pageOptions(offset, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []types.Post{}
	for cursor.Next(ctx) {
		var doc postDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		posts = append(posts, doc.toPost())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *MongoPostRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	oid, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return 0, nil
	}
	count, err := r.posts.CountDocuments(ctx, bson.M{"author": oid})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *MongoPostRepository) Get(ctx context.Context, id string) (types.Post, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return types.Post{}, err
	}

	var doc postDocument
	if err := r.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return types.Post{}, translateMongoError(err)
	}
	return doc.toPost(), nil
}

func (r *MongoPostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	author, err := parseObjectID(post.AuthorID)
	if err != nil {
		return types.Post{}, err
	}
	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	media := post.MediaURLs
	if media == nil {
		media = []string{}
	}

	doc := postDocument{
		ID:        primitive.NewObjectID(),
		Content:   post.Content,
		MediaURLs: media,
		Author:    author,
		Likes:     []likeDocument{},
		CreatedAt: createdAt,
	}
	if _, err := r.posts.InsertOne(ctx, doc); err != nil {
		return types.Post{}, err
	}
	return doc.toPost(), nil
}

func (r *MongoPostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	oid, err := parseObjectID(post.ID)
	if err != nil {
		return types.Post{}, err
	}
	media := post.MediaURLs
	if media == nil {
		media = []string{}
	}

	update := bson.M{"$set": bson.M{"content": post.Content, "mediaUrls": media}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc postDocument
	if err := r.posts.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return types.Post{}, translateMongoError(err)
	}
	return doc.toPost(), nil
}

// Delete removes the post's comments and then the post. The two deletes are
// separate operations; comments removed before a failed post delete stay gone.
func (r *MongoPostRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	if _, err := r.comments.DeleteMany(ctx, bson.M{"postId": oid}); err != nil {
		return err
	}

	result, err := r.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike removes the caller's like if present, otherwise pushes one.
// Both updates are guarded on the like list so a liker never appears twice.
func (r *MongoPostRepository) ToggleLike(ctx context.Context, postID, userID string, at time.Time) (types.LikeResult, error) {
	oid, err := parseObjectID(postID)
	if err != nil {
		return types.LikeResult{}, err
	}
	uid, err := parseObjectID(userID)
	if err != nil {
		return types.LikeResult{}, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc postDocument
	err = r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "likes.userId": uid},
		bson.M{"$pull": bson.M{"likes": bson.M{"userId": uid}}},
		opts,
	).Decode(&doc)
	if err == nil {
		return types.LikeResult{Liked: false, LikeCount: len(doc.Likes)}, nil
	}
	if err != mongo.ErrNoDocuments {
		return types.LikeResult{}, err
	}

	err = r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "likes.userId": bson.M{"$ne": uid}},
		bson.M{"$push": bson.M{"likes": likeDocument{UserID: uid, CreatedAt: at}}},
		opts,
	).Decode(&doc)
	if err == nil {
		return types.LikeResult{Liked: true, LikeCount: len(doc.Likes)}, nil
	}
	if err != mongo.ErrNoDocuments {
		return types.LikeResult{}, err
	}

	// Either the post is gone or a concurrent request liked it in between.
	post, err := r.Get(ctx, postID)
	if err != nil {
		return types.LikeResult{}, err
	}
	return types.LikeResult{Liked: post.LikedBy(userID), LikeCount: len(post.Likes)}, nil
}
