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

// MongoCommentRepository handles persistence for comments in MongoDB.
type MongoCommentRepository struct {
	comments *mongo.Collection
}

func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{comments: db.Collection(commentsCollection)}
}

func (r *MongoCommentRepository) ListByPost(ctx context.Context, postID string, offset, limit int) ([]types.Comment, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return []types.Comment{}, nil
	}

	cursor, err := r.comments.Find(ctx, bson.M{"postId": oid}, pageOptions(offset, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	comments := []types.Comment{}
	for cursor.Next(ctx) {
		var doc commentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		comments = append(comments, doc.toComment())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *MongoCommentRepository) CountByPost(ctx context.Context, postID string) (int, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return 0, nil
	}
	count, err := r.comments.CountDocuments(ctx, bson.M{"postId": oid})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *MongoCommentRepository) Get(ctx context.Context, id string) (types.Comment, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return types.Comment{}, err
	}

	var doc commentDocument
	if err := r.comments.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return types.Comment{}, translateMongoError(err)
	}
	return doc.toComment(), nil
}

func (r *MongoCommentRepository) Create(ctx context.Context, comment types.Comment) (types.Comment, error) {
	author, err := parseObjectID(comment.AuthorID)
	if err != nil {
		return types.Comment{}, err
	}
	postID, err := parseObjectID(comment.PostID)
	if err != nil {
		return types.Comment{}, err
	}
	createdAt := comment.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	doc := commentDocument{
		ID:        primitive.NewObjectID(),
		Content:   comment.Content,
		Author:    author,
		PostID:    postID,
		CreatedAt: createdAt,
	}
	if _, err := r.comments.InsertOne(ctx, doc); err != nil {
		return types.Comment{}, err
	}
	return doc.toComment(), nil
}

func (r *MongoCommentRepository) UpdateContent(ctx context.Context, id, content string) (types.Comment, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return types.Comment{}, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc commentDocument
	err = r.comments.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"content": content}}, opts).Decode(&doc)
	if err != nil {
		return types.Comment{}, translateMongoError(err)
	}
	return doc.toComment(), nil
}

func (r *MongoCommentRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	result, err := r.comments.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
