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

// MongoUserRepository handles persistence for users in MongoDB.
type MongoUserRepository struct {
	users *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(usersCollection)}
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return types.User{}, translateMongoError(err)
	}
	return doc.toUser(), nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return types.User{}, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) GetByIDs(ctx context.Context, ids []string) ([]types.User, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []types.User{}, nil
	}

	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]types.User, 0, len(oids))
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, doc.toUser())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	doc := userDocument{
		ID:        primitive.NewObjectID(),
		Name:      user.Name,
		Username:  user.Username,
		Email:     user.Email,
		Password:  user.PasswordHash,
		Image:     user.Image,
		Bio:       user.Bio,
		Followers: []primitive.ObjectID{},
		Following: []primitive.ObjectID{},
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return types.User{}, translateMongoError(err)
	}
	return doc.toUser(), nil
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, user types.User) (types.User, error) {
	oid, err := parseObjectID(user.ID)
	if err != nil {
		return types.User{}, err
	}

	update := bson.M{"$set": bson.M{
		"name":     user.Name,
		"username": user.Username,
		"bio":      user.Bio,
		"image":    user.Image,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return types.User{}, translateMongoError(err)
	}
	return doc.toUser(), nil
}

// ToggleFollow flips whether actorID follows targetID. The two documents are
// updated one after the other without a transaction, so a failure between
// the writes leaves the relation recorded on one side only.
func (r *MongoUserRepository) ToggleFollow(ctx context.Context, actorID, targetID string) (bool, error) {
	actorOID, err := parseObjectID(actorID)
	if err != nil {
		return false, err
	}
	targetOID, err := parseObjectID(targetID)
	if err != nil {
		return false, err
	}

	actor, err := r.findOne(ctx, bson.M{"_id": actorOID})
	if err != nil {
		return false, err
	}
	count, err := r.users.CountDocuments(ctx, bson.M{"_id": targetOID})
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}

	following := !actor.Follows(targetID)
	op := "$addToSet"
	if !following {
		op = "$pull"
	}

	if _, err := r.users.UpdateOne(ctx, bson.M{"_id": actorOID}, bson.M{op: bson.M{"following": targetOID}}); err != nil {
		return false, err
	}
	if _, err := r.users.UpdateOne(ctx, bson.M{"_id": targetOID}, bson.M{op: bson.M{"followers": actorOID}}); err != nil {
		return false, err
	}
	return following, nil
}
