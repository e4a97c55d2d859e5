package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/secrets-board/internal/common"
	"github.com/Dan9191/secrets-board/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// MongoRepository stores users and posts as documents in MongoDB
type MongoRepository struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        *string            `bson:"email,omitempty"`
	PasswordHash *string            `bson:"password,omitempty"`
	GoogleID     *string            `bson:"googleId,omitempty"`
	Secret       *string            `bson:"secret,omitempty"`
}

type postDocument struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Title   string             `bson:"title"`
	Content string             `bson:"content"`
}

// OpenMongo connects to MongoDB and verifies the connection
func OpenMongo(ctx context.Context, uri, database string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	repo := NewMongoRepository(client, database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

// NewMongoRepository binds the repository to a database on a connected client
func NewMongoRepository(client *mongo.Client, database string) *MongoRepository {
	db := client.Database(database)
	return &MongoRepository{
		client: client,
		users:  db.Collection("users"),
		posts:  db.Collection("posts"),
	}
}

// EnsureIndexes creates the indexes the repository relies on
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.users.Indexes().CreateOne(ctx, googleIDIndex()); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	return nil
}

// googleIDIndex makes googleId unique across users that have one
func googleIDIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{{Key: "googleId", Value: 1}},
		Options: options.Index().
			SetName("googleId_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"googleId": bson.M{"$exists": true}}),
	}
}

// CreateUser inserts a new user document
func (r *MongoRepository) CreateUser(ctx context.Context, user *models.User) error {
	doc := toUserDocument(user)
	res, err := r.users.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	return nil
}

// FindUserByID retrieves a user by ID
func (r *MongoRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findUser(ctx, bson.M{"_id": oid})
}

// FindUserByUsername retrieves a user by username
func (r *MongoRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"username": username})
}

// FindOrCreateByGoogleID upserts on googleId. The unique googleId index makes
// the losing side of two concurrent first logins fail with a duplicate key;
// it then reads the winner's document.
func (r *MongoRepository) FindOrCreateByGoogleID(ctx context.Context, googleID, username string) (*models.User, bool, error) {
	filter := bson.M{"googleId": googleID}
	update := bson.M{"$setOnInsert": bson.M{"username": username, "googleId": googleID}}
	res, err := r.users.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))

	created := false
	switch {
	case isDuplicateKey(err):
	case err != nil:
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	default:
		created = res.UpsertedCount > 0
	}

	user, err := r.findUser(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// ListUsersWithSecrets returns every user whose secret is set
func (r *MongoRepository) ListUsersWithSecrets(ctx context.Context) ([]models.User, error) {
	cur, err := r.users.Find(ctx, bson.M{"secret": bson.M{"$ne": nil}})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]models.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toModel())
	}
	return users, nil
}

// CreatePost inserts a new post document
func (r *MongoRepository) CreatePost(ctx context.Context, post *models.Post) error {
	res, err := r.posts.InsertOne(ctx, postDocument{Title: post.Title, Content: post.Content})
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		post.ID = oid.Hex()
	}
	return nil
}

// FindPostByID retrieves a post by ID
func (r *MongoRepository) FindPostByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc postDocument
	err = r.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return doc.toModel(), nil
}

// ListPosts returns the whole posts collection in natural order
func (r *MongoRepository) ListPosts(ctx context.Context) ([]models.Post, error) {
	cur, err := r.posts.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	var docs []postDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}

	posts := make([]models.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, *docs[i].toModel())
	}
	return posts, nil
}

// UpdatePost sets title and content on an existing post
func (r *MongoRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	oid, err := objectID(post.ID)
	if err != nil {
		return err
	}
	res, err := r.posts.UpdateByID(ctx, oid, bson.M{
		"$set": bson.M{"title": post.Title, "content": post.Content},
	})
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeletePost removes a post; unknown IDs are ignored
func (r *MongoRepository) DeletePost(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	if _, err := r.posts.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// Close disconnects the client
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoRepository) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toModel(), nil
}

func isDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return oid, nil
}

func toUserDocument(u *models.User) userDocument {
	return userDocument{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		GoogleID:     u.GoogleID,
		Secret:       u.Secret,
	}
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		GoogleID:     d.GoogleID,
		Secret:       d.Secret,
	}
}

func (d *postDocument) toModel() *models.Post {
	return &models.Post{ID: d.ID.Hex(), Title: d.Title, Content: d.Content}
}
