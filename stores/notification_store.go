package stores

import (
	"context"

	"urbanreport-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationStore is the mongo-backed notification repository.
type NotificationStore struct {
	coll *mongo.Collection
}

func NewNotificationStore(db *mongo.Database) *NotificationStore {
	return &NotificationStore{coll: db.Collection("notifications")}
}

func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := s.coll.InsertOne(ctx, n)
	return err
}

// ListForUser returns the user's most recent notifications, newest first.
func (s *NotificationStore) ListForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, bson.M{"user": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"user": userID, "isRead": false})
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"user": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	return err
}
