package stores

import (
	"context"
	"errors"
	"time"

	"urbanreport-be/models"
	"urbanreport-be/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IssueStore is the mongo-backed issue repository.
type IssueStore struct {
	coll *mongo.Collection
}

func NewIssueStore(db *mongo.Database) *IssueStore {
	return &IssueStore{coll: db.Collection("issues")}
}

func (s *IssueStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &issue, nil
}

func (s *IssueStore) Insert(ctx context.Context, issue *models.Issue) error {
	_, err := s.coll.InsertOne(ctx, issue)
	return err
}

func (s *IssueStore) Update(ctx context.Context, issue *models.Issue) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": issue.ID}, issue)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

// CountOpenByArea counts issues in the area whose status is not Resolved.
// Feeds the priority engine's area density term.
func (s *IssueStore) CountOpenByArea(ctx context.Context, area string) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{
		"area":   area,
		"status": bson.M{"$ne": models.Resolved},
	})
}

// ToggleUpvote removes the user's upvote when present, otherwise adds it.
// Each branch is a single conditional update, so concurrent toggles from
// different users never overwrite each other's membership.
func (s *IssueStore) ToggleUpvote(ctx context.Context, issueID, userID primitive.ObjectID) (bool, int, error) {
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var issue models.Issue
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": issueID, "upvotes": userID},
		bson.M{"$pull": bson.M{"upvotes": userID}, "$set": bson.M{"updatedAt": time.Now()}},
		after,
	).Decode(&issue)
	if err == nil {
		return false, len(issue.Upvotes), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, 0, err
	}

	// No vote present: add one. The filter matches only the issue itself,
	// so this fails with ErrNoDocuments only when the issue is missing.
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": issueID},
		bson.M{"$addToSet": bson.M{"upvotes": userID}, "$set": bson.M{"updatedAt": time.Now()}},
		after,
	).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, 0, services.ErrNotFound
		}
		return false, 0, err
	}
	return true, len(issue.Upvotes), nil
}

// SetSpam flags the issue and forces Rejected in one update, bypassing the
// audit/notification path.
func (s *IssueStore) SetSpam(ctx context.Context, issueID primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": issueID}, bson.M{"$set": bson.M{
		"isSpam":    true,
		"status":    models.Rejected,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (s *IssueStore) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.coll.CountDocuments(ctx, filter)
}

// Find returns a sorted, paginated page of issues for the filter.
func (s *IssueStore) Find(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Issue, error) {
	findOptions := options.Find().
		SetSort(sort).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// DistinctAreas lists every area value seen across issues.
func (s *IssueStore) DistinctAreas(ctx context.Context) ([]string, error) {
	values, err := s.coll.Distinct(ctx, "area", bson.M{})
	if err != nil {
		return nil, err
	}
	areas := make([]string, 0, len(values))
	for _, v := range values {
		if a, ok := v.(string); ok {
			areas = append(areas, a)
		}
	}
	return areas, nil
}

// CategoryStats groups issue counts by category, most frequent first.
func (s *IssueStore) CategoryStats(ctx context.Context) ([]bson.M, error) {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"count": -1}},
	}
	return s.aggregate(ctx, pipeline)
}

// AreaStats groups the ten densest areas with their average severity.
func (s *IssueStore) AreaStats(ctx context.Context) ([]bson.M, error) {
	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":         "$area",
			"count":       bson.M{"$sum": 1},
			"avgSeverity": bson.M{"$avg": "$severity"},
		}},
		{"$sort": bson.M{"count": -1}},
		{"$limit": 10},
	}
	return s.aggregate(ctx, pipeline)
}

// MonthlyStats groups issue counts by creation year/month.
func (s *IssueStore) MonthlyStats(ctx context.Context) ([]bson.M, error) {
	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":   bson.M{"year": bson.M{"$year": "$createdAt"}, "month": bson.M{"$month": "$createdAt"}},
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id.year": 1, "_id.month": 1}},
		{"$limit": 6},
	}
	return s.aggregate(ctx, pipeline)
}

func (s *IssueStore) aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error) {
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []bson.M{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
