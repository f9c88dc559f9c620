package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IssueCategory enum
type IssueCategory string

const (
	Pothole           IssueCategory = "Pothole"
	Garbage           IssueCategory = "Garbage"
	WaterLeakage      IssueCategory = "Water Leakage"
	DamagedRoad       IssueCategory = "Damaged Road"
	BrokenStreetlight IssueCategory = "Broken Streetlight"
	Sewage            IssueCategory = "Sewage"
	Encroachment      IssueCategory = "Encroachment"
	OtherCategory     IssueCategory = "Other"
)

// Categories lists every valid issue category.
var Categories = []IssueCategory{
	Pothole, Garbage, WaterLeakage, DamagedRoad,
	BrokenStreetlight, Sewage, Encroachment, OtherCategory,
}

func (c IssueCategory) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	Reported   IssueStatus = "Reported"
	Verified   IssueStatus = "Verified"
	InProgress IssueStatus = "In Progress"
	Resolved   IssueStatus = "Resolved"
	Rejected   IssueStatus = "Rejected"
)

// Statuses lists every valid issue status.
var Statuses = []IssueStatus{Reported, Verified, InProgress, Resolved, Rejected}

func (s IssueStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// GeoPoint is a GeoJSON point, coordinates ordered [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// StatusHistoryEntry is one append-only audit record of a status transition.
type StatusHistoryEntry struct {
	Status        IssueStatus         `bson:"status" json:"status"`
	UpdatedBy     *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	UpdatedByName string              `bson:"updatedByName,omitempty" json:"updatedByName,omitempty"`
	Comment       string              `bson:"comment,omitempty" json:"comment,omitempty"`
	Timestamp     time.Time           `bson:"timestamp" json:"timestamp"`
}

// Issue represents a citizen-reported municipal problem
type Issue struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	IssueID       string               `bson:"issueId" json:"issueId"`
	Title         string               `bson:"title" json:"title"`
	Description   string               `bson:"description" json:"description"`
	Category      IssueCategory        `bson:"category" json:"category"`
	Area          string               `bson:"area" json:"area"`
	Locality      string               `bson:"locality" json:"locality"`
	Address       string               `bson:"address,omitempty" json:"address,omitempty"`
	Location      *GeoPoint            `bson:"location,omitempty" json:"location,omitempty"`
	Images        []string             `bson:"images" json:"images"`
	Status        IssueStatus          `bson:"status" json:"status"`
	Severity      int                  `bson:"severity" json:"severity"`
	PriorityScore int                  `bson:"priorityScore" json:"priorityScore"`
	ReportedBy    primitive.ObjectID   `bson:"reportedBy" json:"reportedBy"`
	AssignedTo    *primitive.ObjectID  `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	AdminNote     string               `bson:"adminNote,omitempty" json:"adminNote,omitempty"`
	StatusHistory []StatusHistoryEntry `bson:"statusHistory" json:"statusHistory"`
	IsSpam        bool                 `bson:"isSpam" json:"isSpam"`
	Upvotes       []primitive.ObjectID `bson:"upvotes" json:"upvotes"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
	ResolvedAt    *time.Time           `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// PriorityLabel buckets the stored priority score.
func (i *Issue) PriorityLabel() string {
	switch {
	case i.PriorityScore >= 40:
		return "Critical"
	case i.PriorityScore >= 25:
		return "High"
	case i.PriorityScore >= 15:
		return "Medium"
	default:
		return "Low"
	}
}

// DaysPending returns the issue age in whole days at the given instant.
func (i *Issue) DaysPending(now time.Time) int {
	d := now.Sub(i.CreatedAt)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// HasUpvoted reports whether the user is in the upvote set.
func (i *Issue) HasUpvoted(userID primitive.ObjectID) bool {
	for _, id := range i.Upvotes {
		if id == userID {
			return true
		}
	}
	return false
}

// EnsureIssueIndexes creates the unique issueId index, the geospatial index
// and the area/category/status compound index.
func EnsureIssueIndexes(collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "issueId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "area", Value: 1}, {Key: "category", Value: 1}, {Key: "status", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
