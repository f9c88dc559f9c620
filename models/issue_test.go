package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		if !c.Valid() {
			t.Errorf("category %q should be valid", c)
		}
	}
	for _, c := range []IssueCategory{"", "Graffiti", "pothole"} {
		if c.Valid() {
			t.Errorf("category %q should be invalid", c)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	for _, s := range []IssueStatus{"", "Escalated", "resolved"} {
		if s.Valid() {
			t.Errorf("status %q should be invalid", s)
		}
	}
}

func TestHasUpvoted(t *testing.T) {
	voter := primitive.NewObjectID()
	issue := &Issue{Upvotes: []primitive.ObjectID{primitive.NewObjectID(), voter}}

	if !issue.HasUpvoted(voter) {
		t.Error("expected voter to be present")
	}
	if issue.HasUpvoted(primitive.NewObjectID()) {
		t.Error("unexpected membership for unknown user")
	}
}
