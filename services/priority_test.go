package services

import (
	"context"
	"testing"
	"time"

	"urbanreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPriorityScoreFormula(t *testing.T) {
	for severity := 1; severity <= 5; severity++ {
		for _, areaCount := range []int64{0, 1, 3, 10} {
			for _, daysOld := range []int{0, 1, 7, 30} {
				want := int(areaCount)*2 + severity*5 + daysOld
				if got := PriorityScore(areaCount, severity, daysOld); got != want {
					t.Errorf("PriorityScore(%d, %d, %d) = %d, want %d", areaCount, severity, daysOld, got, want)
				}
			}
		}
	}
}

func TestPriorityLabelThresholds(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{41, "Critical"},
		{40, "Critical"},
		{39, "High"},
		{26, "High"},
		{25, "High"},
		{24, "Medium"},
		{16, "Medium"},
		{15, "Medium"},
		{14, "Low"},
		{0, "Low"},
	}
	for _, tc := range cases {
		issue := &models.Issue{PriorityScore: tc.score}
		if got := issue.PriorityLabel(); got != tc.want {
			t.Errorf("PriorityLabel(score=%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestDaysPending(t *testing.T) {
	now := time.Date(2024, 1, 21, 12, 0, 0, 0, time.UTC)
	issue := &models.Issue{CreatedAt: now.Add(-49 * time.Hour)}
	if got := issue.DaysPending(now); got != 2 {
		t.Errorf("DaysPending = %d, want 2", got)
	}
	issue.CreatedAt = now.Add(time.Hour)
	if got := issue.DaysPending(now); got != 0 {
		t.Errorf("DaysPending in the future = %d, want 0", got)
	}
}

// End-to-end scenario: an issue created with severity 5 in an area with two
// other open complaints scores 29 (High); after aging 20 days with three
// open complaints in the area, resolving it rescores to 51 (Critical) and
// stamps resolvedAt exactly once.
func TestPriorityScenario(t *testing.T) {
	f := newFixture()
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return created }

	// two other unresolved issues in area "X"
	for i := 0; i < 2; i++ {
		f.store.add(&models.Issue{
			ID:     primitive.NewObjectID(),
			Area:   "X",
			Status: models.Reported,
		})
	}

	in := validInput()
	in.Area = "X"
	in.Severity = 5
	issue, err := f.svc.Create(context.Background(), in, f.reporter)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if issue.PriorityScore != 29 {
		t.Errorf("initial score = %d, want 29", issue.PriorityScore)
	}
	if got := issue.PriorityLabel(); got != "High" {
		t.Errorf("initial label = %q, want High", got)
	}

	// 20 days later: the issue itself plus the two others are still open,
	// so the area holds three outstanding complaints
	f.svc.now = func() time.Time { return created.AddDate(0, 0, 20) }

	transition, err := f.svc.ChangeStatus(context.Background(), issue.ID, models.Resolved, f.admin, "")
	if err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}

	resolved := transition.Issue
	if resolved.PriorityScore != 51 {
		t.Errorf("resolved score = %d, want 51", resolved.PriorityScore)
	}
	if got := resolved.PriorityLabel(); got != "Critical" {
		t.Errorf("resolved label = %q, want Critical", got)
	}
	if resolved.ResolvedAt == nil {
		t.Error("resolvedAt not set")
	}
	if len(resolved.StatusHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(resolved.StatusHistory))
	}
}
