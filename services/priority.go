package services

import (
	"context"

	"urbanreport-be/models"
)

// PriorityScore computes the urgency score from area complaint density,
// severity and age in whole days: (A*2) + (S*5) + (D*1).
func PriorityScore(areaCount int64, severity, daysOld int) int {
	return int(areaCount)*2 + severity*5 + daysOld
}

// RefreshPriority recomputes and stores the issue's priority score. The area
// count is the number of issues sharing the issue's area that are not yet
// Resolved, queried through the store. Called on creation and on admin
// status or severity changes, never on reads.
func (s *LifecycleService) RefreshPriority(ctx context.Context, issue *models.Issue) error {
	areaCount, err := s.issues.CountOpenByArea(ctx, issue.Area)
	if err != nil {
		return err
	}
	issue.PriorityScore = PriorityScore(areaCount, issue.Severity, issue.DaysPending(s.now()))
	return nil
}

// RefreshPriorities recomputes and persists scores for a page of issues,
// mirroring the admin listing behavior of rescoring on each view of the
// management table.
func (s *LifecycleService) RefreshPriorities(ctx context.Context, issues []models.Issue) error {
	for i := range issues {
		if err := s.RefreshPriority(ctx, &issues[i]); err != nil {
			return err
		}
		issues[i].UpdatedAt = s.now()
		if err := s.issues.Update(ctx, &issues[i]); err != nil {
			return err
		}
	}
	return nil
}
