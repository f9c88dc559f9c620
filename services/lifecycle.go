package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"urbanreport-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueStore is the persistence collaborator for issues.
type IssueStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	Insert(ctx context.Context, issue *models.Issue) error
	Update(ctx context.Context, issue *models.Issue) error
	CountOpenByArea(ctx context.Context, area string) (int64, error)
	// ToggleUpvote flips the user's membership in the upvote set with a
	// single atomic store operation and returns the resulting state.
	ToggleUpvote(ctx context.Context, issueID, userID primitive.ObjectID) (voted bool, count int, err error)
	SetSpam(ctx context.Context, issueID primitive.ObjectID) error
}

// UserDirectory resolves user references and role queries.
type UserDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// StatusTransition describes a completed status change for the fan-out.
type StatusTransition struct {
	Issue     *models.Issue
	OldStatus models.IssueStatus
	NewStatus models.IssueStatus
	Comment   string
}

// LifecycleService applies issue mutations, maintains the audit trail and
// keeps derived fields consistent. All collaborators are injected; callers
// are expected to have authorized the actor already, but obviously
// unauthorized actors are still rejected.
type LifecycleService struct {
	issues   IssueStore
	users    UserDirectory
	notifier *NotifierService
	seq      Sequencer
	now      func() time.Time
}

func NewLifecycleService(issues IssueStore, users UserDirectory, notifier *NotifierService, seq Sequencer) *LifecycleService {
	return &LifecycleService{
		issues:   issues,
		users:    users,
		notifier: notifier,
		seq:      seq,
		now:      time.Now,
	}
}

// CreateInput carries the citizen-supplied fields of a new issue.
type CreateInput struct {
	Title       string
	Description string
	Category    models.IssueCategory
	Area        string
	Locality    string
	Address     string
	Severity    int
	Images      []string
	Location    *models.GeoPoint
}

func (in *CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("description", "required")
	}
	if !in.Category.Valid() {
		return invalid("category", "unknown category")
	}
	if strings.TrimSpace(in.Area) == "" {
		return invalid("area", "required")
	}
	if strings.TrimSpace(in.Locality) == "" {
		return invalid("locality", "required")
	}
	if in.Severity != 0 && (in.Severity < 1 || in.Severity > 5) {
		return invalid("severity", "must be between 1 and 5")
	}
	return nil
}

// Create validates, allocates the issue identifier, seeds the audit trail
// with the Reported entry, computes the initial priority and persists the
// issue, then fans out the new-issue notifications.
func (s *LifecycleService) Create(ctx context.Context, in CreateInput, reporter *models.User) (*models.Issue, error) {
	if reporter == nil {
		return nil, invalid("reportedBy", "required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	severity := in.Severity
	if severity == 0 {
		severity = 3
	}
	images := in.Images
	if images == nil {
		images = []string{}
	}

	now := s.now()
	issue := &models.Issue{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		Area:        in.Area,
		Locality:    in.Locality,
		Address:     in.Address,
		Location:    in.Location,
		Images:      images,
		Status:      models.Reported,
		Severity:    severity,
		ReportedBy:  reporter.ID,
		Upvotes:     []primitive.ObjectID{},
		StatusHistory: []models.StatusHistoryEntry{{
			Status:        models.Reported,
			UpdatedBy:     &reporter.ID,
			UpdatedByName: reporter.Name,
			Comment:       "Issue reported by citizen",
			Timestamp:     now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	issueID, err := s.allocateIssueID(ctx, issue.IssueID)
	if err != nil {
		return nil, err
	}
	issue.IssueID = issueID

	if err := s.RefreshPriority(ctx, issue); err != nil {
		return nil, err
	}

	if err := s.issues.Insert(ctx, issue); err != nil {
		return nil, err
	}

	s.notifier.IssueCreated(ctx, issue)
	return issue, nil
}

// ChangeStatus applies an admin status change. Any of the five statuses is a
// legal target from any current state; the enum stays closed but no
// transition table is enforced, matching the permissive triage workflow.
// Exactly one history entry is appended, resolvedAt is set on the first
// transition to Resolved and never touched again, and priority is
// recomputed before persisting.
func (s *LifecycleService) ChangeStatus(ctx context.Context, issueID primitive.ObjectID, newStatus models.IssueStatus, actor *models.User, comment string) (*StatusTransition, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !newStatus.Valid() {
		return nil, invalid("status", "unknown status")
	}

	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	oldStatus := issue.Status
	if comment == "" {
		comment = fmt.Sprintf("Status changed to %s", newStatus)
	}

	issue.Status = newStatus
	issue.StatusHistory = append(issue.StatusHistory, models.StatusHistoryEntry{
		Status:        newStatus,
		UpdatedBy:     &actor.ID,
		UpdatedByName: actor.Name,
		Comment:       comment,
		Timestamp:     now,
	})
	if newStatus == models.Resolved && issue.ResolvedAt == nil {
		issue.ResolvedAt = &now
	}
	issue.UpdatedAt = now

	if err := s.RefreshPriority(ctx, issue); err != nil {
		return nil, err
	}
	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, err
	}

	transition := &StatusTransition{
		Issue:     issue,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Comment:   comment,
	}
	s.notifier.StatusChanged(ctx, transition)
	return transition, nil
}

// ChangeSeverityAndNote updates the severity and, when a non-empty note is
// supplied, replaces the admin note. No history entry and no notifications;
// priority is recomputed.
func (s *LifecycleService) ChangeSeverityAndNote(ctx context.Context, issueID primitive.ObjectID, severity int, adminNote string) (*models.Issue, error) {
	if severity < 1 || severity > 5 {
		return nil, invalid("severity", "must be between 1 and 5")
	}

	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	issue.Severity = severity
	if adminNote != "" {
		issue.AdminNote = adminNote
	}
	issue.UpdatedAt = s.now()

	if err := s.RefreshPriority(ctx, issue); err != nil {
		return nil, err
	}
	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, err
	}
	return issue, nil
}

// MarkSpam flags the issue and forces its status to Rejected in a single
// store update. Deliberately silent: no history entry, no notification, no
// priority recompute.
func (s *LifecycleService) MarkSpam(ctx context.Context, issueID primitive.ObjectID) error {
	return s.issues.SetSpam(ctx, issueID)
}

// ToggleUpvote flips the user's upvote on the issue and returns whether the
// user now has a vote and the resulting count. The membership flip is a
// single atomic store operation, so concurrent toggles from different users
// cannot drop one another.
func (s *LifecycleService) ToggleUpvote(ctx context.Context, issueID, userID primitive.ObjectID) (bool, int, error) {
	return s.issues.ToggleUpvote(ctx, issueID, userID)
}
