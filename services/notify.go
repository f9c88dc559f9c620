package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"urbanreport-be/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationStore persists user-facing notification records.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Mailer delivers an HTML email. Failures are logged by the fan-out and
// never surface to the mutation's caller.
type Mailer interface {
	SendStatusEmail(to, name, issueID, issueTitle string, status models.IssueStatus, message string) error
}

// Broadcaster pushes real-time events to subscribed clients.
type Broadcaster interface {
	EmitToChannel(channel, event string, data interface{})
	EmitGlobal(event string, data interface{})
}

// IssueChannel is the per-issue realtime channel key.
func IssueChannel(id primitive.ObjectID) string {
	return "issue-" + id.Hex()
}

// NotifierService fans a lifecycle transition out to the notification
// store, the mailer and the realtime hub. The notification record is
// written synchronously with the mutation; email and realtime delivery are
// detached, independently failing tasks.
type NotifierService struct {
	store  NotificationStore
	users  UserDirectory
	mailer Mailer
	rt     Broadcaster
	log    *logrus.Logger
	wg     sync.WaitGroup
}

func NewNotifierService(store NotificationStore, users UserDirectory, mailer Mailer, rt Broadcaster, log *logrus.Logger) *NotifierService {
	return &NotifierService{store: store, users: users, mailer: mailer, rt: rt, log: log}
}

// Wait blocks until all detached deliveries have finished. Used at shutdown
// and by tests; the request path never calls it.
func (n *NotifierService) Wait() {
	n.wg.Wait()
}

// StatusChanged notifies the reporter of a status transition: one persisted
// notification, one best-effort email, one best-effort realtime emit. A
// failure in any channel never blocks or rolls back the others.
func (n *NotifierService) StatusChanged(ctx context.Context, t *StatusTransition) {
	issue := t.Issue
	record := &models.Notification{
		User:      issue.ReportedBy,
		Issue:     &issue.ID,
		IssueID:   issue.IssueID,
		Message:   fmt.Sprintf("Your issue #%s status updated to: %s", issue.IssueID, t.NewStatus),
		Type:      models.NotifyStatusUpdate,
		CreatedAt: time.Now(),
	}
	if err := n.store.Create(ctx, record); err != nil {
		n.log.WithError(err).WithField("issueId", issue.IssueID).Error("failed to persist status notification")
	}

	n.detach(func() {
		reporter, err := n.users.FindByID(context.Background(), issue.ReportedBy)
		if err != nil {
			n.log.WithError(err).WithField("issueId", issue.IssueID).Warn("reporter lookup failed, skipping status email")
			return
		}
		if reporter.Email == "" {
			return
		}
		if err := n.mailer.SendStatusEmail(reporter.Email, reporter.Name, issue.IssueID, issue.Title, t.NewStatus, t.Comment); err != nil {
			n.log.WithError(err).WithField("issueId", issue.IssueID).Error("status email failed")
		}
	})

	n.detach(func() {
		payload := map[string]interface{}{
			"issueId": issue.IssueID,
			"status":  t.NewStatus,
			"message": fmt.Sprintf("Issue #%s updated to %s", issue.IssueID, t.NewStatus),
		}
		n.rt.EmitToChannel(IssueChannel(issue.ID), "issue-updated", payload)
		n.rt.EmitGlobal("dashboard-update", payload)
	})
}

// IssueCreated notifies every admin of a newly reported issue and emits the
// realtime dashboard event. No email is sent for creations.
func (n *NotifierService) IssueCreated(ctx context.Context, issue *models.Issue) {
	admins, err := n.users.FindByRole(ctx, models.RoleAdmin)
	if err != nil {
		n.log.WithError(err).Error("admin lookup failed, skipping new-issue notifications")
	}
	for _, admin := range admins {
		record := &models.Notification{
			User:      admin.ID,
			Issue:     &issue.ID,
			IssueID:   issue.IssueID,
			Message:   fmt.Sprintf("New issue reported: %s in %s", issue.Title, issue.Area),
			Type:      models.NotifyNewIssue,
			CreatedAt: time.Now(),
		}
		if err := n.store.Create(ctx, record); err != nil {
			n.log.WithError(err).WithField("issueId", issue.IssueID).Error("failed to persist new-issue notification")
		}
	}

	n.detach(func() {
		payload := map[string]interface{}{
			"type":    "new_issue",
			"issueId": issue.IssueID,
		}
		n.rt.EmitToChannel(IssueChannel(issue.ID), "issue-updated", payload)
		n.rt.EmitGlobal("dashboard-update", payload)
	})
}

func (n *NotifierService) detach(fn func()) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.log.WithField("panic", r).Error("detached notification task panicked")
			}
		}()
		fn()
	}()
}
