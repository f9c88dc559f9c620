package controllers

import (
	"context"
	"net/http"
	"time"

	"urbanreport-be/models"
	"urbanreport-be/stores"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

type APIController struct {
	issues        *stores.IssueStore
	notifications *stores.NotificationStore
	log           *logrus.Logger
}

func NewAPIController(issues *stores.IssueStore, notifications *stores.NotificationStore, log *logrus.Logger) *APIController {
	return &APIController{issues: issues, notifications: notifications, log: log}
}

// Stats returns live issue counts scoped to the caller (all issues for admins)
func (a *APIController) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	base := bson.M{}
	if !isAdmin(c) {
		base = bson.M{"reportedBy": userID}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scoped := func(status models.IssueStatus) bson.M {
		f := bson.M{"status": status}
		for k, v := range base {
			f[k] = v
		}
		return f
	}

	total, err := a.issues.Count(ctx, base)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}
	reported, err := a.issues.Count(ctx, scoped(models.Reported))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}
	inProgress, err := a.issues.Count(ctx, scoped(models.InProgress))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}
	resolved, err := a.issues.Count(ctx, scoped(models.Resolved))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":      total,
		"reported":   reported,
		"inProgress": inProgress,
		"resolved":   resolved,
	})
}

// GeoJSON returns located issues as a FeatureCollection for the heatmap
func (a *APIController) GeoJSON(c *gin.Context) {
	filter := bson.M{"location.coordinates": bson.M{"$exists": true}}
	if category := c.Query("category"); category != "" {
		filter["category"] = category
	}
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issues, err := a.issues.Find(ctx, filter, bson.D{{Key: "createdAt", Value: -1}}, 0, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issues"})
		return
	}

	features := make([]gin.H, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		if issue.Location == nil {
			continue
		}
		features = append(features, gin.H{
			"type":     "Feature",
			"geometry": issue.Location,
			"properties": gin.H{
				"id":            issue.ID,
				"title":         issue.Title,
				"category":      issue.Category,
				"status":        issue.Status,
				"severity":      issue.Severity,
				"priorityScore": issue.PriorityScore,
				"area":          issue.Area,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"type":     "FeatureCollection",
		"features": features,
	})
}

// AreaStats returns the densest areas with average severity
func (a *APIController) AreaStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := a.issues.AreaStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get area stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Notifications lists the caller's recent notifications and marks them read
func (a *APIController) Notifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notifications, err := a.notifications.ListForUser(ctx, userID, 30)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}

	if err := a.notifications.MarkAllRead(ctx, userID); err != nil {
		a.log.WithError(err).Warn("failed to mark notifications read")
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// UnreadCount returns the caller's unread notification count
func (a *APIController) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := a.notifications.CountUnread(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}
