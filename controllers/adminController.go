package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"urbanreport-be/models"
	"urbanreport-be/services"
	"urbanreport-be/stores"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminController struct {
	lifecycle *services.LifecycleService
	issues    *stores.IssueStore
	users     *stores.UserStore
	log       *logrus.Logger
}

func NewAdminController(lifecycle *services.LifecycleService, issues *stores.IssueStore, users *stores.UserStore, log *logrus.Logger) *AdminController {
	return &AdminController{lifecycle: lifecycle, issues: issues, users: users, log: log}
}

// Dashboard returns the admin overview: per-status counts, recent issues,
// category distribution and monthly trend
func (a *AdminController) Dashboard(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts := gin.H{}
	total, err := a.issues.Count(ctx, bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}
	counts["total"] = total
	for _, status := range models.Statuses {
		n, err := a.issues.Count(ctx, bson.M{"status": status})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
			return
		}
		counts[string(status)] = n
	}

	recent, err := a.issues.Find(ctx, bson.M{}, bson.D{{Key: "createdAt", Value: -1}}, 0, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recent issues"})
		return
	}

	categoryStats, err := a.issues.CategoryStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get category stats"})
		return
	}

	monthlyData, err := a.issues.MonthlyStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get monthly stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":         counts,
		"recentIssues":  recent,
		"categoryStats": categoryStats,
		"monthlyData":   monthlyData,
	})
}

// ListIssues returns the management table: filters on status, category and
// area, optional priority ordering, paginated. Priority scores for the page
// are recomputed and persisted so the triage view ranks on fresh numbers.
func (a *AdminController) ListIssues(c *gin.Context) {
	status := c.Query("status")
	category := c.Query("category")
	area := c.Query("area")
	priority := c.Query("priority")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit := 15

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if category != "" {
		filter["category"] = category
	}
	if area != "" {
		filter["area"] = bson.M{"$regex": area, "$options": "i"}
	}

	sort := bson.D{{Key: "createdAt", Value: -1}}
	if priority == "high" {
		sort = bson.D{{Key: "priorityScore", Value: -1}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	total, err := a.issues.Count(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}

	skip := int64((page - 1) * limit)
	issues, err := a.issues.Find(ctx, filter, sort, skip, int64(limit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issues"})
		return
	}

	if err := a.lifecycle.RefreshPriorities(ctx, issues); err != nil {
		a.log.WithError(err).Warn("priority refresh failed for admin listing")
	}

	areas, err := a.issues.DistinctAreas(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list areas"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issues":      issues,
		"areas":       areas,
		"total":       total,
		"currentPage": page,
		"totalPages":  int((total + int64(limit) - 1) / int64(limit)),
		"filters": gin.H{
			"status": status, "category": category,
			"area": area, "priority": priority,
		},
	})
}

// UpdateStatus applies an admin status change and reports the transition
func (a *AdminController) UpdateStatus(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	var input struct {
		Status  string `json:"status" binding:"required"`
		Comment string `json:"comment,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := a.users.FindByID(ctx, actorID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	transition, err := a.lifecycle.ChangeStatus(ctx, issueID, models.IssueStatus(input.Status), actor, input.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Issue status updated to " + string(transition.NewStatus),
		"issue":     transition.Issue,
		"oldStatus": transition.OldStatus,
		"newStatus": transition.NewStatus,
	})
}

// UpdatePriority changes severity and, optionally, the admin note
func (a *AdminController) UpdatePriority(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	var input struct {
		Severity  int    `json:"severity" binding:"required"`
		AdminNote string `json:"adminNote,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, err := a.lifecycle.ChangeSeverityAndNote(ctx, issueID, input.Severity, input.AdminNote)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Priority updated",
		"issue":   issue,
	})
}

// MarkSpam silently flags the issue as spam and rejects it
func (a *AdminController) MarkSpam(c *gin.Context) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.lifecycle.MarkSpam(ctx, issueID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Issue marked as spam"})
}

// ListUsers returns every registered user, newest first
func (a *AdminController) ListUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users, err := a.users.FindAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
