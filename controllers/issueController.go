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

type IssueController struct {
	lifecycle *services.LifecycleService
	issues    *stores.IssueStore
	users     *stores.UserStore
	log       *logrus.Logger
}

func NewIssueController(lifecycle *services.LifecycleService, issues *stores.IssueStore, users *stores.UserStore, log *logrus.Logger) *IssueController {
	return &IssueController{lifecycle: lifecycle, issues: issues, users: users, log: log}
}

// Create handles a citizen reporting a new issue
func (ic *IssueController) Create(c *gin.Context) {
	reporterID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Title       string   `json:"title" binding:"required,max=200"`
		Description string   `json:"description" binding:"required,max=2000"`
		Category    string   `json:"category" binding:"required"`
		Area        string   `json:"area" binding:"required,max=100"`
		Locality    string   `json:"locality" binding:"required,max=100"`
		Address     string   `json:"address,omitempty"`
		Severity    int      `json:"severity,omitempty"`
		Images      []string `json:"images,omitempty"`
		Latitude    *float64 `json:"latitude,omitempty"`
		Longitude   *float64 `json:"longitude,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reporter, err := ic.users.FindByID(ctx, reporterID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var location *models.GeoPoint
	if input.Latitude != nil && input.Longitude != nil {
		location = &models.GeoPoint{
			Type:        "Point",
			Coordinates: []float64{*input.Longitude, *input.Latitude},
		}
	}

	issue, err := ic.lifecycle.Create(ctx, services.CreateInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    models.IssueCategory(input.Category),
		Area:        input.Area,
		Locality:    input.Locality,
		Address:     input.Address,
		Severity:    input.Severity,
		Images:      input.Images,
		Location:    location,
	}, reporter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"issue":   issue,
		"message": "Issue reported successfully! Your Issue ID: " + issue.IssueID,
	})
}

// List returns the caller's issues (all issues for admins) with status and
// category filters and pagination
func (ic *IssueController) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status := c.Query("status")
	category := c.Query("category")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	filter := bson.M{}
	if !isAdmin(c) {
		filter["reportedBy"] = userID
	}
	if status != "" && status != "all" {
		filter["status"] = status
	}
	if category != "" && category != "all" {
		filter["category"] = category
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	total, err := ic.issues.Count(ctx, filter)
	if err != nil {
		ic.log.WithError(err).Error("Failed to count issues")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}

	skip := int64((page - 1) * limit)
	sort := bson.D{{Key: "createdAt", Value: -1}}
	issues, err := ic.issues.Find(ctx, filter, sort, skip, int64(limit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issues"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issues":      withDerived(issues, userID),
		"totalIssues": total,
		"totalPages":  int((total + int64(limit) - 1) / int64(limit)),
		"currentPage": page,
	})
}

// Get returns one issue; only the reporter or an admin may read it
func (ic *IssueController) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, err := ic.issues.FindByID(ctx, issueID)
	if err != nil {
		respondError(c, err)
		return
	}

	if !isAdmin(c) && issue.ReportedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	reporterInfo := gin.H{"id": issue.ReportedBy}
	if reporter, err := ic.users.FindByID(ctx, issue.ReportedBy); err == nil {
		reporterInfo["name"] = reporter.Name
		reporterInfo["email"] = reporter.Email
		reporterInfo["phone"] = reporter.Phone
	}

	c.JSON(http.StatusOK, gin.H{
		"issue":         issue,
		"reportedBy":    reporterInfo,
		"priorityLabel": issue.PriorityLabel(),
		"daysPending":   issue.DaysPending(time.Now()),
		"upvotes":       len(issue.Upvotes),
		"userHasVoted":  issue.HasUpvoted(userID),
	})
}

// Upvote toggles the caller's upvote on an issue
func (ic *IssueController) Upvote(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	voted, count, err := ic.lifecycle.ToggleUpvote(ctx, issueID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"voted":   voted,
		"upvotes": count,
	})
}

// withDerived decorates a page of issues with their computed fields.
func withDerived(issues []models.Issue, userID primitive.ObjectID) []gin.H {
	now := time.Now()
	out := make([]gin.H, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		out = append(out, gin.H{
			"issue":         issue,
			"priorityLabel": issue.PriorityLabel(),
			"daysPending":   issue.DaysPending(now),
			"upvotes":       len(issue.Upvotes),
			"userHasVoted":  issue.HasUpvoted(userID),
		})
	}
	return out
}
