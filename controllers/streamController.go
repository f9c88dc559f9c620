package controllers

import (
	"io"
	"net/http"

	"urbanreport-be/realtime"
	"urbanreport-be/services"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StreamController struct {
	hub *realtime.Hub
	log *logrus.Logger
}

func NewStreamController(hub *realtime.Hub, log *logrus.Logger) *StreamController {
	return &StreamController{hub: hub, log: log}
}

// Stream attaches the client to the live event feed over SSE. Every client
// receives dashboard-update events; passing ?issue=<id> additionally joins
// that issue's channel for issue-updated events.
func (s *StreamController) Stream(c *gin.Context) {
	clientID := uuid.NewString()
	events := s.hub.Register(clientID)
	if events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event stream is shutting down"})
		return
	}
	defer s.hub.Unregister(clientID)

	if issueParam := c.Query("issue"); issueParam != "" {
		issueID, err := primitive.ObjectIDFromHex(issueParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
			return
		}
		s.hub.Subscribe(clientID, services.IssueChannel(issueID))
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	s.log.WithField("client", clientID).Debug("stream client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-events:
			if !open {
				return false
			}
			if err := sse.Encode(w, sse.Event{Event: ev.Name, Data: ev.Data}); err != nil {
				return false
			}
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	s.log.WithField("client", clientID).Debug("stream client disconnected")
}
