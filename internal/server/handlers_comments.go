package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/comments"
	"github.com/gin-gonic/gin"
)

type commentRequestPayload struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	movieKey := strings.TrimSpace(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"comments": h.comments.List(c.Request.Context(), profileID, movieKey)})
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	var request commentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	movieKey := strings.TrimSpace(c.Param("id"))
	comment, err := h.comments.Add(c.Request.Context(), profileID, movieKey, request.Author, request.Text)
	switch {
	case errors.Is(err, comments.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_comment"})
		return
	case errors.Is(err, comments.ErrTextTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment_too_long"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	c.JSON(http.StatusCreated, comment)
}
