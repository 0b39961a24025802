package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mentor-chat-service/internal/repositories"
	"mentor-chat-service/internal/telemetry"
)

// LinkHandler exposes the mentor-student link views and the approval write.
// The matching workflow that creates links lives outside this service.
type LinkHandler struct {
	linkRepo repositories.LinkRepository
	audit    *telemetry.AuditEmitter
}

// NewLinkHandler builds a LinkHandler.
func NewLinkHandler(linkRepo repositories.LinkRepository, audit *telemetry.AuditEmitter) *LinkHandler {
	return &LinkHandler{linkRepo: linkRepo, audit: audit}
}

// MyMentor returns the calling student's mentor link, if any.
func (h *LinkHandler) MyMentor(c *gin.Context) {
	studentID := c.GetString("userID")

	link, err := h.linkRepo.GetForStudent(c.Request.Context(), studentID)
	if err != nil {
		if errors.Is(err, repositories.ErrLinkNotFound) {
			c.JSON(http.StatusOK, gin.H{"data": nil})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load mentor link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"mentor_id": link.MentorID,
		"approved":  link.Approved,
	}})
}

// MyRequests lists students who selected the calling mentor, oldest first.
func (h *LinkHandler) MyRequests(c *gin.Context) {
	mentorID := c.GetString("userID")

	links, err := h.linkRepo.ListForMentor(c.Request.Context(), mentorID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load requests"})
		return
	}

	out := make([]gin.H, 0, len(links))
	for _, link := range links {
		out = append(out, gin.H{
			"student_id": link.StudentID,
			"approved":   link.Approved,
			"created_at": link.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// ApproveStudent marks the (mentor, student) link as approved.
func (h *LinkHandler) ApproveStudent(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.StudentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing student_id"})
		return
	}

	mentorID := c.GetString("userID")
	if err := h.linkRepo.Approve(c.Request.Context(), mentorID, req.StudentID); err != nil {
		if errors.Is(err, repositories.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to approve student"})
		return
	}

	userID := mentorID
	h.audit.Emit(c.Request.Context(), "INFO", "student approved", requestIDFromContext(c), &userID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
