package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/housecup/backend/internal/attendance"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

type AttendanceHandler struct {
	marker *attendance.Marker
	log    *logrus.Entry
}

// MarkAttended answers 200 for both a fresh mark and a repeat; the body's
// marked and already flags tell them apart.
func (h *AttendanceHandler) MarkAttended(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.marker.MarkAttended(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req models.ScanRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.marker.Scan(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AttendanceHandler) Code(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	code, err := h.marker.Code(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration_id": id, "code": code})
}

func (h *AttendanceHandler) Stats(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	stats, err := h.marker.Stats(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
