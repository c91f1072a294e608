package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
	"github.com/emilythestrangee/housecup/backend/internal/attendance"
	"github.com/emilythestrangee/housecup/backend/internal/auth"
	"github.com/emilythestrangee/housecup/backend/internal/election"
	"github.com/emilythestrangee/housecup/backend/internal/middleware"
)

// Handler combines all handler types
type Handler struct {
	Election   *ElectionHandler
	Attendance *AttendanceHandler
	Events     *EventHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc *election.Service, marker *attendance.Marker, bus Subscriber, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithField("component", "http")

	return &Handler{
		Election:   &ElectionHandler{svc: svc, log: entry},
		Attendance: &AttendanceHandler{marker: marker, log: entry},
		Events:     &EventHandler{bus: bus, log: entry},
	}
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidInput:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnauthorized:
		return http.StatusForbidden
	case apperrors.KindInvalidTransition,
		apperrors.KindAlreadyVoted,
		apperrors.KindDuplicateNomination,
		apperrors.KindNominationNotApproved,
		apperrors.KindNoApprovedNominations,
		apperrors.KindAlreadyMarked:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes the JSON error body for err. Internal failures are
// logged and reported without detail.
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	kind := apperrors.KindOf(err)
	msg := err.Error()
	if kind == apperrors.KindInternal {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		msg = "Internal server error"
	}

	c.JSON(statusFor(kind), gin.H{
		"error":           msg,
		"code":            kind,
		"already_applied": apperrors.AlreadyApplied(kind),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":           msg,
		"code":            apperrors.KindInvalidInput,
		"already_applied": false,
	})
}

// pathID parses a positive integer path parameter, answering 400 otherwise
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// optionalQueryID reads an optional positive integer query parameter
func optionalQueryID(c *gin.Context, name string) (*int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return nil, false
	}
	return &id, true
}

func identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":           "User not authenticated",
			"code":            apperrors.KindUnauthorized,
			"already_applied": false,
		})
		return auth.Identity{}, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}
