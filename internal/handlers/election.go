package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/housecup/backend/internal/election"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

type ElectionHandler struct {
	svc *election.Service
	log *logrus.Entry
}

// ListPositions answers ?house_id= with global positions plus that house's
func (h *ElectionHandler) ListPositions(c *gin.Context) {
	houseID, ok := optionalQueryID(c, "house_id")
	if !ok {
		return
	}

	positions, err := h.svc.ListPositions(c.Request.Context(), houseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if positions == nil {
		positions = []models.Position{}
	}
	c.JSON(http.StatusOK, positions)
}

func (h *ElectionHandler) GetPosition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	pos, err := h.svc.GetPosition(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (h *ElectionHandler) CreatePosition(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req models.CreatePositionRequest
	if !bindJSON(c, &req) {
		return
	}

	pos, err := h.svc.CreatePosition(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, pos)
}

func (h *ElectionHandler) UpdatePosition(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdatePositionRequest
	if !bindJSON(c, &req) {
		return
	}

	pos, err := h.svc.UpdatePosition(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (h *ElectionHandler) SubmitNomination(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	positionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.SubmitNominationRequest
	if !bindJSON(c, &req) {
		return
	}

	nom, err := h.svc.SubmitNomination(c.Request.Context(), actor, positionID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, nom)
}

// ListApproved returns votable nominations, optionally for one ?position_id=
func (h *ElectionHandler) ListApproved(c *gin.Context) {
	positionID, ok := optionalQueryID(c, "position_id")
	if !ok {
		return
	}

	noms, err := h.svc.ListApproved(c.Request.Context(), positionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if noms == nil {
		noms = []models.Nomination{}
	}
	c.JSON(http.StatusOK, noms)
}

func (h *ElectionHandler) ListPending(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	noms, err := h.svc.ListPending(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if noms == nil {
		noms = []models.Nomination{}
	}
	c.JSON(http.StatusOK, noms)
}

func (h *ElectionHandler) GetNomination(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	nom, err := h.svc.GetNomination(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, nom)
}

func (h *ElectionHandler) ModerateNomination(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.ModerateNominationRequest
	if !bindJSON(c, &req) {
		return
	}

	nom, err := h.svc.ModerateNomination(c.Request.Context(), actor, id, election.Decision(req.Decision))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, nom)
}

func (h *ElectionHandler) CastVote(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	positionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.CastVoteRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.CastVote(c.Request.Context(), actor, positionID, req.NominationID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *ElectionHandler) MyVotes(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	votes, err := h.svc.MyVotes(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if votes == nil {
		votes = []models.Vote{}
	}
	c.JSON(http.StatusOK, votes)
}

func (h *ElectionHandler) Count(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	count, err := h.svc.Count(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nomination_id": id, "vote_count": count})
}

func (h *ElectionHandler) Tally(c *gin.Context) {
	positionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	houseID, ok := optionalQueryID(c, "house_id")
	if !ok {
		return
	}

	entries, err := h.svc.Tally(c.Request.Context(), positionID, houseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if entries == nil {
		entries = []election.TallyEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *ElectionHandler) DeclareWinner(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	positionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	houseID, ok := optionalQueryID(c, "house_id")
	if !ok {
		return
	}

	winner, err := h.svc.DeclareWinner(c.Request.Context(), actor, positionID, houseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

func (h *ElectionHandler) ResetResults(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	positionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	houseID, ok := optionalQueryID(c, "house_id")
	if !ok {
		return
	}

	deleted, err := h.svc.ResetResults(c.Request.Context(), actor, positionID, houseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"position_id": positionID, "house_id": houseID, "deleted": deleted})
}
