package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/featureboard/backend/internal/middleware"
	"github.com/emilythestrangee/featureboard/backend/internal/models"
	"github.com/emilythestrangee/featureboard/backend/internal/voting"
)

type VoteHandler struct {
	votes *voting.Service
}

func NewVoteHandler(votes *voting.Service) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// CastVote handles POST /votes (PROTECTED, rate-limited)
func (h *VoteHandler) CastVote(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var input struct {
		FeatureID int             `json:"feature_id" binding:"required"`
		VoteType  models.VoteType `json:"vote_type" binding:"required,oneof=upvote downvote"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "feature_id and a vote_type of upvote or downvote are required")
		return
	}

	result, err := h.votes.CastVote(c.Request.Context(), userID, input.FeatureID, input.VoteType)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"action":      result.Action,
		"vote_type":   result.VoteType,
		"feature_id":  result.FeatureID,
		"vote_counts": result.Counts,
	})
}

// UpdateVote handles PUT /votes/:id (PROTECTED)
func (h *VoteHandler) UpdateVote(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	voteID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid vote id")
		return
	}

	var input struct {
		VoteType models.VoteType `json:"vote_type" binding:"required,oneof=upvote downvote"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "vote_type must be upvote or downvote")
		return
	}

	vote, err := h.votes.UpdateVote(c.Request.Context(), voteID, userID, input.VoteType)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	respond(c, http.StatusOK, vote)
}

// RemoveVote handles DELETE /votes/:id (PROTECTED)
func (h *VoteHandler) RemoveVote(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	voteID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid vote id")
		return
	}

	if err := h.votes.RemoveVote(c.Request.Context(), voteID, userID); err != nil {
		respondVotingError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"message": "Vote removed"})
}

// GetVotes handles GET /votes with optional filters
func (h *VoteHandler) GetVotes(c *gin.Context) {
	filters, ok := parseListFilters(c)
	if !ok {
		return
	}

	votes, total, err := h.votes.ListVotes(c.Request.Context(), filters)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"votes": votes,
		"total": total,
		"page":  filters.Page,
		"limit": filters.Limit,
	})
}

// GetUserVotes handles GET /votes/user/:userId with per-user stats
func (h *VoteHandler) GetUserVotes(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	filters, ok := parseListFilters(c)
	if !ok {
		return
	}
	filters.UserID = &userID

	votes, total, err := h.votes.ListVotes(c.Request.Context(), filters)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	stats, err := h.votes.UserStats(c.Request.Context(), userID)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"votes": votes,
		"total": total,
		"page":  filters.Page,
		"limit": filters.Limit,
		"stats": stats,
	})
}

// GetFeatureVotes handles GET /votes/feature/:featureId with stats and the
// last seven days of activity
func (h *VoteHandler) GetFeatureVotes(c *gin.Context) {
	featureID, err := strconv.Atoi(c.Param("featureId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid feature id")
		return
	}

	feature, err := h.votes.GetFeature(c.Request.Context(), featureID)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	filters, ok := parseListFilters(c)
	if !ok {
		return
	}
	filters.FeatureID = &featureID

	votes, total, err := h.votes.ListVotes(c.Request.Context(), filters)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	activity, err := h.votes.FeatureActivity(c.Request.Context(), featureID)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"votes": votes,
		"total": total,
		"page":  filters.Page,
		"limit": filters.Limit,
		"stats": voting.VoteCounts{
			Upvotes:   feature.UpvotesCount,
			Downvotes: feature.DownvotesCount,
			Total:     feature.VotesCount,
		},
		"activity": activity,
	})
}

// GetUserFeatureVote handles GET /votes/user/:userId/feature/:featureId
func (h *VoteHandler) GetUserFeatureVote(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid user id")
		return
	}
	featureID, err := strconv.Atoi(c.Param("featureId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid feature id")
		return
	}

	vote, err := h.votes.GetUserFeatureVote(c.Request.Context(), userID, featureID)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	respond(c, http.StatusOK, vote)
}

// BulkVotes handles POST /votes/bulk (ADMIN only)
func (h *VoteHandler) BulkVotes(c *gin.Context) {
	var input struct {
		Operations []voting.BulkOperation `json:"operations" binding:"required,min=1,max=100,dive"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "operations must be a list of 1 to 100 vote operations")
		return
	}

	outcome, err := h.votes.BulkApply(c.Request.Context(), middleware.CurrentRole(c), input.Operations)
	if err != nil {
		respondVotingError(c, err)
		return
	}

	respond(c, http.StatusOK, outcome)
}

// parseListFilters reads pagination and filter query params, writing a 400
// itself when something is malformed.
func parseListFilters(c *gin.Context) (voting.ListFilters, bool) {
	filters := voting.ListFilters{Page: 1, Limit: 20}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			respondError(c, http.StatusBadRequest, "Invalid page")
			return filters, false
		}
		filters.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			respondError(c, http.StatusBadRequest, "Invalid limit")
			return filters, false
		}
		filters.Limit = limit
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid user_id filter")
			return filters, false
		}
		filters.UserID = &id
	}
	if raw := c.Query("feature_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid feature_id filter")
			return filters, false
		}
		filters.FeatureID = &id
	}
	if raw := c.Query("vote_type"); raw != "" {
		vt := models.VoteType(raw)
		if !vt.Valid() {
			respondError(c, http.StatusBadRequest, "Invalid vote_type filter")
			return filters, false
		}
		filters.VoteType = &vt
	}

	return filters, true
}
