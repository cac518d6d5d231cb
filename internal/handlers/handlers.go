package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/featureboard/backend/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	Feature *FeatureHandler
	Vote    *VoteHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db *gorm.DB, votes *voting.Service) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(db),
		Feature: NewFeatureHandler(db),
		Vote:    NewVoteHandler(votes),
	}
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// respondVotingError maps voting service errors to HTTP statuses. Anything
// unrecognized is a storage failure and stays opaque to the client.
func respondVotingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, voting.ErrFeatureNotFound),
		errors.Is(err, voting.ErrVoteNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, voting.ErrInvalidVoteType),
		errors.Is(err, voting.ErrArchived),
		errors.Is(err, voting.ErrSelfVote),
		errors.Is(err, voting.ErrSameValue),
		errors.Is(err, voting.ErrTooManyOperations):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, voting.ErrForbidden):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, voting.ErrConflict):
		respondError(c, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "Something went wrong")
	}
}
