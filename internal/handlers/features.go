package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/featureboard/backend/internal/middleware"
	"github.com/emilythestrangee/featureboard/backend/internal/models"
)

type FeatureHandler struct {
	db *gorm.DB
}

func NewFeatureHandler(db *gorm.DB) *FeatureHandler {
	return &FeatureHandler{db: db}
}

// GetFeatures returns all features, newest first. Counter columns come
// straight off the feature rows; the aggregator keeps them honest.
func (h *FeatureHandler) GetFeatures(c *gin.Context) {
	var features []models.Feature

	q := h.db.Preload("Owner").Order("created_at desc")
	if status := c.Query("status"); status != "" {
		if !models.FeatureStatus(status).Valid() {
			respondError(c, http.StatusBadRequest, "Invalid status filter")
			return
		}
		q = q.Where("status = ?", status)
	}

	if err := q.Find(&features).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch features")
		return
	}

	if features == nil {
		features = []models.Feature{}
	}
	respond(c, http.StatusOK, features)
}

// GetFeature returns a single feature by ID
func (h *FeatureHandler) GetFeature(c *gin.Context) {
	featureID := c.Param("id")

	var feature models.Feature
	if err := h.db.Preload("Owner").First(&feature, featureID).Error; err != nil {
		respondError(c, http.StatusNotFound, "Feature not found")
		return
	}

	respond(c, http.StatusOK, feature)
}

// CreateFeature creates a new feature request (PROTECTED)
func (h *FeatureHandler) CreateFeature(c *gin.Context) {
	var input models.CreateFeatureRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Title is required")
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	feature := models.Feature{
		Title:       input.Title,
		Body:        input.Body,
		OwnerUserID: userID,
		Status:      models.StatusPending,
	}

	if err := h.db.Create(&feature).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create feature")
		return
	}

	h.db.Preload("Owner").First(&feature, feature.ID)
	respond(c, http.StatusCreated, feature)
}

// UpdateFeatureStatus moves a feature through its lifecycle (ADMIN only).
// Archived is terminal; once there a feature is vote-immutable.
func (h *FeatureHandler) UpdateFeatureStatus(c *gin.Context) {
	featureID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid feature id")
		return
	}

	var input models.UpdateFeatureStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil || !input.Status.Valid() {
		respondError(c, http.StatusBadRequest, "Invalid status")
		return
	}

	var feature models.Feature
	if err := h.db.First(&feature, featureID).Error; err != nil {
		respondError(c, http.StatusNotFound, "Feature not found")
		return
	}

	if !feature.Status.CanTransitionTo(input.Status) {
		respondError(c, http.StatusBadRequest, "Cannot transition from "+string(feature.Status)+" to "+string(input.Status))
		return
	}

	if err := h.db.Model(&feature).Update("status", input.Status).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update status")
		return
	}

	h.db.Preload("Owner").First(&feature, feature.ID)
	respond(c, http.StatusOK, feature)
}
