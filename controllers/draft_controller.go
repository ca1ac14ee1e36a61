package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomMcKenna1/nutrilytics-backend/middlewares"
	"github.com/TomMcKenna1/nutrilytics-backend/services"
)

type DraftController struct {
	drafts *services.DraftService
}

func NewDraftController(drafts *services.DraftService) *DraftController {
	return &DraftController{drafts: drafts}
}

type createDraftInput struct {
	Description string `json:"description" binding:"required"`
}

// CreateDraft accepts a free-text meal description and answers 202 with the
// new draft id; generation happens in the background.
func (dc *DraftController) CreateDraft(c *gin.Context) {
	var input createDraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middlewares.CurrentIdentity(c)
	draftID, err := dc.drafts.Create(c.Request.Context(), identity, input.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"draftId": draftID})
}

// GetDraft is the polling endpoint: it returns the draft's current status,
// the generated meal once complete, or the error summary if generation
// failed.
func (dc *DraftController) GetDraft(c *gin.Context) {
	identity := middlewares.CurrentIdentity(c)
	draft, err := dc.drafts.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (dc *DraftController) DeleteDraft(c *gin.Context) {
	identity := middlewares.CurrentIdentity(c)
	if err := dc.drafts.Delete(c.Request.Context(), identity, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
