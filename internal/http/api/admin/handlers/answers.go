package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/catalog"
	"github.com/router-for-me/AnswerGateway/internal/http/api/respond"
)

// AnswerHandler serves editorial actions on answers.
type AnswerHandler struct {
	catalog *catalog.Service
}

// NewAnswerHandler constructs an AnswerHandler.
func NewAnswerHandler(catalogService *catalog.Service) *AnswerHandler {
	return &AnswerHandler{catalog: catalogService}
}

// Publish lists an answer in the public catalog.
func (h *AnswerHandler) Publish(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respond.Error(c, apierr.Invalid("Invalid answer ID format"))
		return
	}
	answer, errPublish := h.catalog.Publish(c.Request.Context(), id)
	if errPublish != nil {
		respond.Error(c, errPublish)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": respond.Answer(answer)})
}

type reviseRequest struct {
	Answer string `json:"answer"` // Replacement answer text.
}

// Revise replaces an answer's text.
func (h *AnswerHandler) Revise(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respond.Error(c, apierr.Invalid("Invalid answer ID format"))
		return
	}
	var body reviseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.Error(c, apierr.Invalid("invalid json"))
		return
	}
	answer, errRevise := h.catalog.Revise(c.Request.Context(), id, body.Answer)
	if errRevise != nil {
		respond.Error(c, errRevise)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": respond.Answer(answer)})
}
