package suggestion

import (
	"github.com/gin-gonic/gin"

	"github.com/ksred/restock-api/internal/types"
	"github.com/ksred/restock-api/internal/workflow"
	"github.com/ksred/restock-api/pkg/response"
)

// GinHandlers contains HTTP handlers for suggestion endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

func actorFromContext(c *gin.Context) (workflow.Actor, bool) {
	clientID := c.GetString("clientID")
	role := types.Role(c.GetString("role"))
	if clientID == "" || !role.Valid() {
		return workflow.Actor{}, false
	}
	return workflow.Actor{UserID: clientID, Role: role}, true
}

// ListPendingHandler handles GET requests for the pending suggestion set
// Query parameter: store_id (optional)
func (h *GinHandlers) ListPendingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		suggestions, err := h.service.ListPending(c.Query("store_id"))
		response.Handle(c, suggestions, err)
	}
}

func (h *GinHandlers) GetSuggestionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sg, err := h.service.GetPending(c.Param("suggestion_id"))
		response.Handle(c, sg, err)
	}
}

// ApproveSuggestionHandler converts a pending suggestion into an order.
func (h *GinHandlers) ApproveSuggestionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		order, err := h.service.Approve(c.Param("suggestion_id"), actor)
		response.Handle(c, order, err)
	}
}

type rejectSuggestionRequest struct {
	Reason string `json:"reason"`
}

func (h *GinHandlers) RejectSuggestionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		var req rejectSuggestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		suggestionID := c.Param("suggestion_id")
		if err := h.service.Reject(suggestionID, actor, req.Reason); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"suggestion_id": suggestionID, "rejected": true})
	}
}
