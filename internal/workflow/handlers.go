package workflow

import (
	"github.com/gin-gonic/gin"

	"github.com/ksred/restock-api/internal/types"
	"github.com/ksred/restock-api/pkg/response"
)

// GinHandlers contains HTTP handlers for order workflow endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// actorFromContext builds the acting identity from the JWT claims the auth
// middleware put on the context.
func actorFromContext(c *gin.Context) (Actor, bool) {
	clientID := c.GetString("clientID")
	role := types.Role(c.GetString("role"))
	if clientID == "" || !role.Valid() {
		return Actor{}, false
	}
	return Actor{UserID: clientID, Role: role}, true
}

// CreateOrderHandler handles POST requests to create orders
// Request body contains store, line items, and shipping details
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		var in CreateOrderInput
		if err := c.ShouldBindJSON(&in); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		in.AutoApproved = false // only internal triage may set this
		if in.CreatedByUserID == "" {
			in.CreatedByUserID = actor.UserID
		}

		order, err := h.service.CreateOrder(in)
		response.Handle(c, order, err)
	}
}

func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := h.service.GetOrder(c.Param("order_id"))
		response.Handle(c, order, err)
	}
}

// ListOrdersHandler handles GET requests for orders
// Query parameter: store_id (optional)
func (h *GinHandlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := h.service.ListOrders(c.Query("store_id"))
		response.Handle(c, orders, err)
	}
}

func (h *GinHandlers) AuditHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.service.GetAuditHistory(c.Param("order_id"))
		response.Handle(c, entries, err)
	}
}

func (h *GinHandlers) ApproveOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		order, err := h.service.Approve(c.Param("order_id"), actor)
		response.Handle(c, order, err)
	}
}

type rejectRequest struct {
	ReasonCode types.RejectionReason `json:"reason_code"`
	Comments   string                `json:"comments"`
}

func (h *GinHandlers) RejectOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		var req rejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.Reject(c.Param("order_id"), actor, req.ReasonCode, req.Comments)
		response.Handle(c, order, err)
	}
}

type dispatchRequest struct {
	Method string `json:"method"`
}

func (h *GinHandlers) DispatchOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		var req dispatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.Dispatch(c.Param("order_id"), actor, req.Method)
		response.Handle(c, order, err)
	}
}

type receiveRequest struct {
	Partial bool `json:"partial"`
}

func (h *GinHandlers) ReceiveOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		var req receiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.Receive(c.Param("order_id"), actor, req.Partial)
		response.Handle(c, order, err)
	}
}

type updateItemsRequest struct {
	LineItems []types.LineItem `json:"line_items"`
}

func (h *GinHandlers) UpdateLineItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		var req updateItemsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.UpdateLineItems(c.Param("order_id"), actor, req.LineItems)
		response.Handle(c, order, err)
	}
}
