package api

import (
	"net/http"

	"github.com/Domenick1991/railbooking/internal/auth"
	"github.com/Domenick1991/railbooking/internal/service/orders"
	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

type OrderHandler struct {
	service orders.OrderUseCase
}

type ticketRequest struct {
	Trip  int64 `json:"trip" binding:"required"`
	Cargo int   `json:"cargo"`
	Seat  int   `json:"seat"`
}

type orderRequest struct {
	Tickets []ticketRequest `json:"tickets" binding:"required,min=1,dive"`
}

func NewOrderHandler(service orders.OrderUseCase) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
}

// list shows only the caller's orders, newest first.
func (h *OrderHandler) list(c *gin.Context) {
	identity, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication credentials were not provided"})
		return
	}
	history, err := h.service.ListForUser(c.Request.Context(), identity.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]OrderListView, 0, len(history.Orders))
	for _, o := range history.Orders {
		views = append(views, orderListView(o, history.Trips))
	}
	c.JSON(http.StatusOK, views)
}

func (h *OrderHandler) create(c *gin.Context) {
	identity, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication credentials were not provided"})
		return
	}
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	input := orders.CreateOrderInput{
		UserID:         identity.UserID,
		IdempotencyKey: c.GetHeader(idempotencyHeader),
		Tickets:        make([]orders.TicketInput, 0, len(req.Tickets)),
	}
	for _, t := range req.Tickets {
		input.Tickets = append(input.Tickets, orders.TicketInput{TripID: t.Trip, Cargo: t.Cargo, Seat: t.Seat})
	}

	order, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderView(*order))
}
