package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/Domenick1991/railbooking/internal/service/trips"
	"github.com/gin-gonic/gin"
)

type TripHandler struct {
	service trips.TripUseCase
}

type tripRequest struct {
	Route         int64     `json:"route" binding:"required,gt=0"`
	Train         int64     `json:"train" binding:"required,gt=0"`
	DepartureTime time.Time `json:"departure_time" binding:"required"`
	ArrivalTime   time.Time `json:"arrival_time" binding:"required"`
	Crew          []int64   `json:"crew" binding:"required,min=1,dive,gt=0"`
}

func NewTripHandler(service trips.TripUseCase) *TripHandler {
	return &TripHandler{service: service}
}

func (h *TripHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
}

// list supports ?source=<id>&destination=<id>&departure_time=YYYY-MM-DD.
func (h *TripHandler) list(c *gin.Context) {
	filter, err := domain.ParseTripFilter(c.Query("source"), c.Query("destination"), c.Query("departure_time"))
	if err != nil {
		writeError(c, err)
		return
	}
	summaries, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]TripListView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, tripListView(s))
	}
	c.JSON(http.StatusOK, views)
}

func (h *TripHandler) create(c *gin.Context) {
	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	trip, err := h.service.Create(c.Request.Context(), trips.CreateTripInput{
		RouteID:       req.Route,
		TrainID:       req.Train,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		CrewIDs:       req.Crew,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tripView(*trip))
}

func (h *TripHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	details, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tripDetailView(*details))
}
