package api

import (
	"net/http"

	"github.com/Domenick1991/railbooking/internal/service/catalog"
	"github.com/gin-gonic/gin"
)

type TrainTypeHandler struct {
	service catalog.TrainUseCase
}

type trainTypeRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

func NewTrainTypeHandler(service catalog.TrainUseCase) *TrainTypeHandler {
	return &TrainTypeHandler{service: service}
}

func (h *TrainTypeHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
}

func (h *TrainTypeHandler) list(c *gin.Context) {
	types, err := h.service.ListTrainTypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]TrainTypeView, 0, len(types))
	for _, tt := range types {
		views = append(views, trainTypeView(tt))
	}
	c.JSON(http.StatusOK, views)
}

func (h *TrainTypeHandler) create(c *gin.Context) {
	var req trainTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	tt, err := h.service.CreateTrainType(c.Request.Context(), catalog.CreateTrainTypeInput{Name: req.Name})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trainTypeView(*tt))
}

type TrainHandler struct {
	service catalog.TrainUseCase
}

type trainRequest struct {
	Name          string `json:"name" binding:"required,max=255"`
	CargoNum      int    `json:"cargo_num" binding:"required,gt=0"`
	PlacesInCargo int    `json:"places_in_cargo" binding:"required,gt=0"`
	TrainType     *int64 `json:"train_type" binding:"omitempty,gt=0"`
}

func NewTrainHandler(service catalog.TrainUseCase) *TrainHandler {
	return &TrainHandler{service: service}
}

func (h *TrainHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
}

func (h *TrainHandler) list(c *gin.Context) {
	trains, err := h.service.ListTrains(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]TrainListView, 0, len(trains))
	for _, t := range trains {
		views = append(views, trainListView(t))
	}
	c.JSON(http.StatusOK, views)
}

func (h *TrainHandler) create(c *gin.Context) {
	var req trainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	train, err := h.service.CreateTrain(c.Request.Context(), catalog.CreateTrainInput{
		Name:          req.Name,
		CargoNum:      req.CargoNum,
		PlacesInCargo: req.PlacesInCargo,
		TrainTypeID:   req.TrainType,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trainView(train.Train))
}

func (h *TrainHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	train, err := h.service.GetTrain(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trainDetailView(train.Train, train.Type))
}
