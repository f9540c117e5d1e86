package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/Domenick1991/railbooking/internal/service/catalog"
	"github.com/gin-gonic/gin"
)

type ImageURLs interface {
	URL(rel string) string
}

type StationHandler struct {
	service catalog.StationUseCase
	images  ImageURLs
}

type stationRequest struct {
	Name      string   `json:"name" form:"name" binding:"required,max=255"`
	Latitude  *float64 `json:"latitude" form:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" form:"longitude" binding:"required,gte=-180,lte=180"`
}

func NewStationHandler(service catalog.StationUseCase, images ImageURLs) *StationHandler {
	return &StationHandler{service: service, images: images}
}

func (h *StationHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.POST("/:id/upload-image", h.uploadImage)
}

func (h *StationHandler) list(c *gin.Context) {
	stations, err := h.service.ListStations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]StationView, 0, len(stations))
	for _, s := range stations {
		views = append(views, stationView(s))
	}
	c.JSON(http.StatusOK, views)
}

// create accepts JSON or form bodies; an image part in a multipart body is ignored.
func (h *StationHandler) create(c *gin.Context) {
	var req stationRequest
	if err := c.ShouldBind(&req); err != nil {
		writeBindError(c, err)
		return
	}

	station, err := h.service.CreateStation(c.Request.Context(), catalog.CreateStationInput{
		Name:      req.Name,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stationView(*station))
}

func (h *StationHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	station, err := h.service.GetStation(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stationDetailView(*station, h.images.URL))
}

func (h *StationHandler) uploadImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		writeError(c, domain.NewValidationError("image", "no file was submitted"))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer file.Close()

	station, err := h.service.UploadStationImage(c.Request.Context(), id, file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stationDetailView(*station, h.images.URL))
}

// pathID parses :id and answers 404 itself when it is not a positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
		return 0, false
	}
	return id, true
}
