package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"swift/internal/service"
)

// FareHandler serves the public fare table.
type FareHandler struct {
	fareService *service.FareService
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(fareService *service.FareService) *FareHandler {
	return &FareHandler{fareService: fareService}
}

// DestinationsResponse lists every destination at the current surge.
type DestinationsResponse struct {
	Surge        float64               `json:"surge"`
	Destinations []service.Destination `json:"destinations"`
}

// Destinations handles GET /v1/destinations
func (h *FareHandler) Destinations(c *gin.Context) {
	respondJSON(c, http.StatusOK, DestinationsResponse{
		Surge:        h.fareService.Surge(),
		Destinations: h.fareService.Destinations(),
	})
}

// Quote handles GET /v1/fares?destination=
func (h *FareHandler) Quote(c *gin.Context) {
	destination := c.Query("destination")
	if destination == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "destination is required"})
		return
	}

	quote, err := h.fareService.Quote(destination)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, quote)
}
