// README: Standalone weather preview for a place name.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tabiplan/internal/service"
	"tabiplan/internal/weather"
)

const weatherTimeout = 20 * time.Second

type WeatherHandler struct {
	planner *service.Planner
}

func NewWeatherHandler(planner *service.Planner) *WeatherHandler {
	return &WeatherHandler{planner: planner}
}

// Get handles GET /api/weather?place=&start_date=&days=.
func (h *WeatherHandler) Get(c *gin.Context) {
	place := strings.TrimSpace(c.Query("place"))
	if place == "" {
		writeError(c, http.StatusBadRequest, "missing place")
		return
	}

	days := 0
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > weather.MaxForecastDays {
			writeError(c, http.StatusBadRequest, "days must be between 1 and 16")
			return
		}
		days = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), weatherTimeout)
	defer cancel()

	pv, err := h.planner.Forecast(ctx, place, c.Query("start_date"), days)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, pv)
}
