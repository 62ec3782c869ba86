package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fakhrymubarak/weather-onecall/internal/config"
	"github.com/fakhrymubarak/weather-onecall/internal/model"
	"github.com/fakhrymubarak/weather-onecall/internal/network"
	"github.com/fakhrymubarak/weather-onecall/internal/service"
)

type WeatherHandler struct {
	WeatherService service.WeatherServiceInterface
}

func NewWeatherHandler(svc ...service.WeatherServiceInterface) *WeatherHandler {
	var weatherService service.WeatherServiceInterface
	if len(svc) > 0 && svc[0] != nil {
		weatherService = svc[0]
	} else {
		weatherService = service.NewWeatherService()
	}
	return &WeatherHandler{
		WeatherService: weatherService,
	}
}

func (h *WeatherHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}

// HandleWeather serves GET /weather?lat=..&lon=..; with neither parameter
// the configured default location is used.
func (h *WeatherHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.writeJSONResponse(w, http.StatusMethodNotAllowed, model.ErrorResponse("Method not allowed"))
		return
	}

	lat, lon, err := parseCoordinates(r)
	if err != nil {
		h.writeJSONResponse(w, http.StatusBadRequest, model.ErrorResponse(err.Error()))
		return
	}

	report, err := h.WeatherService.GetWeather(r.Context(), lat, lon)
	if err != nil {
		status := http.StatusInternalServerError
		var nerr *network.NetworkError
		switch {
		case errors.Is(err, service.ErrInvalidCoordinates):
			h.writeJSONResponse(w, http.StatusBadRequest, model.ErrorResponse(err.Error()))
			return
		case errors.As(err, &nerr):
			status = http.StatusBadGateway
		}
		config.GetLogger().Errorw("Failed to fetch weather data", "lat", lat, "lon", lon, "error", err)
		h.writeJSONResponse(w, status, model.ErrorResponse("Failed to fetch weather data"))
		return
	}

	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    report,
		Message: "Success",
	})
}

var errCoordinatePair = errors.New("'lat' and 'lon' query parameters must be given together")

func parseCoordinates(r *http.Request) (lat, lon float64, err error) {
	q := r.URL.Query()
	rawLat, rawLon := q.Get("lat"), q.Get("lon")
	if rawLat == "" && rawLon == "" {
		lat, lon = config.GetDefaultCoordinates()
		return lat, lon, nil
	}
	if rawLat == "" || rawLon == "" {
		return 0, 0, errCoordinatePair
	}
	if lat, err = strconv.ParseFloat(rawLat, 64); err != nil {
		return 0, 0, errors.New("invalid 'lat' query parameter")
	}
	if lon, err = strconv.ParseFloat(rawLon, 64); err != nil {
		return 0, 0, errors.New("invalid 'lon' query parameter")
	}
	return lat, lon, nil
}
