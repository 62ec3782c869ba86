package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/fakhrymubarak/weather-onecall/internal/model"
	"github.com/fakhrymubarak/weather-onecall/internal/repository"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

type WeatherServiceInterface interface {
	GetWeather(ctx context.Context, lat, lon float64) (*model.WeatherReport, error)
}

type WeatherService struct {
	WeatherRepo repository.WeatherRepository
}

// NewWeatherService uses the default repository unless one is supplied.
func NewWeatherService(repo ...repository.WeatherRepository) *WeatherService {
	var weatherRepo repository.WeatherRepository
	if len(repo) > 0 && repo[0] != nil {
		weatherRepo = repo[0]
	} else {
		weatherRepo = repository.NewWeatherRepository()
	}
	return &WeatherService{WeatherRepo: weatherRepo}
}

func (s *WeatherService) GetWeather(ctx context.Context, lat, lon float64) (*model.WeatherReport, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	return s.WeatherRepo.GetWeather(ctx, lat, lon)
}

// ValidateCoordinates rejects positions outside the WGS84 ranges.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, lon)
	}
	return nil
}
