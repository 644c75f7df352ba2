package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-forecast-api/internal/weather"
)

var validate = validator.New()

// Forecaster answers forecast lookups for the HTTP layer.
type Forecaster interface {
	GetForecast(ctx context.Context, key weather.Key, opts weather.FetchOptions) (weather.Payload, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Forecaster) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/forecast/coordinates", func(c *fiber.Ctx) error {
		q, err := parseForecastQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		payload, err := service.GetForecast(c.UserContext(), q.key(), weather.FetchOptions{Exclude: q.Exclude})
		if err != nil {
			if errors.Is(err, weather.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, weather.ErrNotFound.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather forecast")
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(payload)
	})
}

// forecastQuery holds the query parameters of the forecast endpoint.
type forecastQuery struct {
	Lat     *float64      `validate:"required,gte=-90,lte=90"`
	Lon     *float64      `validate:"required,gte=-180,lte=180"`
	Units   weather.Units `validate:"oneof=metric imperial standard"`
	Exclude []weather.Part
}

func (q forecastQuery) key() weather.Key {
	return weather.Key{Lat: *q.Lat, Lon: *q.Lon, Units: q.Units}
}

func parseForecastQuery(c *fiber.Ctx) (forecastQuery, error) {
	var q forecastQuery

	lat, err := parseCoordinate(c, "lat")
	if err != nil {
		return q, err
	}
	lon, err := parseCoordinate(c, "lon")
	if err != nil {
		return q, err
	}
	q.Lat, q.Lon = lat, lon

	if q.Units, err = weather.ParseUnits(c.Query("units")); err != nil {
		return q, err
	}
	if q.Exclude, err = weather.ParseParts(c.Query("exclude")); err != nil {
		return q, err
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// parseCoordinate returns nil when the parameter is absent so that validation reports it as required.
func parseCoordinate(c *fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: must be a number", name, raw)
	}
	return &v, nil
}
