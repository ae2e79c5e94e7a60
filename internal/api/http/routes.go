// Package httpapi exposes the read-only dashboard API.
package httpapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/citysun/sunshine-tracker/internal/store"
)

const defaultHistoryLimit = 365

var validate = validator.New()

// Reader is the slice of the store the API reads from.
type Reader interface {
	ListCities() ([]store.City, error)
	LatestRecord(city string) (*store.WeatherRecord, error)
	SunshineSeries(city string, limit int) ([]store.SunshinePoint, error)
}

// NewServer builds the fiber app with middleware and routes wired in.
func NewServer(reader Reader) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "sunshine-tracker",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())
	// The dashboard frontend is served from another origin.
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "sunshine-tracker",
		})
	})

	RegisterRoutes(app, reader)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reader Reader) {
	app.Get("/cities", func(c *fiber.Ctx) error {
		cities, err := reader.ListCities()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list cities")
		}
		if cities == nil {
			cities = []store.City{}
		}
		return c.JSON(cities)
	})

	app.Get("/weather", func(c *fiber.Ctx) error {
		var q weatherQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		// No city requested: respond with the empty shape rather than
		// an error. Unknown cities fall through to the same shape.
		if q.City == "" {
			return c.JSON(weatherResponse{History: []store.SunshinePoint{}})
		}

		current, err := reader.LatestRecord(q.City)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		history, err := reader.SunshineSeries(q.City, q.Limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}
		if history == nil {
			history = []store.SunshinePoint{}
		}

		return c.JSON(weatherResponse{Current: current, History: history})
	})
}

type weatherResponse struct {
	Current *store.WeatherRecord  `json:"current"`
	History []store.SunshinePoint `json:"history"`
}

// weatherQuery holds the /weather query parameters. City is optional;
// limit is bounded to the stored year of history.
type weatherQuery struct {
	City  string
	Limit int `validate:"min=1,max=365"`
}

func (q *weatherQuery) bind(c *fiber.Ctx) error {
	q.City = c.Query("city")
	q.Limit = c.QueryInt("limit", defaultHistoryLimit)
	return validate.Struct(q)
}
