package httpapi

import (
	"strings"

	"github.com/ansel1/merry"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/covid-dashboard/internal/covid"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *covid.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/national", func(c *fiber.Ctx) error {
		sum, err := service.NationalSummary(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(sum)
	})

	v1.Get("/national/series", func(c *fiber.Ctx) error {
		metrics, err := covid.ParseMetrics(c.Query("metrics"))
		if err != nil {
			return err
		}
		points, err := service.NationalTimeseries(c.UserContext(), metrics)
		if err != nil {
			return err
		}
		return c.JSON(points)
	})

	v1.Get("/states", func(c *fiber.Ctx) error {
		present, err := service.States(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"canonical": covid.StateCodes(),
			"reported":  present,
		})
	})

	v1.Get("/states/current", func(c *fiber.Ctx) error {
		snap, err := service.CurrentSnapshot(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(snap)
	})

	v1.Get("/states/top", func(c *fiber.Ctx) error {
		var q topQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ranked, err := service.TopNByMetric(c.UserContext(), q.N, covid.Metric(q.Metric))
		if err != nil {
			return err
		}
		return c.JSON(ranked)
	})

	v1.Get("/states/:state", func(c *fiber.Ctx) error {
		state, err := parseState(c)
		if err != nil {
			return err
		}
		detail, err := service.StateDetail(c.UserContext(), state)
		if err != nil {
			return err
		}
		return c.JSON(detail)
	})

	v1.Get("/states/:state/series", func(c *fiber.Ctx) error {
		state, err := parseState(c)
		if err != nil {
			return err
		}
		metrics, err := covid.ParseMetrics(c.Query("metrics"))
		if err != nil {
			return err
		}
		points, err := service.StateTimeseries(c.UserContext(), state, metrics)
		if err != nil {
			return err
		}
		return c.JSON(points)
	})
}

// topQuery holds query parameters for the ranking endpoint.
type topQuery struct {
	N      int    `query:"n" validate:"required,min=1"`
	Metric string `query:"metric" validate:"required"`
}

// stateParam is the :state path segment.
type stateParam struct {
	State string `validate:"required,len=2,alpha"`
}

func parseState(c *fiber.Ctx) (string, error) {
	p := stateParam{State: strings.ToUpper(c.Params("state"))}
	if err := validate.Struct(p); err != nil {
		return "", covid.ErrUnknownState.Here().WithCause(err).Appendf("%q", c.Params("state"))
	}
	return p.State, nil
}

// ErrorHandler renders errors as JSON. Fiber errors keep their code, the
// covid error taxonomy maps through its HTTP codes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := merry.HTTPCode(err)
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
