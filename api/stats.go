package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nrtkbb/fsrecon/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// GetStats returns outcome totals across every stored run.
func (h *Handler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	ctx, span := tracer.Start(ctx, "GetStats")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	runs, err := db.CountRuns(ctx, h.db)
	if err != nil {
		span.RecordError(err)
		return httpError(err)
	}
	totals, err := db.OutcomeTotals(ctx, h.db)
	if err != nil {
		span.RecordError(err)
		return httpError(err)
	}
	span.SetAttributes(attribute.Int("runs", runs))

	return c.JSON(http.StatusOK, Stats{Runs: runs, Outcomes: totals})
}
