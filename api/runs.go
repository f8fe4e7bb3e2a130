package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nrtkbb/fsrecon/db"
	"github.com/nrtkbb/fsrecon/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var knownOutcomes = map[models.Outcome]bool{
	models.OutcomeDeleted:           true,
	models.OutcomeMovedNew:          true,
	models.OutcomeReplacedByRecency: true,
	models.OutcomeLeftAsConflict:    true,
	models.OutcomeSkippedDuplicate:  true,
	models.OutcomeFailed:            true,
}

// ListRuns returns stored runs, most recent first, 100 per page.
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	ctx, span := tracer.Start(ctx, "ListRuns")
	defer span.End()

	c.SetRequest(c.Request().WithContext(ctx))

	total, err := db.CountRuns(ctx, h.db)
	if err != nil {
		span.RecordError(err)
		return httpError(err)
	}

	page, err := h.getPageFromQuery(c, total)
	if err != nil {
		span.RecordError(err)
		return err
	}

	runs, err := db.ListRuns(ctx, h.db, perPage, (page-1)*perPage)
	if err != nil {
		span.RecordError(err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, NewPaginatedResponse(c, runs, page, perPage, total))
}

// GetRun returns one run with its outcome counts and skipped paths.
func (h *Handler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	ctx, span := tracer.Start(ctx, "GetRun")
	defer span.End()

	c.SetRequest(c.Request().WithContext(ctx))

	runID := c.Param("id")
	span.SetAttributes(attribute.String("run_id", runID))

	summary, err := db.GetRun(ctx, h.db, runID)
	if err != nil {
		span.RecordError(err)
		return httpError(err)
	}
	failures, err := db.ListReadFailures(ctx, h.db, runID)
	if err != nil {
		span.RecordError(err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, RunDetail{RunSummary: *summary, FailedPaths: failures})
}

// ListOutcomes returns the per-file outcomes of a run, optionally filtered
// by ?outcome=.
func (h *Handler) ListOutcomes(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	ctx, span := tracer.Start(ctx, "ListOutcomes")
	defer span.End()

	c.SetRequest(c.Request().WithContext(ctx))

	runID := c.Param("id")
	filter := models.Outcome(c.QueryParam("outcome"))
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("outcome", string(filter)))

	if filter != "" && !knownOutcomes[filter] {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown outcome: "+string(filter))
	}

	if _, err := db.GetRun(ctx, h.db, runID); err != nil {
		span.RecordError(err)
		return httpError(err)
	}

	outcomes, err := db.ListOutcomes(ctx, h.db, runID, filter)
	if err != nil {
		span.RecordError(err)
		return httpError(err)
	}

	page, err := h.getPageFromQuery(c, len(outcomes))
	if err != nil {
		span.RecordError(err)
		return err
	}
	start := min((page-1)*perPage, len(outcomes))
	end := min(start+perPage, len(outcomes))

	return c.JSON(http.StatusOK, NewPaginatedResponse(c, outcomes[start:end], page, perPage, len(outcomes)))
}
