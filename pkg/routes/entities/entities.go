package entities

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/nettle/pkg/models"
	"github.com/Ramsey-B/nettle/pkg/pipeline"
)

// EntityStore reads persisted entities of the latest run
type EntityStore interface {
	Get(ctx context.Context, id int64) (*models.Entity, error)
}

// LastRun exposes the result of the most recent in-process run
type LastRun interface {
	Last() *pipeline.Result
}

// Register registers entity routes
func Register(g *echo.Group) {
	g.GET("/:id", GetEntity)
}

// GetEntity gets a deduplicated entity by id. Without a registered store,
// lookups go to the last run held in memory.
func GetEntity(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "entity id must be an integer")
	}

	if ctx, store, err := ectoinject.GetContext[EntityStore](ctx); err == nil {
		entity, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, entity)
	}

	_, last, err := ectoinject.GetContext[LastRun](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, "entity not found")
	}
	if result := last.Last(); result != nil {
		for _, entity := range result.Entities {
			if entity.ID == id {
				return c.JSON(http.StatusOK, entity)
			}
		}
	}

	return httperror.NewHTTPError(http.StatusNotFound, "entity not found")
}
