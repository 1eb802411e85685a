package handlers

import (
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/Tombunzel/HarmonApp/internal/apperr"
	"github.com/Tombunzel/HarmonApp/internal/service/search"
	"github.com/Tombunzel/HarmonApp/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

// Search queries the catalog index for tracks and albums by name.
func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	query := c.QueryParam("q")
	if query == "" {
		return httpError(fmt.Errorf("%w: q required", apperr.ErrValidation))
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, docs, err := search.Search(ctx, h.ES, h.Index, query, from, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total":   total,
		"results": docs,
	})
}
