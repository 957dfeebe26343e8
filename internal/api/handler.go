// Package api implements the GET /search HTTP handler in front of the
// range query composer.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fever-marketplace/events/internal/domain"

	coreerrors "github.com/fever-marketplace/events/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// Searcher is the subset of composer.Composer the handler needs.
type Searcher interface {
	Search(ctx context.Context, from, to domain.CivilTimestamp) ([]*domain.Event, error)
}

// Handler serves GET /search.
type Handler struct {
	composer Searcher
}

// NewHandler builds a Handler.
func NewHandler(composer Searcher) *Handler {
	return &Handler{composer: composer}
}

// eventDTO is the JSON shape of a single event in the response envelope,
// per §6: dates as YYYY-MM-DD, times as HH:MM:SS, prices with two
// fractional digits.
type eventDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time"`
	EndDate   string `json:"end_date"`
	EndTime   string `json:"end_time"`
	MinPrice  string `json:"min_price"`
	MaxPrice  string `json:"max_price"`
}

type eventsEnvelope struct {
	Events []eventDTO `json:"events"`
}

type searchResponse struct {
	Data eventsEnvelope `json:"data"`
}

func emptyResponse() searchResponse {
	return searchResponse{Data: eventsEnvelope{Events: []eventDTO{}}}
}

// Search handles GET /search?starts_at=...&ends_at=....
func (h *Handler) Search(c *gin.Context) {
	startsAt := c.Query("starts_at")
	endsAt := c.Query("ends_at")

	from, err := domain.ParseCivilDateTime(startsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, emptyResponse())
		return
	}
	to, err := domain.ParseCivilDateTime(endsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, emptyResponse())
		return
	}

	events, err := h.composer.Search(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, coreerrors.ErrInvalidRange) {
			c.JSON(http.StatusBadRequest, emptyResponse())
			return
		}
		slog.Error("[API] search failed", "error", err)
		c.JSON(http.StatusInternalServerError, emptyResponse())
		return
	}

	c.JSON(http.StatusOK, toResponse(events))
}

func toResponse(events []*domain.Event) searchResponse {
	dtos := make([]eventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventDTO{
			ID:        e.ID,
			Title:     e.Title,
			StartDate: e.StartDate.String(),
			StartTime: e.StartTime.String(),
			EndDate:   e.EndDate.String(),
			EndTime:   e.EndTime.String(),
			MinPrice:  e.MinPrice.StringFixed(2),
			MaxPrice:  e.MaxPrice.StringFixed(2),
		})
	}
	return searchResponse{Data: eventsEnvelope{Events: dtos}}
}
