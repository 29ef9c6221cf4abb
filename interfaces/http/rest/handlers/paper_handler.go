package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"paperstore/domain/paper"
	"paperstore/pkg/common"
	"paperstore/pkg/errors"
	"paperstore/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PaperQueries is the read surface the handler dispatches to.
type PaperQueries interface {
	RecentInCategory(ctx context.Context, category string, limit int32) ([]paper.Item, error)
	ByAuthor(ctx context.Context, author string) ([]paper.Item, error)
	ByID(ctx context.Context, id string) (*paper.Item, error)
	InDateRange(ctx context.Context, category, startDate, endDate string) ([]paper.Item, error)
	ByKeyword(ctx context.Context, keyword string, limit int32) ([]paper.Item, error)
}

// PaperHandler handles paper query HTTP requests
type PaperHandler struct {
	queries PaperQueries
	logger  *zap.Logger
}

// NewPaperHandler creates a new paper handler
func NewPaperHandler(queries PaperQueries, logger *zap.Logger) *PaperHandler {
	return &PaperHandler{
		queries: queries,
		logger:  logger,
	}
}

type recentParams struct {
	Category string `validate:"required"`
	Limit    int32  `validate:"min=0"`
}

// Recent handles GET /papers/recent?category=&limit=
func (h *PaperHandler) Recent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, err := parseLimit(r)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := recentParams{
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
	}
	if err := utils.ValidateStruct(params); err != nil {
		common.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.queries.RecentInCategory(r.Context(), params.Category, params.Limit)
	if err != nil {
		h.respondQueryError(w, "recent papers", err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"category":          params.Category,
		"count":             len(items),
		"papers":            items,
		"execution_time_ms": time.Since(start).Milliseconds(),
	})
}

// ByAuthor handles GET /papers/author/{author}
func (h *PaperHandler) ByAuthor(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	author := chi.URLParam(r, "author")
	if author == "" {
		common.RespondError(w, http.StatusBadRequest, "author is required")
		return
	}

	items, err := h.queries.ByAuthor(r.Context(), author)
	if err != nil {
		h.respondQueryError(w, "papers by author", err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"author":            author,
		"count":             len(items),
		"papers":            items,
		"execution_time_ms": time.Since(start).Milliseconds(),
	})
}

// ByID handles GET /papers/{paperID}
func (h *PaperHandler) ByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paperID")
	if id == "" {
		common.RespondError(w, http.StatusBadRequest, "paper id is required")
		return
	}

	item, err := h.queries.ByID(r.Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			common.RespondJSON(w, http.StatusNotFound, map[string]interface{}{
				"error":    true,
				"message":  "paper not found",
				"arxiv_id": id,
			})
			return
		}
		h.respondQueryError(w, "paper by id", err)
		return
	}

	common.RespondJSON(w, http.StatusOK, item)
}

type searchParams struct {
	Category string `validate:"required"`
	Start    string `validate:"required,datetime=2006-01-02"`
	End      string `validate:"required,datetime=2006-01-02"`
}

// Search handles GET /papers/search?category=&start=&end=
func (h *PaperHandler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	params := searchParams{
		Category: r.URL.Query().Get("category"),
		Start:    r.URL.Query().Get("start"),
		End:      r.URL.Query().Get("end"),
	}
	if err := utils.ValidateStruct(params); err != nil {
		common.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.queries.InDateRange(r.Context(), params.Category, params.Start, params.End)
	if err != nil {
		h.respondQueryError(w, "papers in date range", err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"category":          params.Category,
		"start":             params.Start,
		"end":               params.End,
		"count":             len(items),
		"papers":            items,
		"execution_time_ms": time.Since(start).Milliseconds(),
	})
}

// ByKeyword handles GET /papers/keyword/{keyword}?limit=
func (h *PaperHandler) ByKeyword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	keyword := chi.URLParam(r, "keyword")
	if keyword == "" {
		common.RespondError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.queries.ByKeyword(r.Context(), keyword, limit)
	if err != nil {
		h.respondQueryError(w, "papers by keyword", err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"keyword":           keyword,
		"count":             len(items),
		"papers":            items,
		"execution_time_ms": time.Since(start).Milliseconds(),
	})
}

// respondQueryError logs the failure and returns a generic error without
// leaking internal state.
func (h *PaperHandler) respondQueryError(w http.ResponseWriter, operation string, err error) {
	h.logger.Error("query failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	common.RespondError(w, http.StatusInternalServerError, "internal server error")
}

func parseLimit(r *http.Request) (int32, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || limit < 0 {
		return 0, errors.NewValidationError("limit must be a non-negative integer")
	}
	return int32(limit), nil
}
