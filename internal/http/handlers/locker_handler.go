// Locker HTTP handlers.
//
// This file exposes operator-facing REST endpoints for the locker pool:
//   - GET /lockers        (list, paginated, with occupancy counts)
//   - GET /lockers/{id}   (single locker)
//
// These are read-only views; occupancy only changes through the deposit and
// collection workflows.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-locker-backend/internal/domain"
	"github.com/tbourn/go-locker-backend/internal/repo"
	"github.com/tbourn/go-locker-backend/internal/utils"
)

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListLockersResponse wraps a page of lockers, pool occupancy counts, and
// pagination information.
type ListLockersResponse struct {
	Lockers    []domain.Locker `json:"lockers"`
	Total      int64           `json:"total"`
	Free       int64           `json:"free"`
	Pagination Pagination      `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// ListLockers godoc
// @ID          listLockers
// @Summary     List lockers (paginated)
// @Description Returns a page of the locker pool together with total and free counts.
// @Tags        Lockers
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListLockersResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /lockers [get]
func (h *Handlers) ListLockers(c *gin.Context) {
	ctx := c.Request.Context()
	db := h.DB
	if db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "locker store unavailable")
		return
	}

	page, pageSize := clampPagination(c)

	total, free, err := repo.CountLockers(ctx, db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListLockersPage(ctx, db, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListLockersResponse{
		Lockers: items,
		Total:   total,
		Free:    free,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetLocker godoc
// @ID          getLocker
// @Summary     Get a single locker
// @Tags        Lockers
// @Produce     json
//
// @Param       id  path  int  true  "Locker ID"  minimum(1)
//
// @Success     200  {object} domain.Locker
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Locker not found"
// @Router      /lockers/{id} [get]
func (h *Handlers) GetLocker(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "locker id must be a positive integer")
		return
	}

	db := h.DB
	if db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "locker store unavailable")
		return
	}

	l, err := repo.GetLocker(c.Request.Context(), db, uint(id))
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "locker not found")
		return
	}
	ok(c, http.StatusOK, l)
}
