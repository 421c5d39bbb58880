package gormrepo

import (
	"strings"

	"github.com/SAP-F-2025/generic-repository/internal/persistence"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// applyPaginationAndSort applies pagination and sorting with SQL injection protection
func applyPaginationAndSort[E any](query *persistence.Query[E], allowedSortColumns map[string]bool, sortBy, sortOrder string, limit, offset int) *persistence.Query[E] {
	// Validate and set sort column
	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	// Validate and set sort order
	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	// id as tie breaker keeps pages stable
	query = query.Order(sortBy + " " + sortOrder)
	if sortBy != "id" {
		query = query.Order("id ASC")
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}
