package query

import (
	"strings"

	"gorm.io/gorm"
)

// Op is a comparison operator supported by list filters.
type Op string

const (
	OpEq       Op = "eq"
	OpContains Op = "contains"
)

// Filter is one user-supplied predicate on a whitelisted column.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Sort orders results by a whitelisted column.
type Sort struct {
	Field      string
	Descending bool
}

// Spec is a neutral paged-listing specification. It is translated into
// gorm clauses by Scope; the mandatory account predicate is always ANDed
// in and can never be replaced by user filters.
type Spec struct {
	Filters  []Filter
	Sorts    []Sort
	Page     int
	PageSize int
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Scope builds a gorm scope applying the account boundary plus the requested
// filters, ordering and pagination. Fields not present in allowedFields
// are silently dropped.
func (s Spec) Scope(accountID int64, allowedFields map[string]string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("account_id = ?", accountID)

		for _, f := range s.Filters {
			column, ok := allowedFields[f.Field]
			if !ok {
				continue
			}
			switch f.Op {
			case OpContains:
				if v, ok := f.Value.(string); ok {
					db = db.Where(column+" LIKE ?", "%"+escapeLike(v)+"%")
				}
			default:
				db = db.Where(column+" = ?", f.Value)
			}
		}

		for _, so := range s.Sorts {
			column, ok := allowedFields[so.Field]
			if !ok {
				continue
			}
			if so.Descending {
				db = db.Order(column + " DESC")
			} else {
				db = db.Order(column + " ASC")
			}
		}

		pageSize := s.PageSize
		if pageSize <= 0 {
			pageSize = defaultPageSize
		}
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		page := s.Page
		if page < 1 {
			page = 1
		}
		return db.Limit(pageSize).Offset((page - 1) * pageSize)
	}
}

func escapeLike(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "%", `\%`)
	return strings.ReplaceAll(v, "_", `\_`)
}
