// Package orm is a thin fluent layer over gorm used by the SQL repositories.
// Every terminal call records its latency in the db query histogram.
package orm

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/feastly/feastly/pkg/cache"
	"github.com/feastly/feastly/pkg/metrics"
)

// ErrRecordNotFound aliases gorm's sentinel so callers need not import gorm.
var ErrRecordNotFound = gorm.ErrRecordNotFound

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination clamps page/limit and derives the page count.
func NewPagination(page, limit int, total int64) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// Offset is the number of rows to skip for this page.
func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

// Query is immutable: every chain method returns a new Query. Preloads are
// applied only when rows are loaded, never to counts.
type Query struct {
	db       *gorm.DB
	preloads []string
}

// New starts a query on the given connection (usually database.DB).
func New(db *gorm.DB) *Query {
	return &Query{db: db}
}

func (q *Query) with(db *gorm.DB) *Query {
	return &Query{db: db, preloads: q.preloads}
}

func (q *Query) WithContext(ctx context.Context) *Query {
	return q.with(q.db.WithContext(ctx))
}

func (q *Query) Model(v interface{}) *Query {
	return q.with(q.db.Model(v))
}

func (q *Query) Where(query interface{}, args ...interface{}) *Query {
	return q.with(q.db.Where(query, args...))
}

func (q *Query) Preload(assoc string) *Query {
	return &Query{db: q.db, preloads: append(append([]string(nil), q.preloads...), assoc)}
}

func (q *Query) Order(by string) *Query {
	return q.with(q.db.Order(by))
}

func (q *Query) loader() *gorm.DB {
	db := q.db
	for _, p := range q.preloads {
		db = db.Preload(p)
	}
	return db
}

func (q *Query) Get(dest interface{}) error {
	defer metrics.ObserveDBQuery("select", time.Now())
	return q.loader().Find(dest).Error
}

func (q *Query) First(dest interface{}) error {
	defer metrics.ObserveDBQuery("select", time.Now())
	return q.loader().First(dest).Error
}

func (q *Query) Exists() (bool, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	var n int64
	err := q.db.Limit(1).Count(&n).Error
	return n > 0, err
}

func (q *Query) Create(v interface{}) error {
	defer metrics.ObserveDBQuery("insert", time.Now())
	return q.db.Create(v).Error
}

func (q *Query) Save(v interface{}) error {
	defer metrics.ObserveDBQuery("update", time.Now())
	return q.db.Save(v).Error
}

// Updates applies a column map and reports how many rows matched.
func (q *Query) Updates(columns map[string]interface{}) (int64, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	res := q.db.Updates(columns)
	return res.RowsAffected, res.Error
}

// Delete removes rows matching the current conditions.
func (q *Query) Delete(model interface{}) (int64, error) {
	defer metrics.ObserveDBQuery("delete", time.Now())
	res := q.db.Delete(model)
	return res.RowsAffected, res.Error
}

// Transaction runs fn inside a database transaction.
func (q *Query) Transaction(fn func(tx *Query) error) error {
	return q.db.Transaction(func(tx *gorm.DB) error {
		return fn(q.with(tx))
	})
}

// Paginate counts the matching rows and loads one page into dest.
func (q *Query) Paginate(dest interface{}, page, limit int) (Pagination, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	var total int64
	if err := q.db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	p := NewPagination(page, limit, total)
	err := q.loader().Session(&gorm.Session{}).Offset(p.Offset()).Limit(p.Limit).Find(dest).Error
	return p, err
}

// Cache serves dest from the cache when present, otherwise loads and stores it.
func (q *Query) Cache(key string, ttl time.Duration, dest interface{}) error {
	if cache.Get(key, dest) {
		return nil
	}

	if err := q.Get(dest); err != nil {
		return err
	}

	_ = cache.Set(key, dest, ttl)
	return nil
}

// IsNotFound reports whether err is gorm's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
