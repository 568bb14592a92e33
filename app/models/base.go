// Package models holds the persisted records. The same structs are mapped by
// gorm (SQL stores), by the mongo driver (bson tags) and by the JSON API.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Amounts go over the wire as JSON numbers (250.5), not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// NewID returns a fresh primary key. Every store uses string UUIDs so ids
// look the same regardless of DB_DRIVER.
func NewID() string { return uuid.NewString() }

// Base carries the id and timestamps shared by every record.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" bson:"_id"       json:"id"`
	CreatedAt time.Time `gorm:"index"              bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `                          bson:"updatedAt" json:"updatedAt"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

// Touch stamps the timestamps for stores without gorm's autoCreateTime.
func (b *Base) Touch(now time.Time) {
	if b.ID == "" {
		b.ID = NewID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}
