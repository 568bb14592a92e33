package migrations

import (
	"gorm.io/gorm"

	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/pkg/migration"
	"github.com/feastly/feastly/pkg/queue"
)

func init() {
	migration.Register("20260301000000_create_users_table", &CreateUsersTable{})
	migration.Register("20260301000001_create_foods_table", migration.Func(
		func(db *gorm.DB) error { return db.AutoMigrate(&models.Food{}) },
		func(db *gorm.DB) error { return db.Migrator().DropTable(&models.Food{}) },
	))
	migration.Register("20260301000002_create_restaurants_table", migration.Func(
		func(db *gorm.DB) error { return db.AutoMigrate(&models.Restaurant{}) },
		func(db *gorm.DB) error { return db.Migrator().DropTable(&models.Restaurant{}) },
	))
	migration.Register("20260301000003_create_orders_table", &CreateOrdersTable{})
	migration.Register("20260301000004_create_failed_jobs_table", migration.Func(
		func(db *gorm.DB) error { return db.AutoMigrate(&queue.FailedJobRecord{}) },
		func(db *gorm.DB) error { return db.Migrator().DropTable(&queue.FailedJobRecord{}) },
	))
}

// CreateUsersTable also creates order_history_entries, the join rows behind
// a user's order history.
type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.OrderHistoryEntry{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.OrderHistoryEntry{}, &models.User{})
}

// CreateOrdersTable creates orders and their frozen line items. The
// (user_id, idempotency_key) unique index backs replay detection.
type CreateOrdersTable struct{}

func (m *CreateOrdersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{}, &models.OrderItem{})
}

func (m *CreateOrdersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.OrderItem{}, &models.Order{})
}
