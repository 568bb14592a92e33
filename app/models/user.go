package models

import "time"

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleRestaurant = "restaurant"
)

type User struct {
	Base         `bson:",inline"`
	Name         string              `gorm:"size:255;not null"             bson:"name"               json:"name"`
	Email        string              `gorm:"uniqueIndex;size:255;not null" bson:"email"              json:"email"`
	Password     string              `gorm:"size:255"                      bson:"password,omitempty" json:"-"`
	GoogleID     string              `gorm:"size:100;index"                bson:"googleId,omitempty" json:"-"`
	Phone        string              `gorm:"size:20"                       bson:"phone"              json:"phone"`
	Role         string              `gorm:"size:20;not null;default:user" bson:"role"               json:"role"`
	OrderHistory []OrderHistoryEntry `gorm:"foreignKey:UserID"             bson:"orderHistory"       json:"-"`
}

// OrderHistoryEntry links a user to one order they placed.
type OrderHistoryEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" bson:"-"         json:"-"`
	UserID    string    `gorm:"size:36;index;not null"   bson:"-"         json:"-"`
	OrderID   string    `gorm:"size:36;not null"         bson:"orderId"   json:"orderId"`
	CreatedAt time.Time `                                bson:"createdAt" json:"createdAt"`
}
