package models

import "github.com/shopspring/decimal"

type FoodCategory string

// FoodCategories is the closed set of menu categories.
var FoodCategories = []FoodCategory{
	"Pizza", "Burger", "Sushi", "Salad", "Dessert",
	"Drinks", "Indian", "Chinese", "Italian", "Other",
}

func (c FoodCategory) Valid() bool {
	for _, v := range FoodCategories {
		if v == c {
			return true
		}
	}
	return false
}

type Food struct {
	Base         `bson:",inline"`
	Name         string          `gorm:"size:50;not null;index"     bson:"name"                 json:"name"`
	Description  string          `gorm:"size:500;not null"          bson:"description"          json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null" bson:"price"               json:"price"`
	Image        string          `gorm:"size:255"                   bson:"image"                json:"image"`
	Category     FoodCategory    `gorm:"size:20;not null;index"     bson:"category"             json:"category"`
	IsAvailable  bool            `gorm:"not null;default:true"      bson:"isAvailable"          json:"isAvailable"`
	Rating       *float64        `                                  bson:"rating,omitempty"     json:"rating,omitempty"`
	RestaurantID string          `gorm:"size:36;index"              bson:"restaurant,omitempty" json:"restaurant,omitempty"`
}
