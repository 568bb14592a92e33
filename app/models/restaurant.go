package models

type RestaurantStatus string

const (
	RestaurantPending  RestaurantStatus = "Pending"
	RestaurantApproved RestaurantStatus = "Approved"
	RestaurantRejected RestaurantStatus = "Rejected"
)

func (s RestaurantStatus) Valid() bool {
	return s == RestaurantPending || s == RestaurantApproved || s == RestaurantRejected
}

// Restaurant is a partnership application, one per owning user.
type Restaurant struct {
	Base        `bson:",inline"`
	OwnerID     string           `gorm:"size:36;uniqueIndex;not null"  bson:"owner"       json:"owner"`
	Title       string           `gorm:"size:100;not null"             bson:"title"       json:"title"`
	Description string           `gorm:"size:1000"                     bson:"description" json:"description"`
	GSTNumber   string           `gorm:"size:20;uniqueIndex;not null"  bson:"gstNumber"   json:"gstNumber"`
	Address     string           `gorm:"size:255;not null"             bson:"address"     json:"address"`
	Phone       string           `gorm:"size:20;not null"              bson:"phone"       json:"phone"`
	Image       string           `gorm:"size:255"                      bson:"image"       json:"image"`
	Status      RestaurantStatus `gorm:"size:20;not null;index"        bson:"status"      json:"status"`
}
