package models

import (
	"time"

	"gorm.io/datatypes"
)

type Item struct {
	ID         string         `json:"id" gorm:"primaryKey;size:64" validate:"required,max=64,item_id"`
	Name       string         `json:"name" gorm:"not null;size:200" validate:"required,max=200"`
	Attributes datatypes.JSON `json:"attributes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Item) TableName() string {
	return "items"
}

// AllModels lists every model that has to exist in the schema
func AllModels() []interface{} {
	return []interface{}{
		&Item{},
	}
}
