package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a customer the organization sells advertising to
type Client struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string     `gorm:"type:varchar(255);not null;index" json:"name"`
	ContactPerson string     `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string     `gorm:"type:varchar(50);not null" json:"phone"`
	Email         string     `gorm:"type:varchar(255)" json:"email"`
	Address       string     `gorm:"type:text" json:"address"`
	CreatedBy     *uuid.UUID `gorm:"type:uuid;index" json:"created_by"`
	Creator       *User      `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL" json:"creator,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
