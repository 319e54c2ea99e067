package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// Permission is a single granular grant held by a user.
type Permission struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null"`
	Name      enums.Permission `gorm:"column:name;not null"`
	GrantedBy *uuid.UUID       `gorm:"column:granted_by;type:uuid"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (p *Permission) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
