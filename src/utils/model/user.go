package model

import (
	"time"
)

type User struct {
	ID            string `gorm:"primaryKey"`
	Email         string `gorm:"uniqueIndex;not null"`
	Name          string
	WalletAddress string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return TableUsers
}
