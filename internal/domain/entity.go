package domain

import (
	"time"
)

// MarketInfo is the catalog row for a listed market
type MarketInfo struct {
	Market      string    `gorm:"primaryKey" json:"market"`
	KoreanName  string    `json:"korean_name"`
	EnglishName string    `json:"english_name"`
	Warning     bool      `json:"warning" gorm:"index"` // Exchange investment warning
	IsActive    bool      `json:"is_active" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AppConfig represents runtime state stored as key-value pairs
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
