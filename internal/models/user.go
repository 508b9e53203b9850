package models

// User is the owner of every other entity. Its ID is the canonical owner id
// produced by the authentication middleware.
type User struct {
	Base
	Email          string `gorm:"uniqueIndex;not null" json:"email"`
	Password       string `gorm:"not null" json:"-"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PeriodStartDay int    `gorm:"not null;default:1" json:"period_start_day"`
	IsActive       bool   `gorm:"default:true" json:"is_active"`
}
