package models

// CategoryKind represents the kind of category
type CategoryKind string

const (
	CategoryKindIncome  CategoryKind = "income"
	CategoryKindExpense CategoryKind = "expense"
)

// Category represents a transaction category. Name is unique per owner and kind.
type Category struct {
	Base
	UserID   string       `gorm:"type:uuid;not null;uniqueIndex:uq_categories_user_name_kind" json:"user_id"`
	Name     string       `gorm:"not null;uniqueIndex:uq_categories_user_name_kind" json:"name"`
	Kind     CategoryKind `gorm:"not null;uniqueIndex:uq_categories_user_name_kind" json:"kind"`
	Color    string       `json:"color"`
	Icon     string       `json:"icon"`
	Archived bool         `gorm:"not null;default:false" json:"archived"`
}
