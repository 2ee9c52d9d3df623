// Package model defines the core domain models used throughout the application.
package model

// Category is the deductibility category assigned to an expense.
type Category string

// Deductibility categories.
const (
	CategoryFull    Category = "full"
	CategoryVehicle Category = "vehicle"
	CategoryMeals   Category = "meals"
	CategoryTelecom Category = "telecom"
	CategoryGifts   Category = "gifts"
	CategoryPartial Category = "partial"
	CategoryNone    Category = "none"
	CategoryUnclear Category = "unclear"
)

// AllCategories returns every valid category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryFull,
		CategoryVehicle,
		CategoryMeals,
		CategoryTelecom,
		CategoryGifts,
		CategoryPartial,
		CategoryNone,
		CategoryUnclear,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFull, CategoryVehicle, CategoryMeals, CategoryTelecom,
		CategoryGifts, CategoryPartial, CategoryNone, CategoryUnclear:
		return true
	}
	return false
}

// ParseCategory maps an upstream category string to a Category,
// falling back to CategoryUnclear for anything unknown. Upstream
// values are untrusted; an unrecognized category must never abort
// the pipeline.
func ParseCategory(s string) Category {
	c := Category(s)
	if c.Valid() {
		return c
	}
	return CategoryUnclear
}
