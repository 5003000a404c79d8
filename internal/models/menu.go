// internal/models/menu.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type MealCategory string

const (
	MealCategoryMain    MealCategory = "MAIN"
	MealCategorySide    MealCategory = "SIDE"
	MealCategoryDessert MealCategory = "DESSERT"
	MealCategorySoup    MealCategory = "SOUP"
	MealCategorySpecial MealCategory = "SPECIAL"
)

func (c MealCategory) Valid() bool {
	switch c {
	case MealCategoryMain, MealCategorySide, MealCategoryDessert, MealCategorySoup, MealCategorySpecial:
		return true
	}
	return false
}

// Meal is one dish. It has no identity outside its Menu.
type Meal struct {
	Name      string             `json:"name"`
	Category  MealCategory       `json:"category"`
	Prices    map[string]float64 `json:"prices,omitempty"`    // by audience, e.g. "employee", "guest"
	Allergens []string           `json:"allergens,omitempty"` // allergen and additive tags
}

type MenuMetadata struct {
	Source     string    `json:"source"`
	FetchedAt  time.Time `json:"fetchedAt"`
	ValidUntil time.Time `json:"validUntil"`
}

// Menu is one calendar day's offering. Date is truncated to midnight and is
// the natural key of the stored record.
type Menu struct {
	Date     time.Time    `json:"date"`
	Meals    []Meal       `json:"meals"`
	Metadata MenuMetadata `json:"metadata"`
}

// WithProvenance returns a copy of m whose source and fetch time are replaced.
func (m Menu) WithProvenance(source string, fetchedAt time.Time) Menu {
	out := m
	out.Meals = append([]Meal(nil), m.Meals...)
	if out.Meals == nil {
		out.Meals = []Meal{}
	}
	out.Metadata.Source = source
	out.Metadata.FetchedAt = fetchedAt
	return out
}

// Serialize renders the menu as the opaque text kept by the store.
func (m Menu) Serialize() (string, error) {
	if m.Meals == nil {
		m.Meals = []Meal{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("serialize menu for %s: %w", m.Date.Format("2006-01-02"), err)
	}
	return string(b), nil
}

// ParseMenu decodes text produced by Serialize.
func ParseMenu(text string) (Menu, error) {
	var m Menu
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return Menu{}, fmt.Errorf("parse menu: %w", err)
	}
	return m, nil
}
