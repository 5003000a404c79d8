package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMealCategory_Valid(t *testing.T) {
	assert.True(t, MealCategoryMain.Valid())
	assert.True(t, MealCategorySpecial.Valid())
	assert.False(t, MealCategory("STARTER").Valid())
}

func TestMenu_WithProvenance(t *testing.T) {
	date := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	orig := Menu{
		Date:  date,
		Meals: []Meal{{Name: "Goulash", Category: MealCategoryMain}},
		Metadata: MenuMetadata{
			Source:     "adapter",
			FetchedAt:  date,
			ValidUntil: date.Add(24 * time.Hour),
		},
	}
	at := date.Add(6 * time.Hour)

	got := orig.WithProvenance("confluence", at)

	assert.Equal(t, "confluence", got.Metadata.Source)
	assert.Equal(t, at, got.Metadata.FetchedAt)
	assert.Equal(t, orig.Metadata.ValidUntil, got.Metadata.ValidUntil)
	assert.Equal(t, "adapter", orig.Metadata.Source, "original must stay untouched")

	got.Meals[0].Name = "Changed"
	assert.Equal(t, "Goulash", orig.Meals[0].Name)
}

func TestMenu_SerializeRoundTrip(t *testing.T) {
	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	m := Menu{
		Date: date,
		Meals: []Meal{{
			Name:      "Tomato Soup",
			Category:  MealCategorySoup,
			Prices:    map[string]float64{"employee": 3.2, "guest": 5.5},
			Allergens: []string{"celery"},
		}},
		Metadata: MenuMetadata{Source: "mock", FetchedAt: date, ValidUntil: date.Add(24 * time.Hour)},
	}

	text, err := m.Serialize()
	require.NoError(t, err)
	assert.Contains(t, text, `"category":"SOUP"`)
	assert.Contains(t, text, `"validUntil"`)

	back, err := ParseMenu(text)
	require.NoError(t, err)
	assert.True(t, back.Date.Equal(date))
	assert.Equal(t, m.Meals, back.Meals)
}

func TestMenu_SerializeEmptyMeals(t *testing.T) {
	text, err := Menu{Date: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)}.Serialize()
	require.NoError(t, err)
	assert.Contains(t, text, `"meals":[]`)
}
