// cmd/menu-service/seed.go
package main

import (
	"context"
	"fmt"
	"time"

	"canteen-menu/internal/common/calendar"
	"canteen-menu/internal/models"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store a sample menu so the read endpoints have data",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().String("date", "", "day to seed as YYYY-MM-DD (default today)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	now := time.Now().In(a.location)
	date := calendar.StartOfDay(now)
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		if date, err = calendar.ParseDate(raw, a.location); err != nil {
			return err
		}
	}

	text, err := sampleMenu(date, now).Serialize()
	if err != nil {
		return err
	}
	if err := a.store.SaveMenu(ctx, date, text); err != nil {
		return fmt.Errorf("seed %s: %w", calendar.FormatDate(date), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Sample menu stored for %s (%d characters)\n", calendar.FormatDate(date), len(text))
	return nil
}

func sampleMenu(date, now time.Time) models.Menu {
	meal := func(name string, c models.MealCategory, employee float64) models.Meal {
		return models.Meal{Name: name, Category: c, Prices: map[string]float64{"employee": employee}}
	}
	return models.Menu{
		Date: date,
		Meals: []models.Meal{
			meal("Tomato soup with basil", models.MealCategorySoup, 2.50),
			meal("Grilled salmon with roasted vegetables", models.MealCategoryMain, 6.90),
			meal("Vegetable pasta", models.MealCategoryMain, 5.20),
			meal("Chicken curry with basmati rice", models.MealCategorySpecial, 6.40),
			meal("Garden salad", models.MealCategorySide, 1.80),
			meal("Tiramisu", models.MealCategoryDessert, 2.20),
		},
		Metadata: models.MenuMetadata{
			Source:     "seed",
			FetchedAt:  now,
			ValidUntil: date.Add(24 * time.Hour),
		},
	}
}
