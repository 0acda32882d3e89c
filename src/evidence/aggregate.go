package evidence

import (
	"math"

	"github.com/detrash/recy-pipeline/src/utils/model"
)

// AggregateMaterials sums submitted line items per category.
// Categories come out in their canonical order, each total rounded once
// to two decimal places after summing.
func AggregateMaterials(materials []model.Material) (totals []model.Material) {
	sums := make(map[model.MaterialCategory]float64)
	for _, material := range materials {
		sums[material.Category] += material.WeightKg
	}

	for _, category := range model.MaterialCategories() {
		sum, ok := sums[category]
		if !ok {
			continue
		}
		totals = append(totals, model.Material{
			Category: category,
			WeightKg: math.Round(sum*100) / 100,
		})
	}
	return
}
