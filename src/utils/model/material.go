package model

const (
	TableRecyclingReports = "recycling_reports"
	TableAudits           = "audits"
	TableUsers            = "users"
)

// Closed set of recyclable waste types
type MaterialCategory string

const (
	MaterialPlastic       MaterialCategory = "plastic"
	MaterialMetal         MaterialCategory = "metal"
	MaterialGlass         MaterialCategory = "glass"
	MaterialPaper         MaterialCategory = "paper"
	MaterialOrganic       MaterialCategory = "organic"
	MaterialTextile       MaterialCategory = "textile"
	MaterialLandfillWaste MaterialCategory = "landfill-waste"
)

// MaterialCategories returns the categories in their canonical order.
// Metadata attributes and rendered certificates list materials in this order.
func MaterialCategories() []MaterialCategory {
	return []MaterialCategory{
		MaterialPlastic,
		MaterialMetal,
		MaterialGlass,
		MaterialPaper,
		MaterialOrganic,
		MaterialTextile,
		MaterialLandfillWaste,
	}
}

func (self MaterialCategory) IsValid() bool {
	for _, category := range MaterialCategories() {
		if self == category {
			return true
		}
	}
	return false
}

// One line item of a submitted report
type Material struct {
	Category MaterialCategory `json:"materialType"`
	WeightKg float64          `json:"weightKg"`
}
