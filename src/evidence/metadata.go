package evidence

import (
	"strconv"
	"strings"

	"github.com/detrash/recy-pipeline/src/utils/model"
)

const (
	MetadataName        = "RECY Report"
	MetadataDescription = "Recycling and composting report"
)

// Audit decision as it appears on the certificate
type AuditStatus string

const (
	AuditVerified    AuditStatus = "Verified"
	AuditNotVerified AuditStatus = "Not Verified"
)

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Certificate document stored next to the rendered image.
// Image is empty until the image upload URL is known.
type Metadata struct {
	Attributes  []Attribute `json:"attributes"`
	Description string      `json:"description"`
	Name        string      `json:"name"`
	Image       string      `json:"image,omitempty"`
}

// BuildMetadata assembles the certificate document: three fixed leading
// attributes followed by one attribute per aggregated material category.
func BuildMetadata(email, walletAddress string, status AuditStatus, totals []model.Material) (metadata *Metadata) {
	attributes := []Attribute{
		{TraitType: "Originating email", Value: email},
		{TraitType: "Originating wallet", Value: walletAddress},
		{TraitType: "Audit", Value: string(status)},
	}

	for _, total := range totals {
		attributes = append(attributes, Attribute{
			TraitType: capitalize(string(total.Category)),
			Value:     FormatWeight(total.WeightKg) + " kg",
		})
	}

	return &Metadata{
		Attributes:  attributes,
		Description: MetadataDescription,
		Name:        MetadataName,
	}
}

// FormatWeight prints a weight without trailing zeros, 15.0 comes out as "15"
func FormatWeight(kg float64) string {
	return strconv.FormatFloat(kg, 'f', -1, 64)
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
