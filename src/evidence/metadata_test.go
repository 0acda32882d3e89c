package evidence

import (
	"testing"

	"github.com/detrash/recy-pipeline/src/utils/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMetadata(t *testing.T) {
	metadata := BuildMetadata("user@example.com", "0xABC", AuditVerified, []model.Material{
		{Category: model.MaterialPlastic, WeightKg: 15.0},
		{Category: model.MaterialMetal, WeightKg: 7.3},
	})

	assert.Equal(t, "RECY Report", metadata.Name)
	assert.Equal(t, "Recycling and composting report", metadata.Description)
	assert.Empty(t, metadata.Image)

	require.Len(t, metadata.Attributes, 5)
	assert.Equal(t, Attribute{TraitType: "Originating email", Value: "user@example.com"}, metadata.Attributes[0])
	assert.Equal(t, Attribute{TraitType: "Originating wallet", Value: "0xABC"}, metadata.Attributes[1])
	assert.Equal(t, Attribute{TraitType: "Audit", Value: "Verified"}, metadata.Attributes[2])
	assert.Equal(t, Attribute{TraitType: "Plastic", Value: "15 kg"}, metadata.Attributes[3])
	assert.Equal(t, Attribute{TraitType: "Metal", Value: "7.3 kg"}, metadata.Attributes[4])
}

func TestBuildMetadataWithoutWallet(t *testing.T) {
	metadata := BuildMetadata("user@example.com", "", AuditNotVerified, nil)

	require.Len(t, metadata.Attributes, 3)
	assert.Equal(t, Attribute{TraitType: "Originating wallet", Value: ""}, metadata.Attributes[1])
	assert.Equal(t, Attribute{TraitType: "Audit", Value: "Not Verified"}, metadata.Attributes[2])
}

func TestBuildMetadataCapitalizesCategories(t *testing.T) {
	metadata := BuildMetadata("user@example.com", "", AuditVerified, []model.Material{
		{Category: model.MaterialLandfillWaste, WeightKg: 2},
	})

	assert.Equal(t, "Landfill-waste", metadata.Attributes[3].TraitType)
}

func TestFormatWeight(t *testing.T) {
	assert.Equal(t, "15", FormatWeight(15.0))
	assert.Equal(t, "7.3", FormatWeight(7.3))
	assert.Equal(t, "0.67", FormatWeight(0.67))
	assert.Equal(t, "0", FormatWeight(0))
}
