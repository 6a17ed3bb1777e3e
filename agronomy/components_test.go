package agronomy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecommendation() *Recommendation {
	rec := &Recommendation{
		Status: RecommendationSuccess,
		MonoCrops: []MonoCrop{
			{CropName: "Paddy", Variety: "MTU-1010"},
			{CropName: "Cotton", Variety: "Bt"},
			{CropName: "Maize", Variety: "DHM-117"},
		},
		InterCrops: []InterCrop{
			{
				IntercropType: "row",
				NoOfCrops:     2,
				Crops: []MonoCrop{
					{CropName: "Red Gram"},
					{CropName: "Groundnut"},
				},
			},
			{
				IntercropType: "strip",
				NoOfCrops:     2,
				Crops: []MonoCrop{
					{CropName: "Castor"},
					{CropName: "Green Gram"},
				},
			},
		},
	}
	rec.AssignIDs()
	return rec
}

func TestBuildComponentsOrdering(t *testing.T) {
	rec := sampleRecommendation()
	reasoning := &ReasoningReport{Summary: "soil suits pulses"}

	components := BuildComponents(rec, reasoning)

	// 1 reasoning + 3 mono + 2 groups of (1 header + 2 crops).
	require.Len(t, components, 10)

	assert.Equal(t, ComponentReasoning, components[0].Type)
	assert.Equal(t, 0, components[0].Order)

	// Orders are unique and strictly increasing in build order.
	for i := 1; i < len(components); i++ {
		assert.Greater(t, components[i].Order, components[i-1].Order,
			"component %d (%s) must sort after its predecessor", i, components[i].Type)
	}

	// Mono crops take small integers starting at 1.
	assert.Equal(t, 1, components[1].Order)
	assert.Equal(t, 2, components[2].Order)
	assert.Equal(t, 3, components[3].Order)

	// Each group reserves a block of 100 starting at 1000, nested crops
	// immediately after their header.
	assert.Equal(t, ComponentInterCrop, components[4].Type)
	assert.Equal(t, 1000, components[4].Order)
	assert.Equal(t, ComponentInterCropMonoCrop, components[5].Type)
	assert.Equal(t, 1001, components[5].Order)
	assert.Equal(t, 1002, components[6].Order)
	assert.Equal(t, 1100, components[7].Order)
	assert.Equal(t, 1101, components[8].Order)
	assert.Equal(t, 1102, components[9].Order)

	// Group headers carry the layout without the nested crops; nested
	// crops point back at their group.
	require.NotNil(t, components[4].InterCrop)
	assert.Nil(t, components[4].InterCrop.Crops)
	assert.Equal(t, rec.InterCrops[0].ID, components[5].GroupID)
}

func TestBuildComponentsSinglePayloadField(t *testing.T) {
	rec := sampleRecommendation()
	components := BuildComponents(rec, &ReasoningReport{Summary: "ok"})

	for _, c := range components {
		populated := 0
		if c.Reasoning != nil {
			populated++
		}
		if c.MonoCrop != nil {
			populated++
		}
		if c.InterCrop != nil {
			populated++
		}
		assert.Equal(t, 1, populated, "component %s/%d must carry exactly one payload", c.Type, c.Order)
		assert.Equal(t, rec.ID, c.RecommendationID)
		assert.NotEmpty(t, c.ID)
	}
}

func TestComposeRoundTrip(t *testing.T) {
	rec := sampleRecommendation()
	reasoning := &ReasoningReport{Summary: "alluvial soil", Observations: []string{"monsoon onset near"}}

	components := BuildComponents(rec, reasoning)

	// Storage may return components in any order.
	rand.New(rand.NewSource(42)).Shuffle(len(components), func(i, j int) {
		components[i], components[j] = components[j], components[i]
	})

	template := &Recommendation{ID: rec.ID, FarmID: rec.FarmID, Status: rec.Status}
	composed, composedReasoning := Compose(template, components)

	assert.Equal(t, rec.MonoCrops, composed.MonoCrops)
	assert.Equal(t, rec.InterCrops, composed.InterCrops)
	assert.Equal(t, reasoning, composedReasoning)
}

func TestComposeFallsBackToTemplate(t *testing.T) {
	template := sampleRecommendation()

	composed, reasoning := Compose(template, nil)

	assert.Nil(t, reasoning)
	assert.Equal(t, template.MonoCrops, composed.MonoCrops)
	assert.Equal(t, template.InterCrops, composed.InterCrops)
}
