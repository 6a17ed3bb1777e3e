package pesticide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecommendation() *Recommendation {
	rec := &Recommendation{
		DiseaseDetails: "Early blight on tomato leaves",
		GeneralAdvice:  "Remove affected leaves, avoid overhead watering",
		Recommendations: []Info{
			{PesticideName: "Mancozeb", PesticideType: TypeChemical, Rank: 1},
			{PesticideName: "Neem oil", PesticideType: TypeOrganic, Rank: 2},
			{PesticideName: "Trichoderma", PesticideType: TypeBiological, Rank: 3},
		},
	}
	rec.AssignIDs()
	return rec
}

func TestBuildComponentsOrdering(t *testing.T) {
	rec := sampleRecommendation()
	components := BuildComponents(rec)

	require.Len(t, components, 4)
	assert.Equal(t, ComponentDiagnostic, components[0].Type)
	assert.Equal(t, 0, components[0].Order)

	for i := 1; i < len(components); i++ {
		assert.Equal(t, ComponentRecommendationItem, components[i].Type)
		assert.Equal(t, i, components[i].Order)
	}

	for _, c := range components {
		populated := 0
		if c.Diagnostic != nil {
			populated++
		}
		if c.Item != nil {
			populated++
		}
		assert.Equal(t, 1, populated, "component %s/%d must carry exactly one payload", c.Type, c.Order)
		assert.Equal(t, rec.ID, c.RecommendationID)
	}
}

func TestComposeRoundTrip(t *testing.T) {
	rec := sampleRecommendation()
	components := BuildComponents(rec)

	// Storage order is not guaranteed.
	components[0], components[2] = components[2], components[0]
	components[1], components[3] = components[3], components[1]

	template := &Recommendation{ID: rec.ID, FarmID: rec.FarmID, CropID: rec.CropID, Timestamp: rec.Timestamp}
	composed := Compose(template, components)

	assert.Equal(t, rec.DiseaseDetails, composed.DiseaseDetails)
	assert.Equal(t, rec.GeneralAdvice, composed.GeneralAdvice)
	assert.Equal(t, rec.Recommendations, composed.Recommendations)
}

func TestComposeFallsBackToTemplate(t *testing.T) {
	template := sampleRecommendation()
	composed := Compose(template, nil)
	assert.Equal(t, template, composed)
}
