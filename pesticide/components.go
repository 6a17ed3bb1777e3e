package pesticide

import "sort"

// ComponentType tags which payload field of a Component is set.
type ComponentType string

const (
	ComponentDiagnostic         ComponentType = "diagnostic"
	ComponentRecommendationItem ComponentType = "recommendation_item"
)

// Diagnostic is the disease summary fragment that sorts first.
type Diagnostic struct {
	DiseaseDetails string `json:"disease_details"`
	GeneralAdvice  string `json:"general_advice"`
}

// Component is one independently persistable fragment of a pesticide
// recommendation. Exactly one payload field is non-nil, matching Type.
type Component struct {
	ID               string        `json:"id"`
	RecommendationID string        `json:"recommendation_id"`
	FarmID           string        `json:"farm_id,omitempty"`
	CropID           string        `json:"crop_id,omitempty"`
	Type             ComponentType `json:"component_type"`
	Order            int           `json:"order"`

	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
	Item       *Info       `json:"item,omitempty"`
}

// BuildComponents decomposes a recommendation: the diagnostic summary at
// order 0, then one component per pesticide item in source order.
func BuildComponents(rec *Recommendation) []Component {
	components := make([]Component, 0, 1+len(rec.Recommendations))

	components = append(components, Component{
		ID:               newID(),
		RecommendationID: rec.ID,
		FarmID:           rec.FarmID,
		CropID:           rec.CropID,
		Type:             ComponentDiagnostic,
		Order:            0,
		Diagnostic: &Diagnostic{
			DiseaseDetails: rec.DiseaseDetails,
			GeneralAdvice:  rec.GeneralAdvice,
		},
	})

	for i := range rec.Recommendations {
		item := rec.Recommendations[i]
		components = append(components, Component{
			ID:               newID(),
			RecommendationID: rec.ID,
			FarmID:           rec.FarmID,
			CropID:           rec.CropID,
			Type:             ComponentRecommendationItem,
			Order:            i + 1,
			Item:             &item,
		})
	}

	return components
}

// Compose reassembles a recommendation from persisted components, in any
// storage-returned order. Fields with no component keep the template's
// value.
func Compose(template *Recommendation, components []Component) *Recommendation {
	sorted := make([]Component, len(components))
	copy(sorted, components)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	out := *template
	var items []Info

	for _, c := range sorted {
		switch c.Type {
		case ComponentDiagnostic:
			if c.Diagnostic != nil {
				out.DiseaseDetails = c.Diagnostic.DiseaseDetails
				out.GeneralAdvice = c.Diagnostic.GeneralAdvice
			}
		case ComponentRecommendationItem:
			if c.Item != nil {
				items = append(items, *c.Item)
			}
		}
	}

	if items != nil {
		out.Recommendations = items
	}
	return &out
}
