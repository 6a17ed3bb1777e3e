package agronomy

import (
	"sort"
)

// ComponentType tags which single payload field of a Component is set.
type ComponentType string

const (
	ComponentReasoning         ComponentType = "reasoning"
	ComponentMonoCrop          ComponentType = "mono_crop"
	ComponentInterCrop         ComponentType = "inter_crop"
	ComponentInterCropMonoCrop ComponentType = "inter_crop_mono_crop"
)

// Order layout: the reasoning fragment sorts first, primary mono crops take
// small integers, and each intercropping group reserves a block of 100 so
// its nested crops always sort immediately after it.
const (
	orderReasoning  = 0
	interCropBase   = 1000
	interCropStride = 100
)

// Component is one independently persistable fragment of a recommendation.
// Exactly one payload field is non-nil, matching Type.
type Component struct {
	ID               string        `json:"id"`
	RecommendationID string        `json:"recommendation_id"`
	FarmID           string        `json:"farm_id,omitempty"`
	GroupID          string        `json:"group_id,omitempty"`
	Type             ComponentType `json:"component_type"`
	Order            int           `json:"order"`

	Reasoning *ReasoningReport `json:"reasoning,omitempty"`
	MonoCrop  *MonoCrop        `json:"mono_crop,omitempty"`
	InterCrop *InterCrop       `json:"inter_crop,omitempty"`
}

// BuildComponents decomposes a recommendation and its reasoning report into
// ordered fragments. Group components carry the intercrop layout without its
// nested crops; nested crops reference their group through GroupID.
func BuildComponents(rec *Recommendation, reasoning *ReasoningReport) []Component {
	components := make([]Component, 0, 1+len(rec.MonoCrops))

	if reasoning != nil {
		components = append(components, Component{
			ID:               newID(),
			RecommendationID: rec.ID,
			FarmID:           rec.FarmID,
			Type:             ComponentReasoning,
			Order:            orderReasoning,
			Reasoning:        reasoning,
		})
	}

	for i := range rec.MonoCrops {
		crop := rec.MonoCrops[i]
		components = append(components, Component{
			ID:               newID(),
			RecommendationID: rec.ID,
			FarmID:           rec.FarmID,
			Type:             ComponentMonoCrop,
			Order:            i + 1,
			MonoCrop:         &crop,
		})
	}

	for g := range rec.InterCrops {
		group := rec.InterCrops[g]
		base := interCropBase + g*interCropStride

		header := group
		header.Crops = nil
		components = append(components, Component{
			ID:               newID(),
			RecommendationID: rec.ID,
			FarmID:           rec.FarmID,
			Type:             ComponentInterCrop,
			Order:            base,
			InterCrop:        &header,
		})

		for i := range group.Crops {
			crop := group.Crops[i]
			components = append(components, Component{
				ID:               newID(),
				RecommendationID: rec.ID,
				FarmID:           rec.FarmID,
				GroupID:          group.ID,
				Type:             ComponentInterCropMonoCrop,
				Order:            base + i + 1,
				MonoCrop:         &crop,
			})
		}
	}

	return components
}

// Compose reassembles a recommendation from persisted components, in any
// storage-returned order. Fields with no component of their type keep the
// template's value.
func Compose(template *Recommendation, components []Component) (*Recommendation, *ReasoningReport) {
	sorted := make([]Component, len(components))
	copy(sorted, components)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	out := *template
	var reasoning *ReasoningReport
	var monoCrops []MonoCrop
	var interCrops []InterCrop
	groupIndex := map[string]int{}

	for _, c := range sorted {
		switch c.Type {
		case ComponentReasoning:
			reasoning = c.Reasoning
		case ComponentMonoCrop:
			if c.MonoCrop != nil {
				monoCrops = append(monoCrops, *c.MonoCrop)
			}
		case ComponentInterCrop:
			if c.InterCrop != nil {
				group := *c.InterCrop
				groupIndex[group.ID] = len(interCrops)
				interCrops = append(interCrops, group)
			}
		case ComponentInterCropMonoCrop:
			if c.MonoCrop == nil {
				continue
			}
			idx, ok := groupIndex[c.GroupID]
			if !ok {
				continue
			}
			interCrops[idx].Crops = append(interCrops[idx].Crops, *c.MonoCrop)
		}
	}

	if monoCrops != nil {
		out.MonoCrops = monoCrops
	}
	if interCrops != nil {
		out.InterCrops = interCrops
	}
	return &out, reasoning
}
