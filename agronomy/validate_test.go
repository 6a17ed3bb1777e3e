package agronomy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromitra/agromitra/farm"
)

func validWindow(ref Date) SowingWindow {
	return SowingWindow{
		StartDate:   ref.AddDays(5),
		OptimalDate: ref.AddDays(15),
		EndDate:     ref.AddDays(30),
	}
}

func monoWithWindow(name string, w SowingWindow) MonoCrop {
	return MonoCrop{CropName: name, CropNameEnglish: name, SowingWindow: w}
}

func TestCollectRecommendationIssuesValidCandidate(t *testing.T) {
	ref := NewDate(2024, time.July, 1)
	rec := &Recommendation{
		MonoCrops: []MonoCrop{monoWithWindow("Paddy", validWindow(ref))},
		InterCrops: []InterCrop{{
			IntercropType: "row",
			Crops: []MonoCrop{
				monoWithWindow("Red Gram", validWindow(ref)),
				monoWithWindow("Groundnut", validWindow(ref)),
			},
		}},
	}

	issues := CollectRecommendationIssues(rec, &farm.Profile{WaterSource: farm.WaterBorewell}, ref)
	assert.Empty(t, issues)
}

func TestCollectRecommendationIssuesStartAfterEnd(t *testing.T) {
	ref := NewDate(2024, time.January, 1)
	rec := &Recommendation{
		MonoCrops: []MonoCrop{monoWithWindow("Maize", SowingWindow{
			StartDate:   NewDate(2024, time.January, 10),
			OptimalDate: NewDate(2024, time.January, 10),
			EndDate:     NewDate(2024, time.January, 5),
		})},
	}

	issues := CollectRecommendationIssues(rec, nil, ref)
	require.NotEmpty(t, issues)
	joined := ""
	for _, issue := range issues {
		joined += issue + "\n"
	}
	assert.Contains(t, joined, "2024-01-10")
	assert.Contains(t, joined, "2024-01-05")
	assert.Contains(t, joined, "after end_date")
}

func TestCollectRecommendationIssuesWindowEntirelyInPast(t *testing.T) {
	ref := NewDate(2024, time.August, 1)
	rec := &Recommendation{
		MonoCrops: []MonoCrop{monoWithWindow("Cotton", SowingWindow{
			StartDate:   NewDate(2024, time.June, 1),
			OptimalDate: NewDate(2024, time.June, 15),
			EndDate:     NewDate(2024, time.July, 1),
		})},
	}

	issues := CollectRecommendationIssues(rec, nil, ref)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "entirely before the reference date")
}

func TestCollectRecommendationIssuesRainFedDrySeason(t *testing.T) {
	ref := NewDate(2024, time.February, 1)
	window := SowingWindow{
		StartDate:   NewDate(2024, time.March, 1),
		OptimalDate: NewDate(2024, time.March, 15),
		EndDate:     NewDate(2024, time.April, 10),
	}
	rec := &Recommendation{MonoCrops: []MonoCrop{monoWithWindow("Jowar", window)}}

	// An irrigated farm can sow in the dry season.
	irrigated := &farm.Profile{WaterSource: farm.WaterBorewell}
	assert.Empty(t, CollectRecommendationIssues(rec, irrigated, ref))

	rainFed := &farm.Profile{WaterSource: farm.WaterRainwaterHarvesting}
	issues := CollectRecommendationIssues(rec, rainFed, ref)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "dry season")
	assert.Contains(t, issues[0], "rain-fed")
}

func TestCollectRecommendationIssuesChecksNestedIntercrops(t *testing.T) {
	ref := NewDate(2024, time.July, 1)
	rec := &Recommendation{
		InterCrops: []InterCrop{{
			IntercropType: "strip",
			Crops: []MonoCrop{
				monoWithWindow("Castor", validWindow(ref)),
				monoWithWindow("Green Gram", SowingWindow{
					StartDate:   ref.AddDays(20),
					OptimalDate: ref.AddDays(10),
					EndDate:     ref.AddDays(30),
				}),
			},
		}},
	}

	issues := CollectRecommendationIssues(rec, nil, ref)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "Green Gram")
	assert.Contains(t, issues[0], "after optimal_date")
}

func TestCollectSelectionIssues(t *testing.T) {
	ref := NewDate(2024, time.July, 1)
	sel := &Selection{
		CultivationCalendar: []CultivationCalendar{{
			Tasks: []CalendarTask{
				{Task: "Land preparation", FromDate: ref.AddDays(1), ToDate: ref.AddDays(7)},
				{Task: "Sowing", FromDate: ref.AddDays(10), ToDate: ref.AddDays(8)},
				{Task: "Weeding", FromDate: NewDate(2024, time.May, 1), ToDate: NewDate(2024, time.May, 10)},
			},
		}},
	}

	issues := CollectSelectionIssues(sel, ref)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "Sowing")
	assert.Contains(t, issues[0], "after to_date")
	assert.Contains(t, issues[1], "Weeding")
	assert.Contains(t, issues[1], "before the reference date")

	sel.CultivationCalendar[0].Tasks = sel.CultivationCalendar[0].Tasks[:1]
	assert.Empty(t, CollectSelectionIssues(sel, ref))
}
