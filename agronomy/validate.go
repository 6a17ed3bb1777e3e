package agronomy

import (
	"fmt"
	"time"

	"github.com/agromitra/agromitra/farm"
)

// drySeasonMonths are the pre-monsoon months in which a rain-fed farm
// cannot support a fresh sowing.
var drySeasonMonths = map[time.Month]bool{
	time.February: true,
	time.March:    true,
	time.April:    true,
	time.May:      true,
}

// CollectRecommendationIssues deterministically checks model output against
// rules the model cannot be trusted to satisfy. It is pure: the returned
// strings are human-readable violations, one per broken rule, empty when the
// candidate is acceptable.
func CollectRecommendationIssues(rec *Recommendation, profile *farm.Profile, ref Date) []string {
	var issues []string

	rainFed := profile != nil && profile.WaterSource.RainFedOnly()

	check := func(label string, w SowingWindow) {
		issues = append(issues, sowingWindowIssues(label, w, ref, rainFed)...)
	}

	for i := range rec.MonoCrops {
		crop := &rec.MonoCrops[i]
		check(fmt.Sprintf("mono crop %q", crop.CropName), crop.SowingWindow)
	}
	for g := range rec.InterCrops {
		group := &rec.InterCrops[g]
		for i := range group.Crops {
			crop := &group.Crops[i]
			check(fmt.Sprintf("intercrop %q crop %q", group.IntercropType, crop.CropName), crop.SowingWindow)
		}
	}
	return issues
}

func sowingWindowIssues(label string, w SowingWindow, ref Date, rainFed bool) []string {
	var issues []string

	if w.StartDate.After(w.OptimalDate) {
		issues = append(issues, fmt.Sprintf("%s: sowing window start_date %s is after optimal_date %s", label, w.StartDate, w.OptimalDate))
	}
	if w.OptimalDate.After(w.EndDate) {
		issues = append(issues, fmt.Sprintf("%s: sowing window optimal_date %s is after end_date %s", label, w.OptimalDate, w.EndDate))
	}
	if w.StartDate.After(w.EndDate) {
		issues = append(issues, fmt.Sprintf("%s: sowing window start_date %s is after end_date %s", label, w.StartDate, w.EndDate))
	}
	if w.EndDate.Before(ref) {
		issues = append(issues, fmt.Sprintf("%s: sowing window ends %s, entirely before the reference date %s", label, w.EndDate, ref))
	}
	if rainFed && drySeasonMonths[w.StartDate.Month()] {
		issues = append(issues, fmt.Sprintf("%s: sowing window starts %s in the dry season, but the farm is rain-fed with no irrigation", label, w.StartDate))
	}
	return issues
}

// CollectSelectionIssues checks a generated cultivation plan: every task
// range must run forward and no task may end before the reference date.
func CollectSelectionIssues(sel *Selection, ref Date) []string {
	var issues []string
	for _, cal := range sel.CultivationCalendar {
		for _, task := range cal.Tasks {
			if task.FromDate.After(task.ToDate) {
				issues = append(issues, fmt.Sprintf("task %q: from_date %s is after to_date %s", task.Task, task.FromDate, task.ToDate))
			}
			if task.ToDate.Before(ref) {
				issues = append(issues, fmt.Sprintf("task %q: to_date %s is before the reference date %s", task.Task, task.ToDate, ref))
			}
		}
	}
	return issues
}
