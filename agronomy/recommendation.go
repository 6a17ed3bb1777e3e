// Package agronomy holds the crop recommendation and selection domain: the
// structured model response types, deterministic validation of model output,
// the bounded correction retry, component decomposition, and the two
// orchestrators that drive generation through the workflow runtime.
package agronomy

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecommendationValidityDays is how long a generated recommendation stays
// reusable before a fresh generation is allowed.
const RecommendationValidityDays = 7

// RecommendationStatus is the model's own verdict on the recommendation.
type RecommendationStatus string

const (
	RecommendationSuccess RecommendationStatus = "success"
	RecommendationFailure RecommendationStatus = "failure"
	RecommendationPending RecommendationStatus = "pending"
)

// SowingWindow is the recommended planting window for a crop.
type SowingWindow struct {
	StartDate   Date `json:"start_date"`
	EndDate     Date `json:"end_date"`
	OptimalDate Date `json:"optimal_date"`
}

// FinancialForecasting carries the model's free-text financial estimates.
type FinancialForecasting struct {
	TotalEstimatedInvestment string `json:"total_estimated_investment"`
	MarketPriceCurrent       string `json:"market_price_current"`
	PriceTrend               string `json:"price_trend"`
	TotalRevenueEstimate     string `json:"total_revenue_estimate"`
}

// RiskImpact grades the severity of a risk factor.
type RiskImpact string

const (
	RiskLow    RiskImpact = "low"
	RiskMedium RiskImpact = "medium"
	RiskHigh   RiskImpact = "high"
)

// RiskFactor is one identified risk with a mitigation tip.
type RiskFactor struct {
	Risk        string     `json:"risk"`
	Probability float64    `json:"probability"`
	Impact      RiskImpact `json:"impact"`
	Mitigation  string     `json:"mitigation"`
}

// MonoCrop is a single-crop recommendation, used standalone and nested
// inside intercropping groups.
type MonoCrop struct {
	ID                   string               `json:"id"`
	Rank                 *int                 `json:"rank,omitempty"`
	CropName             string               `json:"crop_name"`
	CropNameEnglish      string               `json:"crop_name_english"`
	Variety              string               `json:"variety"`
	ImageURL             string               `json:"image_url,omitempty"`
	SuitabilityScore     float64              `json:"suitability_score"`
	Confidence           float64              `json:"confidence"`
	ExpectedYieldPerAcre string               `json:"expected_yield_per_acre"`
	SowingWindow         SowingWindow         `json:"sowing_window"`
	GrowingPeriodDays    int                  `json:"growing_period_days"`
	FinancialForecasting FinancialForecasting `json:"financial_forecasting"`
	Reasons              []string             `json:"reasons"`
	RiskFactors          []RiskFactor         `json:"risk_factors"`
	Description          string               `json:"description"`
}

// EnglishName returns the English crop name, falling back to the localized
// name when the model omitted it.
func (m *MonoCrop) EnglishName() string {
	if s := strings.TrimSpace(m.CropNameEnglish); s != "" {
		return s
	}
	return strings.TrimSpace(m.CropName)
}

// SpecificArrangement describes the spacing of one crop within an
// intercropping system.
type SpecificArrangement struct {
	CropName    string `json:"crop_name"`
	Variety     string `json:"variety"`
	Arrangement string `json:"arrangement"`
}

// InterCrop is a complete intercropping recommendation: the system layout
// plus a detailed per-crop recommendation for each member.
type InterCrop struct {
	ID                  string                `json:"id"`
	Rank                int                   `json:"rank"`
	IntercropType       string                `json:"intercrop_type"`
	NoOfCrops           int                   `json:"no_of_crops"`
	Arrangement         string                `json:"arrangement"`
	SpecificArrangement []SpecificArrangement `json:"specific_arrangement"`
	Crops               []MonoCrop            `json:"crops"`
	Description         string                `json:"description"`
	Benefits            []string              `json:"benefits"`
}

// ReasoningReport is the auditable cross-verification report produced
// before the main generation call and fed into its prompt context.
type ReasoningReport struct {
	Summary      string   `json:"summary"`
	Observations []string `json:"observations"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Recommendation is the full crop recommendation for one farm.
type Recommendation struct {
	ID             string               `json:"id"`
	FarmID         string               `json:"farm_id,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
	ExpirationDate Date                 `json:"expiration_date"`
	Status         RecommendationStatus `json:"status"`
	MonoCrops      []MonoCrop           `json:"mono_crops"`
	InterCrops     []InterCrop          `json:"inter_crops"`
}

// Expired reports whether the recommendation's validity window has passed.
func (r *Recommendation) Expired(now time.Time) bool {
	return r.ExpirationDate.Before(DateOf(now))
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// AssignIDs gives the recommendation and every crop entry a backend id,
// replacing whatever the model produced.
func (r *Recommendation) AssignIDs() {
	if r.ID == "" {
		r.ID = newID()
	}
	for i := range r.MonoCrops {
		r.MonoCrops[i].ID = newID()
	}
	for g := range r.InterCrops {
		r.InterCrops[g].ID = newID()
		for i := range r.InterCrops[g].Crops {
			r.InterCrops[g].Crops[i].ID = newID()
		}
	}
}
