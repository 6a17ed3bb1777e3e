package agronomy

// TaskState is the lifecycle state of one cultivation task.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskCompleted TaskState = "completed"
	TaskCanceled  TaskState = "canceled"
)

// Priority grades how urgent a cultivation task is.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// CalendarTask is one dated task in a cultivation plan.
type CalendarTask struct {
	Task     string    `json:"task"`
	FromDate Date      `json:"from_date"`
	ToDate   Date      `json:"to_date"`
	State    TaskState `json:"state"`
	Priority Priority  `json:"priority"`
}

// CultivationCalendar is the full task schedule for one crop.
type CultivationCalendar struct {
	ID     string         `json:"id"`
	CropID string         `json:"crop_id"`
	Tasks  []CalendarTask `json:"tasks"`
}

// Investment is a single line item of anticipated cost, in rupees.
type Investment struct {
	Reason string  `json:"reason"`
	Amount float64 `json:"amount"`
}

// Profitability summarizes the financial forecast for a crop plan.
type Profitability struct {
	GrossIncome    float64 `json:"gross_income"`
	TotalCost      float64 `json:"total_cost"`
	NetProfit      float64 `json:"net_profit"`
	ROIPercentage  float64 `json:"roi_percentage"`
	BreakEvenYield string  `json:"break_even_yield"`
}

// InvestmentBreakdown is the itemized cost plan for one crop.
type InvestmentBreakdown struct {
	ID            string        `json:"id"`
	CropID        string        `json:"crop_id"`
	Investments   []Investment  `json:"investments"`
	Profitability Profitability `json:"profitability"`
}

// ImmediateAction is one concrete soil improvement step.
type ImmediateAction struct {
	Parameter      string `json:"parameter"`
	Recommendation string `json:"recommendation"`
	Product        string `json:"product"`
	Cost           string `json:"cost"`
}

// SoilHealth holds the soil improvement plan for a selected crop.
type SoilHealth struct {
	ID                   string            `json:"id"`
	CropID               string            `json:"crop_id"`
	ImmediateActions     []ImmediateAction `json:"immediate_actions"`
	Description          string            `json:"description"`
	LongTermImprovements []string          `json:"long_term_improvements"`
}

// Selection is the full detailing plan generated when a farmer picks one
// recommendation: one calendar and one investment breakdown per crop, plus
// a shared soil health plan.
type Selection struct {
	CultivationCalendar []CultivationCalendar `json:"cultivation_calendar"`
	InvestmentBreakdown []InvestmentBreakdown `json:"investment_breakdown"`
	SoilHealth          SoilHealth            `json:"soil_health_recommendations"`
}

// CropState tracks a cultivating crop through its season.
type CropState string

const (
	CropSelected  CropState = "selected"
	CropPlanted   CropState = "planted"
	CropGrowing   CropState = "growing"
	CropHarvested CropState = "harvested"
	CropComplete  CropState = "complete"
)

// CultivatingCrop is a crop the farmer committed to growing.
type CultivatingCrop struct {
	ID              string    `json:"id"`
	FarmID          string    `json:"farm_id"`
	Name            string    `json:"name"`
	Variety         string    `json:"variety"`
	ImageURL        string    `json:"image_url"`
	CropState       CropState `json:"crop_state"`
	Description     string    `json:"description"`
	IntercroppingID string    `json:"intercropping_id,omitempty"`
}

// IntercroppingDetails is the shared layout record saved once per selected
// intercropping system.
type IntercroppingDetails struct {
	ID                  string                `json:"id"`
	FarmID              string                `json:"farm_id"`
	IntercropType       string                `json:"intercrop_type"`
	NoOfCrops           int                   `json:"no_of_crops"`
	Arrangement         string                `json:"arrangement"`
	SpecificArrangement []SpecificArrangement `json:"specific_arrangement"`
	Benefits            []string              `json:"benefits"`
}
