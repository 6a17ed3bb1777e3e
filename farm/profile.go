// Package farm defines the farm profile entity and its nested records.
package farm

import (
	"strings"

	"github.com/google/uuid"
)

// WaterSource is the farm's primary water source.
type WaterSource string

const (
	WaterWell                WaterSource = "Well"
	WaterBorewell            WaterSource = "Borewell"
	WaterCanal               WaterSource = "Canal"
	WaterRiver               WaterSource = "River"
	WaterLake                WaterSource = "Lake"
	WaterRainwaterHarvesting WaterSource = "Rainwater Harvesting"
	WaterMunicipalSupply     WaterSource = "Municipal Supply"
	WaterOther               WaterSource = "Other"
)

// RainFedOnly reports whether the source implies no irrigation capacity.
func (w WaterSource) RainFedOnly() bool {
	return w == WaterRainwaterHarvesting
}

// IrrigationSystem is the irrigation method in use, if any.
type IrrigationSystem string

const (
	IrrigationDrip      IrrigationSystem = "Drip"
	IrrigationSprinkler IrrigationSystem = "Sprinkler"
	IrrigationFlood     IrrigationSystem = "Flood"
	IrrigationFurrow    IrrigationSystem = "Furrow"
	IrrigationOther     IrrigationSystem = "Other"
)

// SoilType is a broad soil classification.
type SoilType string

const (
	SoilBlack    SoilType = "Black soil"
	SoilRed      SoilType = "Red soil"
	SoilAlluvial SoilType = "Alluvial soil"
	SoilLaterite SoilType = "Laterite soil"
	SoilDesert   SoilType = "Desert soil"
	SoilForest   SoilType = "Forest soil"
	SoilSaline   SoilType = "Saline/Alkaline soil"
	SoilSandy    SoilType = "Sandy soil"
	SoilClay     SoilType = "Clay soil"
	SoilSilty    SoilType = "Silty soil"
	SoilLoamy    SoilType = "Loamy soil"
)

// Location is the farm's geographical location.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Village   string  `json:"village"`
	Mandal    string  `json:"mandal"`
	District  string  `json:"district"`
	State     string  `json:"state"`
	ZipCode   string  `json:"zip_code"`
}

// SoilTexturePercentage breaks the soil texture into sand/silt/clay shares.
type SoilTexturePercentage struct {
	Sand float64 `json:"sand"`
	Silt float64 `json:"silt"`
	Clay float64 `json:"clay"`
}

// SoilTestProperties holds the measured properties from a soil test.
type SoilTestProperties struct {
	SoilTexture                 SoilTexturePercentage `json:"soil_texture"`
	PHLevel                     float64               `json:"ph_level"`
	ElectricalConductivityDSM   float64               `json:"electrical_conductivity_ds_m"`
	OrganicCarbonPercent        float64               `json:"organic_carbon_percent"`
	NitrogenKgPerAcre           float64               `json:"nitrogen_kg_per_acre"`
	PhosphorusKgPerAcre         float64               `json:"phosphorus_kg_per_acre"`
	PotassiumKgPerAcre          float64               `json:"potassium_kg_per_acre"`
	SulphurPPM                  *float64              `json:"sulphur_ppm,omitempty"`
	ZincPPM                     *float64              `json:"zinc_ppm,omitempty"`
	BoronPPM                    *float64              `json:"boron_ppm,omitempty"`
	IronPPM                     *float64              `json:"iron_ppm,omitempty"`
}

// PreviousCrop records one crop grown on the farm in an earlier season.
type PreviousCrop struct {
	CropName        string   `json:"crop_name"`
	Year            int      `json:"year"`
	Season          string   `json:"season"`
	YieldPerAcre    string   `json:"yield_per_acre,omitempty"`
	FertilizersUsed []string `json:"fertilizers_used,omitempty"`
	PesticidesUsed  []string `json:"pesticides_used,omitempty"`
}

// Profile is the full farm profile collected during the survey conversation.
type Profile struct {
	ID                  string              `json:"id"`
	FarmerID            string              `json:"farmer_id"`
	Name                string              `json:"name"`
	Location            Location            `json:"location"`
	SoilType            SoilType            `json:"soil_type"`
	Crops               []PreviousCrop      `json:"crops,omitempty"`
	TotalAreaAcres      float64             `json:"total_area_acres"`
	CultivatedAreaAcres float64             `json:"cultivated_area_acres"`
	SoilTestProperties  *SoilTestProperties `json:"soil_test_properties,omitempty"`
	WaterSource         WaterSource         `json:"water_source"`
	IrrigationSystem    IrrigationSystem    `json:"irrigation_system,omitempty"`
}

// NewID returns a fresh hex profile id.
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
