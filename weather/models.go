package weather

// Condition describes a weather condition such as "Clouds" or "Rain".
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Metrics holds the core readings like temperature and humidity.
type Metrics struct {
	Temp        float64 `json:"temp"`
	FeelsLike   float64 `json:"feels_like"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Pressure    int     `json:"pressure"`
	Humidity    int     `json:"humidity"`
	SeaLevel    *int    `json:"sea_level,omitempty"`
	GroundLevel *int    `json:"grnd_level,omitempty"`
}

// Wind is wind speed and direction.
type Wind struct {
	Speed float64  `json:"speed"`
	Deg   int      `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

// Clouds is cloudiness percentage.
type Clouds struct {
	All int `json:"all"`
}

// Precipitation is rain or snow volume over the trailing window.
type Precipitation struct {
	OneHour    *float64 `json:"1h,omitempty"`
	ThreeHours *float64 `json:"3h,omitempty"`
}

// Sys carries system data such as sunrise and sunset times.
type Sys struct {
	Type    *int   `json:"type,omitempty"`
	ID      *int   `json:"id,omitempty"`
	Country string `json:"country,omitempty"`
	Sunrise int64  `json:"sunrise,omitempty"`
	Sunset  int64  `json:"sunset,omitempty"`
}

// Current is the complete current-weather response.
type Current struct {
	Weather    []Condition    `json:"weather"`
	Main       Metrics        `json:"main"`
	Visibility int            `json:"visibility"`
	Wind       Wind           `json:"wind"`
	Clouds     Clouds         `json:"clouds"`
	Rain       *Precipitation `json:"rain,omitempty"`
	Snow       *Precipitation `json:"snow,omitempty"`
	DT         int64          `json:"dt"`
	Sys        Sys            `json:"sys"`
	Timezone   int            `json:"timezone"`
	ID         int            `json:"id"`
	Name       string         `json:"name"`
}

// ForecastEntry is a single forecast slot at a 3-hour interval. POP is
// the probability of precipitation, 0 to 1.
type ForecastEntry struct {
	DT         int64          `json:"dt"`
	Main       Metrics        `json:"main"`
	Weather    []Condition    `json:"weather"`
	Clouds     Clouds         `json:"clouds"`
	Wind       Wind           `json:"wind"`
	Visibility int            `json:"visibility"`
	POP        float64        `json:"pop"`
	Rain       *Precipitation `json:"rain,omitempty"`
	Snow       *Precipitation `json:"snow,omitempty"`
	DTTxt      string         `json:"dt_txt"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// City identifies the forecast location.
type City struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Coord      Coordinates `json:"coord"`
	Country    string      `json:"country"`
	Population int         `json:"population"`
	Timezone   int         `json:"timezone"`
	Sunrise    int64       `json:"sunrise"`
	Sunset     int64       `json:"sunset"`
}

// Forecast is the complete 5-day/3-hour forecast response.
type Forecast struct {
	List []ForecastEntry `json:"list"`
	City City            `json:"city"`
}

// AirQuality is the air quality index, 1 (good) to 5 (very poor).
type AirQuality struct {
	AQI int `json:"aqi"`
}

// Pollutants holds pollutant concentrations in micrograms per cubic meter.
type Pollutants struct {
	CO   float64 `json:"co"`
	NO   float64 `json:"no"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	NH3  float64 `json:"nh3"`
}

// AirPollutionEntry is a single air pollution reading.
type AirPollutionEntry struct {
	DT         int64      `json:"dt"`
	Main       AirQuality `json:"main"`
	Components Pollutants `json:"components"`
}

// AirPollution is the complete air pollution response.
type AirPollution struct {
	List []AirPollutionEntry `json:"list"`
}

// Place is one reverse-geocoding match.
type Place struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
}

// MapLayer is a tile URL template for one weather map layer. Replace
// {z}, {x} and {y} with tile coordinates.
type MapLayer struct {
	Layer string `json:"layer"`
	URL   string `json:"url"`
}

// MapLayers collects tile URL templates for the supported layers.
type MapLayers struct {
	Precipitation MapLayer `json:"precipitation"`
	Clouds        MapLayer `json:"clouds"`
	Pressure      MapLayer `json:"pressure"`
	Temperature   MapLayer `json:"temperature"`
	Wind          MapLayer `json:"wind"`
}
