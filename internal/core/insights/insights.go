package insights

// SpikeProfile summarizes abnormal consumption bursts in the history.
type SpikeProfile struct {
	SpikeRatePercent    float64 `json:"spike_rate_percent"`
	AvgSpikeKW          float64 `json:"avg_spike_kw"`
	MaxSpikeKW          float64 `json:"max_spike_kw"`
	SpikePeakHours      []int   `json:"spike_peak_hours"`
	WeekendSpikePercent float64 `json:"weekend_spike_percent"`
}

// WeatherContext summarizes the climate backdrop of the usage history.
// Omitted entirely when no weather series was available.
type WeatherContext struct {
	AvgTempC             float64 `json:"avg_temp_c"`
	ThermalCondition     string  `json:"thermal_condition"`
	HumidityLevel        string  `json:"humidity_level"`
	WindCoolingEffect    string  `json:"wind_cooling_effect"`
	HeatStressIndex      float64 `json:"heat_stress_index"`
	TempUsageCorrelation float64 `json:"temp_kwh_correlation"`
	WeatherDriver        string  `json:"weather_driver"`
}

// Insights is the consumption behaviour payload computed once from history
// and read-only downstream.
type Insights struct {
	PeakHours              []int           `json:"peak_hours"`
	PeakMonths             []string        `json:"peak_months,omitempty"`
	WeekendBehavior        string          `json:"weekend_behavior"`
	WeekendIncreasePercent float64         `json:"weekend_increase_percent"`
	SpikeProfile           SpikeProfile    `json:"spike_profile"`
	WeatherContext         *WeatherContext `json:"weather_context,omitempty"`
	WeatherDriver          string          `json:"weather_driver"`
}
