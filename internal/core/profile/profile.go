package profile

import "strings"

// Answers holds the six fixed questionnaire keys collected by the frontend.
// Values are assumed pre-validated by the API layer.
type Answers struct {
	Q1  string `json:"q1"`             // household size: 1-2, 3-4, 5+
	Q2  string `json:"q2"`             // daytime occupancy
	Q3  string `json:"q3"`             // HVAC usage: Yes / No
	Q31 string `json:"q3_1,omitempty"` // thermal comfort setpoint, only when Q3 == Yes
	Q4  string `json:"q4"`             // water heating source
	Q5  string `json:"q5"`             // heavy appliance count: 0-1, 2-3, 4+
}

// Profile is the normalized behaviour profile derived from the
// questionnaire. Produced once per analysis and never mutated.
type Profile struct {
	OccupancyDensity       string  `json:"occupancy_density"`
	DaytimeLoadProbability float64 `json:"daytime_load_probability"`
	HVACUsage              string  `json:"hvac_usage"`
	ThermalComfortSetpoint string  `json:"thermal_comfort_setpoint,omitempty"`
	WaterHeatingSource     string  `json:"water_heating_source"`
	ApplianceLoadTier      string  `json:"appliance_load_tier"`
}

// FromAnswers maps raw questionnaire answers onto the behaviour profile.
func FromAnswers(a Answers) Profile {
	p := Profile{
		OccupancyDensity:       "low",
		DaytimeLoadProbability: 0.2,
		HVACUsage:              "none",
		WaterHeatingSource:     "none",
		ApplianceLoadTier:      "low",
	}

	switch a.Q1 {
	case "1-2":
		p.OccupancyDensity = "low"
	case "3-4":
		p.OccupancyDensity = "medium"
	case "5+":
		p.OccupancyDensity = "high"
	}

	switch a.Q2 {
	case "Mostly empty":
		p.DaytimeLoadProbability = 0.1
	case "Partially occupied":
		p.DaytimeLoadProbability = 0.5
	case "Mostly occupied":
		p.DaytimeLoadProbability = 0.9
	}

	if a.Q3 == "Yes" {
		p.HVACUsage = "active"
		p.ThermalComfortSetpoint = a.Q31
	}

	if a.Q4 != "" {
		p.WaterHeatingSource = strings.ToLower(a.Q4)
	}

	switch a.Q5 {
	case "0-1":
		p.ApplianceLoadTier = "low"
	case "2-3":
		p.ApplianceLoadTier = "moderate"
	case "4+":
		p.ApplianceLoadTier = "heavy"
	}

	return p
}
