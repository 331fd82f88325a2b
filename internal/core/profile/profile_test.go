package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromAnswers_FullMapping(t *testing.T) {
	p := FromAnswers(Answers{
		Q1:  "5+",
		Q2:  "Mostly occupied",
		Q3:  "Yes",
		Q31: "24",
		Q4:  "Electric",
		Q5:  "4+",
	})

	assert.Equal(t, "high", p.OccupancyDensity)
	assert.Equal(t, 0.9, p.DaytimeLoadProbability)
	assert.Equal(t, "active", p.HVACUsage)
	assert.Equal(t, "24", p.ThermalComfortSetpoint)
	assert.Equal(t, "electric", p.WaterHeatingSource)
	assert.Equal(t, "heavy", p.ApplianceLoadTier)
}

func TestFromAnswers_NoHVACOmitsSetpoint(t *testing.T) {
	p := FromAnswers(Answers{
		Q1:  "3-4",
		Q2:  "Partially occupied",
		Q3:  "No",
		Q31: "22",
		Q4:  "Gas",
		Q5:  "2-3",
	})

	assert.Equal(t, "medium", p.OccupancyDensity)
	assert.Equal(t, 0.5, p.DaytimeLoadProbability)
	assert.Equal(t, "none", p.HVACUsage)
	assert.Empty(t, p.ThermalComfortSetpoint, "setpoint only applies with active HVAC")
	assert.Equal(t, "gas", p.WaterHeatingSource)
	assert.Equal(t, "moderate", p.ApplianceLoadTier)
}

func TestFromAnswers_UnknownAnswersFallBackToDefaults(t *testing.T) {
	p := FromAnswers(Answers{})

	assert.Equal(t, "low", p.OccupancyDensity)
	assert.Equal(t, 0.2, p.DaytimeLoadProbability)
	assert.Equal(t, "none", p.HVACUsage)
	assert.Equal(t, "none", p.WaterHeatingSource)
	assert.Equal(t, "low", p.ApplianceLoadTier)
}
