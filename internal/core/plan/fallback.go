package plan

import (
	"fmt"
	"strings"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/profile"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/risk"
)

// fallbackPlan builds the deterministic rule-based plan used when the
// language service is unavailable. Actions are keyed off the dominant risk
// reasons and the lifestyle profile, rotated so each day gets distinct
// advice.
func (s *Synthesizer) fallbackPlan(prof profile.Profile, report risk.Report) *Plan {
	pool := actionPool(prof, report)

	daily := make(map[string][]Action, DayCount)
	for day := 1; day <= DayCount; day++ {
		primary := pool[(day-1)%len(pool)]
		secondary := pool[day%len(pool)]
		daily[DayLabel(day)] = []Action{primary, secondary}
	}

	savings := 5.0
	if report.TotalRiskDays > 0 {
		savings = clamp(5.0+2.0*float64(report.TotalRiskDays), 0, 20)
	}

	summary := "This plan was generated from your consumption patterns and risk assessment. "
	if report.TotalRiskDays > 0 {
		summary += fmt.Sprintf("%d of the next 7 days show elevated overconsumption risk, so the recommendations focus on those drivers.", report.TotalRiskDays)
	} else {
		summary += "No high-risk days were detected, so the recommendations focus on general efficiency habits."
	}

	return &Plan{
		Summary:                 summary,
		EstimatedSavingsPercent: savings,
		ComfortImpact:           "low",
		DailyPlan:               daily,
		Degraded:                true,
		DegradedReason:          "language service unavailable; plan generated from rule templates",
	}
}

func actionPool(prof profile.Profile, report risk.Report) []Action {
	reasons := make(map[string]bool)
	for _, day := range report.RiskDetails {
		for _, r := range day.Reasons {
			reasons[r] = true
		}
	}

	var pool []Action

	if reasons[risk.ReasonHighTemperature] || prof.HVACUsage == "active" {
		pool = append(pool, Action{
			Action: "Raise your cooling setpoint by 1-2°C during the hottest hours",
			Reason: "Cooling load dominates usage on hot days; a small setpoint change cuts consumption with minimal comfort loss",
		})
		pool = append(pool, Action{
			Action: "Close blinds and curtains on sun-facing windows during midday",
			Reason: "Blocking solar gain reduces how hard your cooling system has to work",
		})
	}

	if reasons[risk.ReasonWeekendUsage] {
		pool = append(pool, Action{
			Action: "Spread laundry and other heavy chores across weekdays instead of clustering them on weekends",
			Reason: "Your weekend usage runs well above weekdays; spreading the load flattens the peak",
		})
	}

	if reasons[risk.ReasonSpikePattern] {
		pool = append(pool, Action{
			Action: "Avoid running multiple high-power appliances at the same time",
			Reason: "Your history shows sharp usage spikes; staggering appliance use keeps peak demand down",
		})
	}

	if prof.WaterHeatingSource == "electric" {
		pool = append(pool, Action{
			Action: "Lower your electric water heater thermostat slightly and shorten hot showers",
			Reason: "Electric water heating is a large steady load; modest temperature reductions save energy daily",
		})
	}

	if strings.EqualFold(prof.ApplianceLoadTier, "heavy") {
		pool = append(pool, Action{
			Action: "Run dishwashers and washing machines only with full loads",
			Reason: "With many appliances in the home, consolidating cycles avoids wasted runs",
		})
	}

	pool = append(pool,
		Action{
			Action: "Switch off lights and electronics in unoccupied rooms",
			Reason: "Standby and idle loads add up over a full week",
		},
		Action{
			Action: "Shift energy-intensive activities to your lowest-usage hours",
			Reason: "Moving flexible loads off your peak hours reduces strain and cost",
		},
		Action{
			Action: "Unplug chargers and small devices overnight",
			Reason: "Phantom loads draw power continuously even when devices are idle",
		},
	)

	return pool
}
