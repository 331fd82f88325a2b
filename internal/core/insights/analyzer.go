package insights

import (
	"math"
	"sort"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/weather"
)

const (
	maxPeakHours        = 7
	spikeSigmaFactor    = 2.0
	weekendDeadbandPct  = 5.0
	minTrailingForSpike = 24
)

// Analyzer computes consumption insights from history. Pure: it holds only
// configuration, never state from a run.
type Analyzer struct {
	spikeWindow time.Duration
}

// NewAnalyzer creates an analyzer with the given trailing spike window.
func NewAnalyzer(spikeWindowDays int) *Analyzer {
	if spikeWindowDays <= 0 {
		spikeWindowDays = 30
	}
	return &Analyzer{spikeWindow: time.Duration(spikeWindowDays) * 24 * time.Hour}
}

// Analyze computes the full insight payload from the usage history and the
// historical portion of the weather series. An empty weather series yields a
// degraded-but-valid result: weather_context is omitted and weather_driver
// defaults to "weather-neutral".
func (a *Analyzer) Analyze(series *timeseries.Series, hist weather.Series) Insights {
	result := Insights{
		PeakHours:     a.peakHours(series),
		PeakMonths:    a.peakMonths(series),
		SpikeProfile:  a.spikeProfile(series),
		WeatherDriver: "weather-neutral",
	}

	result.WeekendIncreasePercent, result.WeekendBehavior = a.weekendBehavior(series)

	if !hist.Empty() {
		ctx := a.weatherContext(series, hist)
		result.WeatherContext = &ctx
		result.WeatherDriver = ctx.WeatherDriver
	}

	return result
}

// peakHours ranks hours of day by mean usage, descending, ties broken by the
// lower hour, and keeps the top seven.
func (a *Analyzer) peakHours(series *timeseries.Series) []int {
	var sums [24]float64
	var counts [24]int
	for _, p := range series.Points {
		h := p.Timestamp.Hour()
		sums[h] += p.UsageKW
		counts[h]++
	}

	type hourMean struct {
		hour int
		mean float64
	}
	means := make([]hourMean, 0, 24)
	for h := 0; h < 24; h++ {
		if counts[h] > 0 {
			means = append(means, hourMean{hour: h, mean: sums[h] / float64(counts[h])})
		}
	}

	sort.Slice(means, func(i, j int) bool {
		if means[i].mean != means[j].mean {
			return means[i].mean > means[j].mean
		}
		return means[i].hour < means[j].hour
	})

	n := len(means)
	if n > maxPeakHours {
		n = maxPeakHours
	}
	peaks := make([]int, 0, n)
	for _, hm := range means[:n] {
		peaks = append(peaks, hm.hour)
	}
	return peaks
}

// peakMonths returns the top three months by total consumption when the
// history covers more than one calendar month.
func (a *Analyzer) peakMonths(series *timeseries.Series) []string {
	totals := make(map[time.Month]float64)
	for _, p := range series.Points {
		totals[p.Timestamp.Month()] += p.UsageKW
	}
	if len(totals) < 2 {
		return nil
	}

	type monthTotal struct {
		month time.Month
		total float64
	}
	ranked := make([]monthTotal, 0, len(totals))
	for m, t := range totals {
		ranked = append(ranked, monthTotal{month: m, total: t})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].total != ranked[j].total {
			return ranked[i].total > ranked[j].total
		}
		return ranked[i].month < ranked[j].month
	})

	n := len(ranked)
	if n > 3 {
		n = 3
	}
	names := make([]string, 0, n)
	for _, mt := range ranked[:n] {
		names = append(names, mt.month.String())
	}
	return names
}

// spikeProfile marks a point as a spike when its usage exceeds
// mean + 2×stddev over the trailing window ending just before the point.
// Prefix sums keep the rolling statistics O(n).
func (a *Analyzer) spikeProfile(series *timeseries.Series) SpikeProfile {
	points := series.Points
	n := len(points)
	if n == 0 {
		return SpikeProfile{SpikePeakHours: []int{}}
	}

	windowHours := int(a.spikeWindow.Hours())

	prefix := make([]float64, n+1)
	prefixSq := make([]float64, n+1)
	for i, p := range points {
		prefix[i+1] = prefix[i] + p.UsageKW
		prefixSq[i+1] = prefixSq[i] + p.UsageKW*p.UsageKW
	}

	var (
		spikeCount    int
		weekendSpikes int
		spikeSum      float64
		spikeMax      float64
		spikesByHour  [24]int
	)

	for i := minTrailingForSpike; i < n; i++ {
		lo := i - windowHours
		if lo < 0 {
			lo = 0
		}
		count := float64(i - lo)
		mean := (prefix[i] - prefix[lo]) / count
		variance := (prefixSq[i]-prefixSq[lo])/count - mean*mean
		if variance < 0 {
			variance = 0
		}
		threshold := mean + spikeSigmaFactor*math.Sqrt(variance)

		if points[i].UsageKW > threshold {
			spikeCount++
			spikeSum += points[i].UsageKW
			if points[i].UsageKW > spikeMax {
				spikeMax = points[i].UsageKW
			}
			spikesByHour[points[i].Timestamp.Hour()]++
			if timeseries.IsWeekend(points[i].Timestamp) {
				weekendSpikes++
			}
		}
	}

	sp := SpikeProfile{SpikePeakHours: []int{}}
	if spikeCount == 0 {
		return sp
	}

	sp.SpikeRatePercent = round1(float64(spikeCount) / float64(n) * 100)
	sp.AvgSpikeKW = round2(spikeSum / float64(spikeCount))
	sp.MaxSpikeKW = round2(spikeMax)
	sp.WeekendSpikePercent = round1(float64(weekendSpikes) / float64(spikeCount) * 100)

	maxHourCount := 0
	for _, c := range spikesByHour {
		if c > maxHourCount {
			maxHourCount = c
		}
	}
	for h, c := range spikesByHour {
		if c > 0 && float64(c) >= 0.5*float64(maxHourCount) {
			sp.SpikePeakHours = append(sp.SpikePeakHours, h)
		}
	}

	return sp
}

// weekendBehavior compares mean daily consumption on weekends against
// weekdays, with a ±5% deadband mapping to "similar".
func (a *Analyzer) weekendBehavior(series *timeseries.Series) (float64, string) {
	var weekendKWH, weekdayKWH float64
	var weekendDays, weekdayDays int

	for _, day := range series.DailyTotals() {
		if timeseries.IsWeekend(day.Date) {
			weekendKWH += day.TotalKWH
			weekendDays++
		} else {
			weekdayKWH += day.TotalKWH
			weekdayDays++
		}
	}

	if weekendDays == 0 || weekdayDays == 0 || weekdayKWH == 0 {
		return 0, "similar"
	}

	meanWeekend := weekendKWH / float64(weekendDays)
	meanWeekday := weekdayKWH / float64(weekdayDays)
	increase := (meanWeekend - meanWeekday) / meanWeekday * 100

	behavior := "similar"
	if increase > weekendDeadbandPct {
		behavior = "higher"
	} else if increase < -weekendDeadbandPct {
		behavior = "lower"
	}

	return round2(increase), behavior
}

// weatherContext buckets the climate backdrop and correlates temperature
// with usage over the overlapping hours.
func (a *Analyzer) weatherContext(series *timeseries.Series, hist weather.Series) WeatherContext {
	var (
		tempSum, humSum, windSum, stressSum float64
		count                               int
		usagePaired, tempPaired             []float64
	)

	for _, p := range series.Points {
		wp, ok := hist.At(p.Timestamp)
		if !ok {
			continue
		}
		tempSum += wp.TemperatureC
		humSum += wp.HumidityPercent
		windSum += wp.WindSpeedKPH
		stressSum += wp.TemperatureC + 0.1*wp.HumidityPercent
		count++
		usagePaired = append(usagePaired, p.UsageKW)
		tempPaired = append(tempPaired, wp.TemperatureC)
	}

	ctx := WeatherContext{WeatherDriver: "weather-neutral"}
	if count == 0 {
		return ctx
	}

	avgTemp := tempSum / float64(count)
	avgHumidity := humSum / float64(count)
	avgWind := windSum / float64(count)

	ctx.AvgTempC = round1(avgTemp)
	ctx.HeatStressIndex = round1(stressSum / float64(count))

	switch {
	case avgTemp >= 30:
		ctx.ThermalCondition = "hot"
	case avgTemp >= 25:
		ctx.ThermalCondition = "warm"
	default:
		ctx.ThermalCondition = "mild"
	}

	switch {
	case avgHumidity > 70:
		ctx.HumidityLevel = "high"
	case avgHumidity > 50:
		ctx.HumidityLevel = "moderate"
	default:
		ctx.HumidityLevel = "low"
	}

	switch {
	case avgWind > 10:
		ctx.WindCoolingEffect = "good-ventilation"
	case avgWind > 5:
		ctx.WindCoolingEffect = "moderate"
	default:
		ctx.WindCoolingEffect = "poor-ventilation"
	}

	corr := pearson(tempPaired, usagePaired)
	ctx.TempUsageCorrelation = round2(corr)

	abs := math.Abs(corr)
	switch {
	case abs > 0.5:
		ctx.WeatherDriver = "weather-dominant"
	case abs >= 0.2:
		ctx.WeatherDriver = "weather-sensitive"
	default:
		ctx.WeatherDriver = "weather-neutral"
	}

	return ctx
}

// pearson computes the Pearson correlation coefficient of two equal-length
// samples. Returns 0 when either sample has zero variance.
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 || len(x) != len(y) {
		return 0
	}

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
