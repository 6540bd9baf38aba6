package rrc

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"rrc-inference/internal/models"
)

// SegmentBaseline средние RTT сегмента, начинающегося с Begin
type SegmentBaseline struct {
	Begin    int
	SmallAvg *float64
	LargeAvg *float64
}

func (b *SegmentBaseline) normalize(rtt int, small bool) float64 {
	val := b.LargeAvg
	if small {
		val = b.SmallAvg
	}
	v := float64(normalizeRTT(rtt))
	if val == nil {
		return v
	}
	return v - *val
}

// SegmentIndex сегменты модели по индексу начала. Принадлежит вызывающему.
type SegmentIndex map[int]*SegmentBaseline

// BuildSegmentIndex отмечает сегменты, где среднее меняется относительно
// предыдущего сегмента того же размера пакета. Первый сегмент служит базой.
func BuildSegmentIndex(rows []models.ModelRow) SegmentIndex {
	sorted := slices.Clone(rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SegmentBegin < sorted[j].SegmentBegin
	})

	index := make(SegmentIndex)
	var lastSmall, lastLarge *float64
	for _, row := range sorted {
		avg := row.Avg
		last := &lastLarge
		if row.Small {
			last = &lastSmall
		}
		if *last != nil && **last != avg {
			b, ok := index[row.SegmentBegin]
			if !ok {
				b = &SegmentBaseline{Begin: row.SegmentBegin}
				index[row.SegmentBegin] = b
			}
			if row.Small {
				b.SmallAvg = &avg
			} else {
				b.LargeAvg = &avg
			}
		}
		*last = &avg
	}
	return index
}

// SignalReport зависимость RTT от уровня сигнала в начале сегмента
type SignalReport struct {
	SegmentBegin     int     `json:"segment_begin"`
	Samples          int     `json:"samples"`
	AvgSignal        float64 `json:"avg_signal"`
	SignalSpread     float64 `json:"signal_spread"`
	AvgSmall         float64 `json:"avg_small"`
	AvgLarge         float64 `json:"avg_large"`
	StdSmall         float64 `json:"std_small"`
	StdLarge         float64 `json:"std_large"`
	CorrelationSmall float64 `json:"correlation_small"`
	CorrelationLarge float64 `json:"correlation_large"`
}

// AnalyzeSignal для каждого сегмента индекса берет пробы с интервалом, равным
// началу сегмента, и считает корреляцию уровня сигнала с нормализованным RTT.
func AnalyzeSignal(records []models.RawRecord, index SegmentIndex) []SignalReport {
	reports := make([]SignalReport, 0, len(index))
	for begin, baseline := range index {
		var signal, small, large []float64
		for _, r := range records {
			if r.TimeDelay != begin || r.SignalLow == nil {
				continue
			}
			signal = append(signal, float64(*r.SignalLow))
			small = append(small, baseline.normalize(r.RTTLow, true))
			large = append(large, baseline.normalize(r.RTTHigh, false))
		}

		report := SignalReport{SegmentBegin: begin, Samples: len(signal)}
		if len(signal) > 0 {
			report.AvgSignal = stat.Mean(signal, nil)
			report.SignalSpread = floats.Max(signal) - floats.Min(signal)
			report.AvgSmall, report.StdSmall = popMeanStdDev(small)
			report.AvgLarge, report.StdLarge = popMeanStdDev(large)
			report.CorrelationSmall = correlation(signal, small)
			report.CorrelationLarge = correlation(signal, large)
		}
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].SegmentBegin < reports[j].SegmentBegin
	})
	return reports
}

func popMeanStdDev(x []float64) (float64, float64) {
	mean, variance := stat.PopMeanVariance(x, nil)
	return mean, math.Sqrt(variance)
}

// correlation коэффициент Пирсона, 0 если не определен
func correlation(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return c
}
