package rrc

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Averager среднее с отбрасыванием выбросов дальше двух стандартных отклонений
type Averager struct {
	samples []float64
}

// Add добавляет значение
func (a *Averager) Add(v int) {
	a.samples = append(a.samples, float64(v))
}

// Len количество накопленных значений
func (a *Averager) Len() int {
	return len(a.samples)
}

// Reset очищает накопленные значения
func (a *Averager) Reset() {
	a.samples = a.samples[:0]
}

// FindAverage возвращает целое среднее без выбросов или NoData, если значений нет
func (a *Averager) FindAverage() int {
	if len(a.samples) == 0 {
		return NoData
	}

	mean, variance := stat.PopMeanVariance(a.samples, nil)
	limit := 2 * math.Sqrt(variance)

	kept := make([]float64, 0, len(a.samples))
	for _, s := range a.samples {
		if math.Abs(s-mean) <= limit {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return int(mean)
	}
	return int(stat.Mean(kept, nil))
}
