package rrc

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

const (
	// LostRTT RTT потерянного пакета или таймаута (7 секунд)
	LostRTT = 7000
	// NoData нет ни одного значения для позиции
	NoData = -1
)

// ErrInvalidSegment начало сегмента после конца
var ErrInvalidSegment = errors.New("segment begin is after end")

// Segment диапазон индексов [begin, end] с одним представительным RTT
type Segment struct {
	average float64
	begin   int
	end     int
}

// NewSegment создает сегмент, проверяя begin <= end
func NewSegment(average float64, begin, end int) (Segment, error) {
	if begin > end {
		return Segment{}, fmt.Errorf("%w: [%d, %d]", ErrInvalidSegment, begin, end)
	}
	return Segment{average: average, begin: begin, end: end}, nil
}

// spanSegment сегмент со средним по data[begin:end+1]. Перевернутый диапазон
// сжимается до одной точки begin.
func spanSegment(data []int, begin, end int) Segment {
	if end < begin {
		end = begin
	}
	seg, _ := NewSegment(spanAverage(data, begin, end), begin, end)
	return seg
}

// Average среднее RTT сегмента
func (s Segment) Average() float64 { return s.average }

// Begin первый индекс
func (s Segment) Begin() int { return s.begin }

// End последний индекс (включительно)
func (s Segment) End() int { return s.end }

// Width end - begin
func (s Segment) Width() int { return s.end - s.begin }

func (s Segment) String() string {
	return fmt.Sprintf("[%.1f %d-%d]", s.average, s.begin, s.end)
}

func spanAverage(data []int, begin, end int) float64 {
	if begin < 0 {
		begin = 0
	}
	if end >= len(data) {
		end = len(data) - 1
	}
	if end < begin {
		return NoData
	}
	return stat.Mean(toFloats(data[begin:end+1]), nil)
}

// segmentError суммарное отклонение выборки от среднего на [begin, end]
func segmentError(data []int, average float64, begin, end int) float64 {
	score := 0.0
	for i := begin; i <= end && i < len(data); i++ {
		d := float64(data[i]) - average
		if d < 0 {
			d = -d
		}
		score += d
	}
	return score
}

func toFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
