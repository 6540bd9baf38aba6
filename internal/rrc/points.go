package rrc

import (
	"slices"

	"rrc-inference/internal/models"
)

// MeasurementPoints середины сегментов больших пакетов, без повторов, по возрастанию.
// Это интервалы, которые клиенту стоит промерять в следующих тестах.
func MeasurementPoints(rows []models.ModelRow) []int {
	points := make([]int, 0, len(rows))
	for _, row := range rows {
		if row.Small {
			continue
		}
		points = append(points, (row.SegmentEnd-row.SegmentBegin)/2+row.SegmentBegin)
	}
	slices.Sort(points)
	return slices.Compact(points)
}
