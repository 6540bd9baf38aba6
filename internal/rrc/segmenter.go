package rrc

// MakeModel жадно делит последовательность на сегменты с почти постоянным RTT.
// large включает более агрессивное разбиение, когда полных тестов достаточно.
func MakeModel(data []int, large bool) []Segment {
	if len(data) == 0 {
		return nil
	}

	var segments []Segment
	var acc Averager
	begin := 0
	acc.Add(data[0])

	for i := 1; i < len(data); i++ {
		d := data[i]
		if shouldSplit(acc.FindAverage(), acc.Len(), d, i, len(data), large) {
			segments = append(segments, spanSegment(data, begin, i-1))
			begin = i
			acc.Reset()
		}
		acc.Add(d)
	}

	return append(segments, spanSegment(data, begin, len(data)-1))
}

func shouldSplit(avg, n, d, i, total int, large bool) bool {
	// хвост из одного значения не выделяем
	if i >= total-1 {
		return false
	}

	r := jumpRatio(avg, d)
	if large {
		switch {
		case r > 0.25 && d > 200 && d < 1700 && n > 2:
			return true
		case r > 0.5 && d < 200 && n > 2:
			return true
		case r > 0.75 && d > 200 && i > 1: // всплеск на переходе
			return true
		}
		return false
	}

	switch {
	case r > 0.5 && d > 200 && d < 1700 && n > 3:
		return true
	case r > 0.75 && d < 200 && n > 3:
		return true
	case r > 1.0 && d > 200 && i > 1 && n > 2:
		return true
	}
	return false
}

// jumpRatio относительный скачок |avg-d|/avg, 0 при avg <= 0
func jumpRatio(avg, d int) float64 {
	if avg <= 0 {
		return 0
	}
	diff := avg - d
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(avg)
}
