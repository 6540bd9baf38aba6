package rrc

// Regularize приводит модели маленьких и больших пакетов к общей сетке границ.
// Сегменты только разрезаются или расширяются, но не сливаются. После вызова
// оба списка одной длины и a[i].End() == b[i].End() для всех i.
func Regularize(model1 []Segment, data1 []int, model2 []Segment, data2 []int) ([]Segment, []Segment) {
	last := min(len(data1), len(data2)) - 1
	if last < 0 {
		return nil, nil
	}

	var out1, out2 []Segment
	i1, i2, begin := 0, 0, 0
	for begin <= last {
		i1 = skipConsumed(model1, i1, begin)
		i2 = skipConsumed(model2, i2, begin)
		e1, ok1 := boundary(model1, i1, last)
		e2, ok2 := boundary(model2, i2, last)

		var end int
		switch {
		case !ok1 && !ok2:
			end = last
		case !ok1:
			// модель 1 закончилась: пустой сегмент принимает границу второй
			end = e2
			i2++
		case !ok2:
			end = e1
			i1++
		case e1 == e2:
			end = e1
			i1++
			i2++
		case e1+1 < e2:
			// остаток длинного сегмента станет началом следующего
			end = e1
			i1++
		case e2+1 < e1:
			end = e2
			i2++
		default:
			end = pickBoundary(data1, data2, begin, e1, e2)
			i1++
			i2++
		}

		out1 = append(out1, spanSegment(data1, begin, end))
		out2 = append(out2, spanSegment(data2, begin, end))
		begin = end + 1
	}
	return out1, out2
}

// pickBoundary при расхождении на один индекс выбирает границу,
// смена которой обошлась бы дороже по ошибке сегмента.
func pickBoundary(data1, data2 []int, begin, e1, e2 int) int {
	avg1 := spanAverage(data1, begin, e1)
	avg2 := spanAverage(data2, begin, e2)

	keep1 := segmentError(data1, avg1, begin, e1)
	switch1 := segmentError(data1, avg1, begin, e2)
	keep2 := segmentError(data2, avg2, begin, e2)
	switch2 := segmentError(data2, avg2, begin, e1)

	if switch1-keep1 > switch2-keep2 {
		return e1
	}
	return e2
}

func skipConsumed(model []Segment, i, begin int) int {
	for i < len(model) && model[i].End() < begin {
		i++
	}
	return i
}

func boundary(model []Segment, i, last int) (int, bool) {
	if i >= len(model) {
		return 0, false
	}
	return min(model[i].End(), last), true
}
