package rrc

// Aggregate сводит несколько тестов в одну последовательность: для каждого
// интервала берется среднее без выбросов по всем тестам, где значение есть и
// пакет не потерян. Позиция без значений наследует предыдущую, ведущий пропуск
// заполняется первым известным значением. NoData остается, только если данных нет вовсе.
func Aggregate(runs [][]int) []int {
	length := 0
	for _, run := range runs {
		if len(run) > length {
			length = len(run)
		}
	}

	out := make([]int, length)
	var avg Averager
	for i := range out {
		avg.Reset()
		for _, run := range runs {
			if len(run) <= i || run[i] == LostRTT {
				continue
			}
			avg.Add(run[i])
		}

		v := avg.FindAverage()
		if v == NoData && i > 0 {
			v = out[i-1]
		}
		out[i] = v
	}

	for i, v := range out {
		if v == NoData {
			continue
		}
		for j := 0; j < i; j++ {
			out[j] = v
		}
		break
	}
	return out
}
