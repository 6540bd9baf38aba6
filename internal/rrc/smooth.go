package rrc

// Smooth убирает одиночные всплески шума внутри одного теста,
// не размывая настоящие переходы между состояниями.
func Smooth(run []int) []int {
	out := make([]int, len(run))
	copy(out, run)

	for i := 1; i < len(run)-1; i++ {
		prev, next := run[i-1], run[i+1]
		// рядом потерянный пакет или пропуск: не сглаживаем через него
		if prev == LostRTT || next == LostRTT || prev == NoData || next == NoData {
			continue
		}

		diff := next - prev
		if diff < 0 {
			diff = -diff
		}
		if diff < prev/4 || diff < 100 {
			out[i] = (prev + next) / 2
		}
	}
	return out
}
