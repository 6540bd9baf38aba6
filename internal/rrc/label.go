package rrc

// Label семантическая метка RRC-состояния сегмента
type Label string

const (
	LabelDCH           Label = "DCH"
	LabelDCHHighRTT    Label = "DCH (high RTT)"
	LabelAnomalousDCH  Label = "Anomalous-DCH"
	LabelFACH          Label = "FACH"
	LabelAnomalousFACH Label = "Anomalous-FACH"
	LabelPCH           Label = "PCH"
	LabelAnomalousPCH  Label = "Anomalous-PCH"
	LabelAnomalous     Label = "Anomalous"
)

// State состояние автомата разметки. Ожидаемый порядок INIT -> DCH -> FACH -> PCH.
type State int

const (
	StateInit State = iota
	StateDCH
	StateFACH
	StatePCH
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateDCH:
		return "DCH"
	case StateFACH:
		return "FACH"
	case StatePCH:
		return "PCH"
	}
	return "UNKNOWN"
}

// Пороги откалиброваны на реальных 3G трассах.
const (
	dchSmallMax      = 200
	dchLargeMax      = 200
	dchRatio         = 1.75
	dchStayRatio     = 2.0
	dchLargeShortcut = 150

	fachSmallMax = 400
	fachLargeMax = 1700
	fachRatioMin = 1.75

	fachSpikeSmallMin = 1000
	fachSpikeLargeMin = 1500
	fachSpikeMaxWidth = 8

	pchSmallMin = 300
	pchLargeMin = 400
)

type labeler struct {
	small   []Segment
	large   []Segment
	labels  []Label
	state   State
	pch     []int
	hasFACH bool
}

// LabelSegments размечает выровненные пары сегментов. Вызывать только после Regularize.
func LabelSegments(small, large []Segment) []Label {
	n := min(len(small), len(large))
	l := &labeler{small: small, large: large, labels: make([]Label, 0, n)}
	for i := 0; i < n; i++ {
		l.step(i)
	}
	return l.labels
}

func (l *labeler) step(i int) {
	s, b := l.small[i].Average(), l.large[i].Average()
	width := l.small[i].Width()

	// нет сигнала: состояние не меняем
	if s <= 0 || b <= 0 {
		l.labels = append(l.labels, LabelAnomalous)
		return
	}

	switch l.state {
	case StateInit:
		if (s < dchSmallMax && b < dchLargeMax && b/s < dchRatio) || b < dchLargeShortcut {
			l.labels = append(l.labels, LabelDCH)
		} else {
			l.labels = append(l.labels, LabelDCHHighRTT)
		}
		l.state = StateDCH

	case StateDCH:
		switch {
		case s < dchSmallMax && b < dchLargeMax && b/s < dchStayRatio:
			l.labels = append(l.labels, LabelAnomalousDCH)
		case isFACH(s, b):
			l.labels = append(l.labels, LabelFACH)
			l.state = StateFACH
			l.hasFACH = true
		case isFACHSpike(s, b, width):
			l.labels = append(l.labels, LabelAnomalousFACH)
			l.state = StateFACH
			l.hasFACH = true
		case isPCH(s, b):
			l.enterPCH(i)
		default:
			l.labels = append(l.labels, LabelAnomalous)
		}

	case StateFACH:
		switch {
		case isFACH(s, b):
			l.labels = append(l.labels, LabelFACH)
		case isFACHSpike(s, b, width):
			l.labels = append(l.labels, LabelAnomalousFACH)
		case isPCH(s, b):
			l.enterPCH(i)
			// всплеск перехода должен быть ниже PCH, иначе это был FACH
			if i > 0 && l.labels[i-1] == LabelAnomalousFACH && l.continuous(i-1, i) {
				l.labels[i-1] = LabelFACH
			}
		default:
			l.labels = append(l.labels, LabelAnomalous)
		}
		l.hasFACH = true

	case StatePCH:
		l.stayPCH(i)
	}
}

func (l *labeler) enterPCH(i int) {
	l.labels = append(l.labels, LabelPCH)
	l.pch = append(l.pch, i)
	l.state = StatePCH
}

// stayPCH из PCH выхода нет. Каноническим PCH остается сегмент с наименьшим
// RTT маленьких пакетов, остальные помечаются аномальными.
func (l *labeler) stayPCH(i int) {
	l.labels = append(l.labels, LabelPCH)
	l.pch = append(l.pch, i)

	canonical := l.pch[0]
	for _, j := range l.pch[1:] {
		if l.small[j].Average() < l.small[canonical].Average() {
			canonical = j
		}
	}
	for _, j := range l.pch {
		if j == canonical {
			l.labels[j] = LabelPCH
		} else {
			l.labels[j] = LabelAnomalousPCH
		}
	}

	// первый аномальный PCH до любого FACH на деле всплеск перехода,
	// а следующий за ним кандидат может оказаться самим FACH
	first := l.pch[0]
	if l.hasFACH || l.labels[first] != LabelAnomalousPCH {
		return
	}
	l.pch = l.pch[1:]
	l.hasFACH = true
	l.labels[first] = LabelAnomalousFACH

	if len(l.pch) == 0 {
		return
	}
	next := l.pch[0]
	if isFACH(l.small[next].Average(), l.large[next].Average()) {
		l.labels[next] = LabelFACH
		l.pch = l.pch[1:]
	}
}

func (l *labeler) continuous(prev, cur int) bool {
	ps, pb := l.small[prev].Average(), l.large[prev].Average()
	s, b := l.small[cur].Average(), l.large[cur].Average()
	if ps <= 0 {
		return false
	}
	return ps < s && pb < b*1.5 && pb/ps > fachRatioMin
}

func isFACH(s, b float64) bool {
	return s < fachSmallMax && b < fachLargeMax && b/s > fachRatioMin
}

func isFACHSpike(s, b float64, width int) bool {
	return (s > fachSpikeSmallMin || b > fachSpikeLargeMin) && width < fachSpikeMaxWidth
}

func isPCH(s, b float64) bool {
	return s > pchSmallMin && b > pchLargeMin
}
