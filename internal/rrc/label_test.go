package rrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type segPair struct {
	small, large float64
	width        int
}

func pairs(defs ...segPair) ([]Segment, []Segment) {
	var small, large []Segment
	begin := 0
	for _, p := range defs {
		end := begin + p.width
		small = append(small, Segment{average: p.small, begin: begin, end: end})
		large = append(large, Segment{average: p.large, begin: begin, end: end})
		begin = end + 1
	}
	return small, large
}

func TestLabelSegments_HighThenIdle(t *testing.T) {
	small, large := pairs(segPair{50, 61, 2}, segPair{727.4, 1197, 4})
	assert.Equal(t, []Label{LabelDCH, LabelPCH}, LabelSegments(small, large))
}

func TestLabelSegments_FullProgression(t *testing.T) {
	small, large := pairs(
		segPair{50, 60, 4},
		segPair{300, 900, 5},
		segPair{800, 1000, 10},
	)
	labels := LabelSegments(small, large)
	assert.Equal(t, []Label{LabelDCH, LabelFACH, LabelPCH}, labels)
	assertNoRegression(t, labels)
}

func TestLabelSegments_NoSignal(t *testing.T) {
	small, large := pairs(segPair{NoData, NoData, 7})
	assert.Equal(t, []Label{LabelAnomalous}, LabelSegments(small, large))
}

func TestLabelSegments_NoSignalKeepsState(t *testing.T) {
	small, large := pairs(segPair{NoData, NoData, 1}, segPair{50, 60, 3})
	assert.Equal(t, []Label{LabelAnomalous, LabelDCH}, LabelSegments(small, large))
}

func TestLabelSegments_Init(t *testing.T) {
	small, large := pairs(segPair{500, 600, 3})
	assert.Equal(t, []Label{LabelDCHHighRTT}, LabelSegments(small, large))

	small, large = pairs(segPair{300, 140, 3})
	assert.Equal(t, []Label{LabelDCH}, LabelSegments(small, large))
}

func TestLabelSegments_SecondDCH(t *testing.T) {
	small, large := pairs(segPair{50, 60, 3}, segPair{55, 70, 3})
	assert.Equal(t, []Label{LabelDCH, LabelAnomalousDCH}, LabelSegments(small, large))
}

func TestLabelSegments_TransitionSpikeCorrected(t *testing.T) {
	small, large := pairs(
		segPair{50, 60, 3},
		segPair{1100, 2000, 2},
		segPair{1200, 1500, 10},
	)
	assert.Equal(t, []Label{LabelDCH, LabelFACH, LabelPCH}, LabelSegments(small, large))
}

func TestLabelSegments_TransitionSpikeKept(t *testing.T) {
	small, large := pairs(
		segPair{50, 60, 3},
		segPair{1500, 1600, 2},
		segPair{1200, 1500, 10},
	)
	assert.Equal(t, []Label{LabelDCH, LabelAnomalousFACH, LabelPCH}, LabelSegments(small, large))
}

func TestLabelSegments_LowestIdleIsCanonical(t *testing.T) {
	small, large := pairs(
		segPair{50, 60, 3},
		segPair{300, 900, 5},
		segPair{800, 1000, 10},
		segPair{700, 900, 10},
		segPair{900, 1200, 10},
	)
	assert.Equal(t,
		[]Label{LabelDCH, LabelFACH, LabelAnomalousPCH, LabelPCH, LabelAnomalousPCH},
		LabelSegments(small, large))
}

func TestLabelSegments_IdleBeforeTransitionPromoted(t *testing.T) {
	small, large := pairs(
		segPair{50, 60, 3},
		segPair{900, 1000, 10},
		segPair{600, 800, 10},
	)
	assert.Equal(t, []Label{LabelDCH, LabelAnomalousFACH, LabelPCH}, LabelSegments(small, large))
}

func TestLabelSegments_IdleBeforeTransitionFindsFACH(t *testing.T) {
	small, large := pairs(
		segPair{50, 60, 3},
		segPair{900, 1000, 10},
		segPair{350, 900, 10},
	)
	assert.Equal(t, []Label{LabelDCH, LabelAnomalousFACH, LabelFACH}, LabelSegments(small, large))
}

func assertNoRegression(t *testing.T, labels []Label) {
	t.Helper()
	rank := map[Label]int{
		LabelDCH:  1,
		LabelFACH: 2,
		LabelPCH:  3,
	}
	last := 0
	for _, l := range labels {
		r, ok := rank[l]
		if !ok {
			continue
		}
		assert.GreaterOrEqual(t, r, last, "label %s after higher state", l)
		last = r
	}
}
