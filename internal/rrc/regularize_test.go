package rrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAligned(t *testing.T, a, b []Segment, n int) {
	t.Helper()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Begin(), b[i].Begin(), "begin mismatch at %d", i)
		assert.Equal(t, a[i].End(), b[i].End(), "end mismatch at %d", i)
	}
	assertPartition(t, a, n)
}

func ends(segments []Segment) []int {
	out := make([]int, len(segments))
	for i, s := range segments {
		out[i] = s.End()
	}
	return out
}

func TestRegularize_OffByOnePicksCheaperBoundary(t *testing.T) {
	small := []int{50, 50, 50, 51, 900, 900, 896, 890}
	large := []int{60, 61, 62, 1200, 1203, 1194, 1198, 1190}
	m1 := segmentsOf(small, [2]int{0, 3}, [2]int{4, 7})
	m2 := segmentsOf(large, [2]int{0, 2}, [2]int{3, 7})

	r1, r2 := Regularize(m1, small, m2, large)
	assertAligned(t, r1, r2, len(small))
	assert.Equal(t, []int{2, 7}, ends(r1))
	assert.InDelta(t, 50.0, r1[0].Average(), 1e-9)
	assert.InDelta(t, 727.4, r1[1].Average(), 1e-9)
	assert.InDelta(t, 1197.0, r2[1].Average(), 1e-9)
}

func TestRegularize_OffByOneKeepsFirstModel(t *testing.T) {
	d1 := []int{10, 10, 10, 10, 500, 500}
	d2 := []int{10, 10, 10, 10, 10, 500}
	m1 := segmentsOf(d1, [2]int{0, 3}, [2]int{4, 5})
	m2 := segmentsOf(d2, [2]int{0, 4}, [2]int{5, 5})

	r1, r2 := Regularize(m1, d1, m2, d2)
	assertAligned(t, r1, r2, len(d1))
	assert.Equal(t, []int{3, 5}, ends(r1))
	assert.InDelta(t, 255.0, r2[1].Average(), 1e-9)
}

func TestRegularize_SplitsLongerSegment(t *testing.T) {
	d1 := []int{100, 100, 100, 100, 100, 100}
	d2 := []int{100, 100, 100, 900, 900, 900}
	m1 := segmentsOf(d1, [2]int{0, 5})
	m2 := segmentsOf(d2, [2]int{0, 2}, [2]int{3, 5})

	r1, r2 := Regularize(m1, d1, m2, d2)
	assertAligned(t, r1, r2, len(d1))
	assert.Equal(t, []int{2, 5}, ends(r1))
	assert.InDelta(t, 100.0, r1[1].Average(), 1e-9)
	assert.InDelta(t, 900.0, r2[1].Average(), 1e-9)
}

func TestRegularize_NeverMerges(t *testing.T) {
	d := []int{50, 50, 300, 300, 300, 300, 300, 300, 300, 300}
	m1 := segmentsOf(d, [2]int{0, 1}, [2]int{2, 9})
	m2 := segmentsOf(d, [2]int{0, 9})

	r1, r2 := Regularize(m1, d, m2, d)
	assertAligned(t, r1, r2, len(d))
	assert.Equal(t, []int{1, 9}, ends(r1))
}

func TestRegularize_Invariant(t *testing.T) {
	d1 := []int{50, 55, 52, 300, 310, 305, 900, 910, 920, 915, 905, 400, 410, 420}
	d2 := []int{60, 62, 61, 900, 950, 940, 1200, 1190, 1210, 1205, 1195, 600, 610, 605}
	cases := []struct {
		m1, m2 [][2]int
	}{
		{[][2]int{{0, 2}, {3, 5}, {6, 10}, {11, 13}}, [][2]int{{0, 2}, {3, 5}, {6, 10}, {11, 13}}},
		{[][2]int{{0, 3}, {4, 13}}, [][2]int{{0, 2}, {3, 6}, {7, 13}}},
		{[][2]int{{0, 13}}, [][2]int{{0, 0}, {1, 1}, {2, 2}, {3, 12}, {13, 13}}},
		{[][2]int{{0, 5}, {6, 6}, {7, 13}}, [][2]int{{0, 6}, {7, 12}, {13, 13}}},
		{[][2]int{{0, 1}, {2, 3}, {4, 13}}, [][2]int{{0, 2}, {3, 4}, {5, 13}}},
	}
	for _, tc := range cases {
		r1, r2 := Regularize(segmentsOf(d1, tc.m1...), d1, segmentsOf(d2, tc.m2...), d2)
		assertAligned(t, r1, r2, len(d1))
	}
}

func TestRegularize_Empty(t *testing.T) {
	r1, r2 := Regularize(nil, nil, nil, nil)
	assert.Nil(t, r1)
	assert.Nil(t, r2)
}
