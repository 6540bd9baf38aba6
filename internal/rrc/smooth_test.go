package rrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmooth_RemovesNoise(t *testing.T) {
	in := []int{50, 52, 48, 51, 900, 910, 905, 890}
	assert.Equal(t, []int{50, 49, 51, 51, 900, 902, 900, 890}, Smooth(in))
}

func TestSmooth_KeepsTransition(t *testing.T) {
	in := []int{100, 100, 100, 1000, 1000}
	assert.Equal(t, in, Smooth(in))
}

func TestSmooth_LossNeighbours(t *testing.T) {
	// рядом с потерей значение не трогаем, саму потерю между близкими соседями сглаживаем
	assert.Equal(t, []int{100, 120, 125, 130}, Smooth([]int{100, 120, LostRTT, 130}))
	assert.Equal(t, []int{100, 100, 100}, Smooth([]int{100, LostRTT, 100}))
}

func TestSmooth_NoDataNeighbours(t *testing.T) {
	assert.Equal(t, []int{NoData, 50, 51, 52}, Smooth([]int{NoData, 50, 51, 52}))
}

func TestSmooth_KeepsEnds(t *testing.T) {
	in := []int{10, 500, 20}
	out := Smooth(in)
	assert.Equal(t, 10, out[0])
	assert.Equal(t, 20, out[2])
	assert.Len(t, out, len(in))
}

func TestSmooth_Short(t *testing.T) {
	assert.Equal(t, []int{}, Smooth([]int{}))
	assert.Equal(t, []int{5}, Smooth([]int{5}))
	assert.Equal(t, []int{5, 9}, Smooth([]int{5, 9}))
}

func TestSmooth_DoesNotMutateInput(t *testing.T) {
	in := []int{100, 300, 110}
	Smooth(in)
	assert.Equal(t, []int{100, 300, 110}, in)
}
