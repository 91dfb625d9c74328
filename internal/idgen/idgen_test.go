package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityID_Deterministic(t *testing.T) {
	a := EntityIDString(42, "soldier", 7)
	b := EntityIDString(42, "soldier", 7)
	assert.Equal(t, a, b)
}

func TestEntityID_DiffersByKind(t *testing.T) {
	soldier := EntityIDString(42, "soldier", 7)
	source := EntityIDString(42, "source", 7)
	assert.NotEqual(t, soldier, source)
}

func TestEntityID_DiffersByIndex(t *testing.T) {
	a := EntityIDString(42, "soldier", 1)
	b := EntityIDString(42, "soldier", 2)
	assert.NotEqual(t, a, b)
}

func TestRandFor_DeterministicSequence(t *testing.T) {
	r1 := RandFor(99, "soldier", 3)
	r2 := RandFor(99, "soldier", 3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, r1.Float64(), r2.Float64())
	}
}

func TestRandFor_DiffersByKind(t *testing.T) {
	r1 := RandFor(99, "soldier", 3)
	r2 := RandFor(99, "source", 3)
	assert.NotEqual(t, r1.Float64(), r2.Float64())
}

func TestRandForPairing_DeterministicAndDistinct(t *testing.T) {
	r1 := RandForPairing(7, "src-1", "sol-1")
	r2 := RandForPairing(7, "src-1", "sol-1")
	assert.Equal(t, r1.Float64(), r2.Float64())

	r3 := RandForPairing(7, "src-1", "sol-2")
	assert.NotEqual(t, r1.Int63(), r3.Int63())
}
