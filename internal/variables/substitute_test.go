package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteIdentityWithEmptyStoreAndNoPlaceholders(t *testing.T) {
	assert.Equal(t, "https://example.com/plain", Substitute("https://example.com/plain", nil))
}

func TestSubstituteReplacesKnownVariable(t *testing.T) {
	got := Substitute("hello ${name}!", map[string]string{"name": "alice"})
	assert.Equal(t, "hello alice!", got)
}

func TestSubstituteLeavesUnknownVariableIntact(t *testing.T) {
	got := Substitute("token=${missing}", map[string]string{"other": "x"})
	assert.Equal(t, "token=${missing}", got)
}

func TestSubstituteUnclosedPlaceholderEmittedVerbatim(t *testing.T) {
	got := Substitute("prefix ${partial_name", map[string]string{"partial_name": "x"})
	assert.Equal(t, "prefix ${partial_name", got)
}

func TestSubstituteBareDollarCopiedVerbatim(t *testing.T) {
	got := Substitute("cost: $5 not ${amount}", map[string]string{"amount": "10"})
	assert.Equal(t, "cost: $5 not 10", got)
}

func TestSubstituteMultipleVariables(t *testing.T) {
	got := Substitute("${a}-${b}-${a}", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, "1-2-1", got)
}

func TestSubstituteEmptyPlaceholderName(t *testing.T) {
	got := Substitute("x${}y", map[string]string{"": "Z"})
	assert.Equal(t, "xZy", got)
}

func TestStoreSnapshotPutAndPutAll(t *testing.T) {
	s := New(map[string]string{"a": "1"})

	snap := s.Snapshot()
	assert.Equal(t, map[string]string{"a": "1"}, snap)

	s.Put("b", "2")
	s.PutAll(map[string]string{"a": "overwritten", "c": "3"})

	got := s.Snapshot()
	assert.Equal(t, "overwritten", got["a"])
	assert.Equal(t, "2", got["b"])
	assert.Equal(t, "3", got["c"])

	// Mutating a prior snapshot must not affect the store.
	snap["a"] = "mutated"
	assert.Equal(t, "overwritten", s.Snapshot()["a"])
}
