package jsonnav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavigateObjectKey(t *testing.T) {
	result, ok := Navigate(`{"token":"abc"}`, "token")
	assert.True(t, ok)
	assert.Equal(t, "abc", result.Str)
}

func TestNavigateNestedArrayIndex(t *testing.T) {
	result, ok := Navigate(`{"items":[{"name":"a"},{"name":"b"}]}`, "items[1].name")
	assert.True(t, ok)
	assert.Equal(t, "b", result.Str)
}

func TestNavigateOutOfBoundsOnEmptyArrayIsNotFound(t *testing.T) {
	_, ok := Navigate(`{"items": []}`, "items[0]")
	assert.False(t, ok)
}

func TestNavigateMissingKeyIsNotFound(t *testing.T) {
	_, ok := Navigate(`{"a":1}`, "b")
	assert.False(t, ok)
}

func TestNavigateMalformedJSONIsNotFound(t *testing.T) {
	_, ok := Navigate(`not json`, "a")
	assert.False(t, ok)
}

func TestNavigateMalformedIndexIsNotFound(t *testing.T) {
	_, ok := Navigate(`{"items":[1,2,3]}`, "items[oops]")
	assert.False(t, ok)
}

func TestValueToStringVariants(t *testing.T) {
	cases := []struct {
		body string
		path string
		want string
	}{
		{`{"v":"hi"}`, "v", "hi"},
		{`{"v":null}`, "v", "null"},
		{`{"v":42}`, "v", "42"},
		{`{"v":true}`, "v", "true"},
		{`{"v":[1,2]}`, "v", "[1,2]"},
	}
	for _, tc := range cases {
		result, ok := Navigate(tc.body, tc.path)
		assert.True(t, ok, tc.path)
		assert.Equal(t, tc.want, ValueToString(result))
	}
}
