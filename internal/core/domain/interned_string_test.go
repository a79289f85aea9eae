package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mk/internal/core/domain"
)

func TestInternedString(t *testing.T) {
	is1 := domain.NewInternedString("foo.o")
	is2 := domain.NewInternedString("foo.o")

	assert.Equal(t, is1, is2)
	assert.Equal(t, "foo.o", is1.String())
	assert.False(t, is1.IsZero())
}

func TestInternedString_Zero(t *testing.T) {
	var zero domain.InternedString

	assert.True(t, zero.IsZero())
	assert.Empty(t, zero.String())
}

func TestInternedString_JSON(t *testing.T) {
	original := domain.NewInternedString("libfoo.a(bar.o)")

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `"libfoo.a(bar.o)"`, string(data))

	var decoded domain.InternedString
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}
