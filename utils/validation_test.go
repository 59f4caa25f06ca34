package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `validate:"required"`
	Inner struct {
		Mode string `validate:"oneof=json text"`
	}
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := sample{Name: "x"}
		s.Inner.Mode = "json"
		assert.NoError(t, ValidateStruct(s))
	})

	t.Run("collects nested fields", func(t *testing.T) {
		s := sample{}
		s.Inner.Mode = "xml"

		err := ValidateStruct(s)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "Name is required", fields["Name"])
		assert.Equal(t, "Inner.Mode must be one of: json text", fields["Inner.Mode"])
		assert.Contains(t, err.Error(), "Name is required")
	})
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, ValidateVar(10, "limit", "min=1,max=500"))

	err := ValidateVar(0, "limit", "min=1,max=500")
	require.Error(t, err)
	assert.Equal(t, "limit must be at least 1", GetValidationFields(err)["limit"])
}

func TestIsValidationError(t *testing.T) {
	assert.False(t, IsValidationError(errors.New("plain")))
	assert.Nil(t, GetValidationFields(errors.New("plain")))
}
