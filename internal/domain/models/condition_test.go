package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	cases := []struct {
		input string
		want  Condition
	}{
		{"good", ConditionGood},
		{"Good", ConditionGood},
		{"GOOD", ConditionGood},
		{"Like New", ConditionLikeNew},
		{"like_new", ConditionLikeNew},
		{"LIKE_NEW", ConditionLikeNew},
		{"  Acceptable  ", ConditionAcceptable},
		{"poor", ConditionPoor},
		{"New", ConditionNew},
	}

	for _, tc := range cases {
		got, err := ParseCondition(tc.input)
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestParseConditionRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "mint", "likenew", "very good"} {
		_, err := ParseCondition(input)
		require.ErrorIs(t, err, ErrUnknownCondition, "input %q", input)
	}
}

func TestConditionFromValueIsExact(t *testing.T) {
	got, err := ConditionFromValue("like_new")
	require.NoError(t, err)
	assert.Equal(t, ConditionLikeNew, got)

	// фасад не принимает подписи и другой регистр
	for _, input := range []string{"Like New", "LIKE_NEW", "Good"} {
		_, err := ConditionFromValue(input)
		require.ErrorIs(t, err, ErrUnknownCondition, "input %q", input)
	}
}

func TestConditionLabel(t *testing.T) {
	assert.Equal(t, "Like New", ConditionLikeNew.Label())
	assert.Equal(t, "New", ConditionNew.Label())
	assert.Equal(t, "weird", Condition("weird").Label())
}
