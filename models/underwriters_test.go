package models

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnderwriterListUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected UnderwriterList
		wantErr  bool
	}{
		{name: "scalar string", input: `"CC"`, expected: UnderwriterList{"CC"}},
		{name: "array of strings", input: `["AZ","LG"]`, expected: UnderwriterList{"AZ", "LG"}},
		{name: "empty array", input: `[]`, expected: UnderwriterList{}},
		{name: "null", input: `null`, expected: nil},
		{name: "number rejected", input: `42`, wantErr: true},
		{name: "mixed array rejected", input: `["AZ", 7]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list UnderwriterList
			err := json.Unmarshal([]byte(tt.input), &list)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, list)
		})
	}
}

func TestUnderwriterListNormalized(t *testing.T) {
	list := UnderwriterList{"az", "AZ", "lg", " lg ", ""}
	assert.Equal(t, UnderwriterList{"AZ", "LG"}, list.Normalized())

	assert.Empty(t, UnderwriterList(nil).Normalized())
	assert.Empty(t, UnderwriterList{"", "  "}.Normalized())
}

func TestUnderwriterListContains(t *testing.T) {
	list := UnderwriterList{"AZ", "lg"}

	assert.True(t, list.Contains("az"))
	assert.True(t, list.Contains(" LG "))
	assert.False(t, list.Contains("CC"))
}

func TestNormalizedProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	tokenGen := gen.SliceOf(gen.RegexMatch(`[ a-zA-Z0-9]{0,8}`))

	properties.Property("normalization is idempotent", prop.ForAll(
		func(tokens []string) bool {
			once := UnderwriterList(tokens).Normalized()
			twice := once.Normalized()
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		tokenGen,
	))

	properties.Property("normalized lists are sorted and duplicate free", prop.ForAll(
		func(tokens []string) bool {
			normalized := UnderwriterList(tokens).Normalized()
			if !sort.StringsAreSorted(normalized) {
				return false
			}
			seen := make(map[string]bool)
			for _, token := range normalized {
				if seen[token] {
					return false
				}
				seen[token] = true
			}
			return true
		},
		tokenGen,
	))

	properties.Property("case never affects membership", prop.ForAll(
		func(tokens []string) bool {
			normalized := UnderwriterList(tokens).Normalized()
			for _, token := range tokens {
				trimmed := UnderwriterList{token}.Normalized()
				if len(trimmed) == 0 {
					continue
				}
				if !normalized.Contains(token) {
					return false
				}
			}
			return true
		},
		tokenGen,
	))

	properties.TestingRun(t)
}
