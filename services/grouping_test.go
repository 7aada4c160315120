package services

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurniadi/uw-tracker-backend/models"
)

func flatRow(code, underwriter string) models.BulkRecordInput {
	return models.BulkRecordInput{
		Code:        code,
		UW:          models.UnderwriterList{underwriter},
		CompanyName: "PT " + code,
		IPOPrice:    100,
	}
}

func TestGroupFlatRecordsMergesByCode(t *testing.T) {
	rows := []models.BulkRecordInput{
		flatRow("GOTO", "az"),
		flatRow("GOTO", "AZ"),
		flatRow("goto", "lg"),
		flatRow("BBCA", "cc"),
	}

	batch := GroupFlatRecords(rows)

	require.Len(t, batch.Groups, 2)

	gotoGroup := batch.Groups[0]
	assert.Equal(t, "GOTO", gotoGroup.Code)
	assert.Equal(t, models.UnderwriterList{"AZ", "LG"}, gotoGroup.Underwriters)
	assert.Equal(t, []int{0, 1, 2}, gotoGroup.RowIndexes)
	assert.Equal(t, "PT GOTO", gotoGroup.Template.CompanyName)

	bbca := batch.Groups[1]
	assert.Equal(t, "BBCA", bbca.Code)
	assert.Equal(t, models.UnderwriterList{"CC"}, bbca.Underwriters)
}

func TestGroupFlatRecordsFirstSeenWins(t *testing.T) {
	first := flatRow("GOTO", "AZ")
	first.IPOPrice = 338

	second := flatRow("GOTO", "LG")
	second.IPOPrice = 999
	second.CompanyName = "different name"

	batch := GroupFlatRecords([]models.BulkRecordInput{first, second})

	require.Len(t, batch.Groups, 1)
	assert.Equal(t, 338.0, batch.Groups[0].Template.IPOPrice)
	assert.Equal(t, "PT GOTO", batch.Groups[0].Template.CompanyName)
}

func TestGroupFlatRecordsSkipsBlankCodes(t *testing.T) {
	rows := []models.BulkRecordInput{
		flatRow("", "AZ"),
		flatRow("   ", "LG"),
		flatRow("BBCA", "CC"),
	}

	batch := GroupFlatRecords(rows)

	require.Len(t, batch.Groups, 1)
	assert.Equal(t, "BBCA", batch.Groups[0].Code)
	assert.Equal(t, []int{2}, batch.Groups[0].RowIndexes)
}

func TestGroupFlatRecordsAcceptsGroupedShape(t *testing.T) {
	rows := []models.BulkRecordInput{
		{Code: "GOTO", Underwriters: models.UnderwriterList{"az", "lg"}},
		{Code: "GOTO", UW: models.UnderwriterList{"cc"}},
	}

	batch := GroupFlatRecords(rows)

	require.Len(t, batch.Groups, 1)
	assert.Equal(t, models.UnderwriterList{"AZ", "CC", "LG"}, batch.Groups[0].Underwriters)
}

func TestGroupFlatRecordsEmptyBatch(t *testing.T) {
	batch := GroupFlatRecords(nil)
	assert.Empty(t, batch.Groups)
}

func TestGroupFlatRecordsProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	rowGen := gen.SliceOf(gopter.CombineGens(
		gen.RegexMatch(`[a-zA-Z]{2,6}`),
		gen.RegexMatch(`[a-zA-Z]{1,4}`),
	).Map(func(values []interface{}) models.BulkRecordInput {
		return flatRow(values[0].(string), values[1].(string))
	}))

	properties.Property("every input row lands in exactly one group", prop.ForAll(
		func(rows []models.BulkRecordInput) bool {
			batch := GroupFlatRecords(rows)
			seen := make(map[int]bool)
			for _, group := range batch.Groups {
				for _, index := range group.RowIndexes {
					if seen[index] {
						return false
					}
					seen[index] = true
				}
			}
			return len(seen) == len(rows)
		},
		rowGen,
	))

	properties.Property("group codes are unique and upper cased", prop.ForAll(
		func(rows []models.BulkRecordInput) bool {
			batch := GroupFlatRecords(rows)
			codes := make(map[string]bool)
			for _, group := range batch.Groups {
				if group.Code != strings.ToUpper(group.Code) {
					return false
				}
				if codes[group.Code] {
					return false
				}
				codes[group.Code] = true
			}
			return true
		},
		rowGen,
	))

	properties.Property("grouping is insensitive to row order", prop.ForAll(
		func(rows []models.BulkRecordInput) bool {
			reversed := make([]models.BulkRecordInput, len(rows))
			for i, row := range rows {
				reversed[len(rows)-1-i] = row
			}

			forward := GroupFlatRecords(rows)
			backward := GroupFlatRecords(reversed)

			if len(forward.Groups) != len(backward.Groups) {
				return false
			}

			underwritersByCode := make(map[string]models.UnderwriterList)
			for _, group := range forward.Groups {
				underwritersByCode[group.Code] = group.Underwriters
			}
			for _, group := range backward.Groups {
				expected, exists := underwritersByCode[group.Code]
				if !exists || len(expected) != len(group.Underwriters) {
					return false
				}
				for i := range expected {
					if expected[i] != group.Underwriters[i] {
						return false
					}
				}
			}
			return true
		},
		rowGen,
	))

	properties.TestingRun(t)
}
