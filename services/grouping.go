package services

import (
	"strings"

	"github.com/kurniadi/uw-tracker-backend/models"
)

// GroupedBatch is the ingest-time materialization of a flat batch: one entry
// per distinct stock code, in first-seen order.
type GroupedBatch struct {
	Groups []GroupedInput
}

// GroupedInput is one materialized group: the merged underwriter set plus the
// representative row the scalar fields are taken from, and the indexes of
// every contributing input row.
type GroupedInput struct {
	Code         string
	Underwriters models.UnderwriterList
	Template     models.BulkRecordInput
	RowIndexes   []int
}

// GroupFlatRecords collapses flat rows into one group per stock code.
// Underwriters accumulate as the normalized union across contributing rows;
// scalar fields come from the first row seen for the code. Codes are
// case-folded so "goto" and "GOTO" land in the same group. Rows without a
// code are skipped here; validation rejects them upstream.
func GroupFlatRecords(rows []models.BulkRecordInput) GroupedBatch {
	var order []string
	groups := make(map[string]*GroupedInput)

	for index, row := range rows {
		code := strings.ToUpper(strings.TrimSpace(row.Code))
		if code == "" {
			continue
		}

		group, exists := groups[code]
		if !exists {
			group = &GroupedInput{Code: code, Template: row}
			groups[code] = group
			order = append(order, code)
		}

		group.Underwriters = append(group.Underwriters, row.UnderwriterTokens()...)
		group.RowIndexes = append(group.RowIndexes, index)
	}

	batch := GroupedBatch{Groups: make([]GroupedInput, 0, len(order))}
	for _, code := range order {
		group := groups[code]
		group.Underwriters = group.Underwriters.Normalized()
		batch.Groups = append(batch.Groups, *group)
	}
	return batch
}
