package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func stageNames(pipeline mongo.Pipeline) []string {
	names := make([]string, 0, len(pipeline))
	for _, stage := range pipeline {
		names = append(names, stage[0].Key)
	}
	return names
}

func indexOf(names []string, name string) int {
	for i, candidate := range names {
		if candidate == name {
			return i
		}
	}
	return -1
}

func TestListPipelineAppliesSearchAfterGrouping(t *testing.T) {
	pipeline := listPipeline("cc", 100, 0)
	names := stageNames(pipeline)

	groupIndex := indexOf(names, "$group")
	matchIndex := indexOf(names, "$match")

	require.GreaterOrEqual(t, groupIndex, 0)
	require.GreaterOrEqual(t, matchIndex, 0)

	// a match before the group would lose multi-underwriter stocks whose
	// searched underwriter is not on the representative row
	assert.Greater(t, matchIndex, groupIndex)
}

func TestListPipelineWithoutSearchHasNoMatch(t *testing.T) {
	pipeline := listPipeline("", 100, 0)
	names := stageNames(pipeline)

	assert.Equal(t, -1, indexOf(names, "$match"))
	assert.Equal(t, []string{"$addFields", "$unwind", "$group", "$addFields", "$unset", "$sort", "$skip", "$limit"}, names)
}

func TestGroupedViewRestoresDocumentID(t *testing.T) {
	stages := groupedViewStages()
	names := stageNames(stages)

	groupIndex := indexOf(names, "$group")
	require.GreaterOrEqual(t, groupIndex, 0)

	// the group keeps the first source document id under a scratch field
	group := stages[groupIndex][0].Value.(bson.D)
	var docID interface{}
	for _, field := range group {
		if field.Key == "docId" {
			docID = field.Value
		}
	}
	require.NotNil(t, docID, "group stage must accumulate the source _id")
	assert.Equal(t, bson.D{{Key: "$first", Value: "$_id"}}, docID)

	// and a later stage moves it back into _id, replacing the group key
	restored := false
	for _, stage := range stages[groupIndex+1:] {
		if stage[0].Key != "$addFields" {
			continue
		}
		for _, field := range stage[0].Value.(bson.D) {
			if field.Key == "_id" && field.Value == "$docId" {
				restored = true
			}
		}
	}
	assert.True(t, restored, "grouped view must restore the stored _id")

	assert.Equal(t, "$unset", names[len(names)-1])
}

func TestListPipelineSearchTokenIsCaseFolded(t *testing.T) {
	pipeline := listPipeline("  cc ", 100, 0)

	matchStage := pipeline[indexOf(stageNames(pipeline), "$match")]
	match := matchStage[0].Value.(bson.D)
	membership := match[0].Value.(bson.D)

	assert.Equal(t, "underwriters", match[0].Key)
	assert.Equal(t, bson.A{"CC"}, membership[0].Value)
}

func TestListPipelineSortsNewestFirstThenPaginates(t *testing.T) {
	pipeline := listPipeline("", 25, 50)
	names := stageNames(pipeline)

	sortIndex := indexOf(names, "$sort")
	require.GreaterOrEqual(t, sortIndex, 0)

	sortDoc := pipeline[sortIndex][0].Value.(bson.D)
	assert.Equal(t, "listingDate", sortDoc[0].Key)
	assert.Equal(t, -1, sortDoc[0].Value)

	skipIndex := indexOf(names, "$skip")
	limitIndex := indexOf(names, "$limit")
	require.Greater(t, skipIndex, sortIndex)
	require.Greater(t, limitIndex, skipIndex)
	assert.Equal(t, int64(50), pipeline[skipIndex][0].Value)
	assert.Equal(t, int64(25), pipeline[limitIndex][0].Value)
}

func TestCountPipelineMirrorsListFilter(t *testing.T) {
	filtered := countPipeline("cc")
	names := stageNames(filtered)

	assert.Greater(t, indexOf(names, "$match"), indexOf(names, "$group"))
	assert.Equal(t, "$count", names[len(names)-1])

	unfiltered := countPipeline("")
	assert.Equal(t, -1, indexOf(stageNames(unfiltered), "$match"))
}

func TestGroupedViewStagesPreserveUnderwriterlessRows(t *testing.T) {
	stages := groupedViewStages()

	unwind := stages[1][0].Value.(bson.D)
	preserve := false
	for _, field := range unwind {
		if field.Key == "preserveNullAndEmptyArrays" {
			preserve = field.Value.(bool)
		}
	}
	assert.True(t, preserve)
}

func TestUnderwriterCountPipelineFlattensBeforeCounting(t *testing.T) {
	names := stageNames(underwriterCountPipeline())

	// the second unwind flattens per-stock sets so firms are distinct-counted
	first := indexOf(names, "$unwind")
	require.GreaterOrEqual(t, first, 0)
	assert.NotEqual(t, -1, indexOf(names[first+1:], "$unwind"))
	assert.Equal(t, "$count", names[len(names)-1])
}
