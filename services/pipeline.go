package services

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// The grouped view is computed at query time so the engine stays correct even
// when legacy flat rows (scalar "uw" field, several rows per code) sit in the
// collection alongside grouped documents.
//
// Stage order matters: the search token must be matched AFTER grouping. A
// pre-group match would drop a multi-underwriter stock whenever the searched
// underwriter is not on its representative row.

// groupedViewStages normalizes the underwriter shape, unwinds one token at a
// time and regroups by stock code with the full underwriter set.
func groupedViewStages() mongo.Pipeline {
	normalizeStage := bson.D{{Key: "$addFields", Value: bson.D{
		{Key: "uwToken", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$isArray", Value: "$underwriters"}},
			"$underwriters",
			bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$ne", Value: bson.A{"$uw", nil}}},
				bson.A{"$uw"},
				bson.A{},
			}}},
		}}}},
	}}}

	unwindStage := bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: "$uwToken"},
		// keep codes whose rows carry no underwriter at all
		{Key: "preserveNullAndEmptyArrays", Value: true},
	}}}

	groupStage := bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$code"},
		{Key: "docId", Value: bson.D{{Key: "$first", Value: "$_id"}}},
		{Key: "underwriters", Value: bson.D{{Key: "$addToSet", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$ne", Value: bson.A{"$uwToken", nil}}},
			bson.D{{Key: "$toUpper", Value: bson.D{{Key: "$toString", Value: "$uwToken"}}}},
			"$$REMOVE",
		}}}}}},
		{Key: "code", Value: bson.D{{Key: "$first", Value: "$code"}}},
		{Key: "companyName", Value: bson.D{{Key: "$first", Value: "$companyName"}}},
		{Key: "ipoPrice", Value: bson.D{{Key: "$first", Value: "$ipoPrice"}}},
		{Key: "returnD1", Value: bson.D{{Key: "$first", Value: "$returnD1"}}},
		{Key: "returnD2", Value: bson.D{{Key: "$first", Value: "$returnD2"}}},
		{Key: "returnD3", Value: bson.D{{Key: "$first", Value: "$returnD3"}}},
		{Key: "returnD4", Value: bson.D{{Key: "$first", Value: "$returnD4"}}},
		{Key: "returnD5", Value: bson.D{{Key: "$first", Value: "$returnD5"}}},
		{Key: "returnD6", Value: bson.D{{Key: "$first", Value: "$returnD6"}}},
		{Key: "returnD7", Value: bson.D{{Key: "$first", Value: "$returnD7"}}},
		{Key: "listingBoard", Value: bson.D{{Key: "$first", Value: "$listingBoard"}}},
		{Key: "listingDate", Value: bson.D{{Key: "$first", Value: "$listingDate"}}},
		{Key: "record", Value: bson.D{{Key: "$first", Value: "$record"}}},
		{Key: "createdAt", Value: bson.D{{Key: "$first", Value: "$createdAt"}}},
		{Key: "updatedAt", Value: bson.D{{Key: "$max", Value: "$updatedAt"}}},
	}}}

	// grouping replaces _id with the code; put the stored handle back so
	// every record returned by a list remains addressable for get/update/delete
	restoreIDStage := bson.D{{Key: "$addFields", Value: bson.D{
		{Key: "_id", Value: "$docId"},
	}}}
	dropStage := bson.D{{Key: "$unset", Value: "docId"}}

	return mongo.Pipeline{normalizeStage, unwindStage, groupStage, restoreIDStage, dropStage}
}

// searchStages returns the post-group membership match for a search token, or
// nothing when the query is empty. Search applies to the underwriter
// dimension only; stock-code and company-name queries intentionally miss.
func searchStages(search string) mongo.Pipeline {
	token := strings.ToUpper(strings.TrimSpace(search))
	if token == "" {
		return nil
	}
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "underwriters", Value: bson.D{{Key: "$in", Value: bson.A{token}}}},
		}}},
	}
}

// listPipeline builds the full list/search pipeline: grouped view, optional
// post-group filter, newest listings first, then pagination.
func listPipeline(search string, limit, offset int64) mongo.Pipeline {
	pipeline := groupedViewStages()
	pipeline = append(pipeline, searchStages(search)...)
	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "listingDate", Value: -1}}}},
		bson.D{{Key: "$skip", Value: offset}},
		bson.D{{Key: "$limit", Value: limit}},
	)
	return pipeline
}

// countPipeline counts the filtered grouped set, ignoring pagination, so the
// reported total always matches the filter the page was produced with.
func countPipeline(search string) mongo.Pipeline {
	pipeline := groupedViewStages()
	pipeline = append(pipeline, searchStages(search)...)
	pipeline = append(pipeline, bson.D{{Key: "$count", Value: "total"}})
	return pipeline
}

// stockCountPipeline counts distinct stock codes.
func stockCountPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$code"}}}},
		bson.D{{Key: "$count", Value: "total"}},
	}
}

// underwriterCountPipeline counts distinct underwriter tokens across the
// grouped view. Flattening the per-stock sets before the distinct count is
// what keeps a firm that underwrote ten IPOs from being counted ten times.
func underwriterCountPipeline() mongo.Pipeline {
	pipeline := groupedViewStages()
	pipeline = append(pipeline,
		bson.D{{Key: "$unwind", Value: "$underwriters"}},
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$underwriters"}}}},
		bson.D{{Key: "$count", Value: "total"}},
	)
	return pipeline
}
