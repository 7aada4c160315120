package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseFlexTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{name: "rfc3339", input: "2024-07-08T09:00:00Z", expected: time.Date(2024, 7, 8, 9, 0, 0, 0, time.UTC)},
		{name: "naive datetime", input: "2024-07-08T09:00:00", expected: time.Date(2024, 7, 8, 9, 0, 0, 0, time.UTC)},
		{name: "bare date", input: "2024-07-08", expected: time.Date(2024, 7, 8, 0, 0, 0, 0, time.UTC)},
		{name: "day first", input: "08/07/2024", expected: time.Date(2024, 7, 8, 0, 0, 0, 0, time.UTC)},
		{name: "garbage", input: "next tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseFlexTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, parsed.Equal(tt.expected), "got %v want %v", parsed.Time, tt.expected)
		})
	}
}

func TestFlexTimeJSONRoundTrip(t *testing.T) {
	var parsed struct {
		ListingDate FlexTime `json:"listingDate"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"listingDate":"2024-07-08"}`), &parsed))
	assert.Equal(t, 2024, parsed.ListingDate.Year())

	encoded, err := json.Marshal(FlexTime{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(encoded))
}

func TestBulkRecordInputUnderwriterTokens(t *testing.T) {
	flat := BulkRecordInput{UW: UnderwriterList{"CC"}}
	assert.Equal(t, UnderwriterList{"CC"}, flat.UnderwriterTokens())

	grouped := BulkRecordInput{Underwriters: UnderwriterList{"AZ", "LG"}}
	assert.Equal(t, UnderwriterList{"AZ", "LG"}, grouped.UnderwriterTokens())

	// grouped field wins when a row carries both shapes
	both := BulkRecordInput{UW: UnderwriterList{"CC"}, Underwriters: UnderwriterList{"AZ"}}
	assert.Equal(t, UnderwriterList{"AZ"}, both.UnderwriterTokens())

	empty := BulkRecordInput{}
	assert.Empty(t, empty.UnderwriterTokens())
}

func TestDocumentIDDecodesBothForms(t *testing.T) {
	objectID := primitive.NewObjectID()

	t.Run("native object id", func(t *testing.T) {
		valueType, data, err := bson.MarshalValue(objectID)
		require.NoError(t, err)

		var id DocumentID
		require.NoError(t, id.UnmarshalBSONValue(valueType, data))
		assert.Equal(t, DocumentID(objectID.Hex()), id)
	})

	t.Run("token string", func(t *testing.T) {
		valueType, data, err := bson.MarshalValue("1a2b3c4d-0000-4000-8000-1234567890ab")
		require.NoError(t, err)

		var id DocumentID
		require.NoError(t, id.UnmarshalBSONValue(valueType, data))
		assert.Equal(t, DocumentID("1a2b3c4d-0000-4000-8000-1234567890ab"), id)
	})

	t.Run("unsupported type", func(t *testing.T) {
		valueType, data, err := bson.MarshalValue(int32(7))
		require.NoError(t, err)

		var id DocumentID
		assert.Error(t, id.UnmarshalBSONValue(valueType, data))
	})
}

func TestUnderwriterListDecodesBothBSONShapes(t *testing.T) {
	t.Run("scalar uw field", func(t *testing.T) {
		valueType, data, err := bson.MarshalValue("CC")
		require.NoError(t, err)

		var list UnderwriterList
		require.NoError(t, list.UnmarshalBSONValue(valueType, data))
		assert.Equal(t, UnderwriterList{"CC"}, list)
	})

	t.Run("array field drops non strings", func(t *testing.T) {
		valueType, data, err := bson.MarshalValue(bson.A{"AZ", int32(7), nil, "LG"})
		require.NoError(t, err)

		var list UnderwriterList
		require.NoError(t, list.UnmarshalBSONValue(valueType, data))
		assert.Equal(t, UnderwriterList{"AZ", "LG"}, list)
	})
}

func TestListingBoardValid(t *testing.T) {
	assert.True(t, BoardUtama.Valid())
	assert.True(t, BoardPengembangan.Valid())
	assert.True(t, BoardAkselerasi.Valid())
	assert.False(t, ListingBoard("Nasdaq").Valid())
	assert.False(t, ListingBoard("").Valid())
}

func TestStockRecordUpdateIsEmpty(t *testing.T) {
	assert.True(t, (&StockRecordUpdate{}).IsEmpty())

	name := "Updated"
	assert.False(t, (&StockRecordUpdate{CompanyName: &name}).IsEmpty())
}
