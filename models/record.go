package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ListingBoard is the IDX board an IPO listed on.
type ListingBoard string

const (
	BoardUtama        ListingBoard = "Utama"
	BoardPengembangan ListingBoard = "Pengembangan"
	BoardAkselerasi   ListingBoard = "Akselerasi"
)

// Valid reports whether the board is one of the known IDX boards.
func (b ListingBoard) Valid() bool {
	switch b {
	case BoardUtama, BoardPengembangan, BoardAkselerasi:
		return true
	}
	return false
}

// DocumentID is a record handle as stored. Documents created through the bulk
// pipeline carry a store-native ObjectID while directly created ones carry a
// generated token, so decoding accepts both and renders a plain string.
type DocumentID string

// UnmarshalBSONValue decodes either identifier form into its string rendering.
func (id *DocumentID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bson.TypeObjectID:
		*id = DocumentID(raw.ObjectID().Hex())
		return nil
	case bson.TypeString:
		*id = DocumentID(raw.StringValue())
		return nil
	default:
		return fmt.Errorf("unsupported _id BSON type %s", t)
	}
}

// StockRecord is the canonical grouped record: one document per stock code
// with the full, deduplicated underwriter set.
type StockRecord struct {
	ID           DocumentID      `json:"_id" bson:"_id"`
	Underwriters UnderwriterList `json:"underwriters" bson:"underwriters"`
	Code         string          `json:"code" bson:"code"`
	CompanyName  string          `json:"companyName" bson:"companyName"`
	IPOPrice     float64         `json:"ipoPrice" bson:"ipoPrice"`
	ReturnD1     *float64        `json:"returnD1" bson:"returnD1,omitempty"`
	ReturnD2     *float64        `json:"returnD2" bson:"returnD2,omitempty"`
	ReturnD3     *float64        `json:"returnD3" bson:"returnD3,omitempty"`
	ReturnD4     *float64        `json:"returnD4" bson:"returnD4,omitempty"`
	ReturnD5     *float64        `json:"returnD5" bson:"returnD5,omitempty"`
	ReturnD6     *float64        `json:"returnD6" bson:"returnD6,omitempty"`
	ReturnD7     *float64        `json:"returnD7" bson:"returnD7,omitempty"`
	ListingBoard ListingBoard    `json:"listingBoard" bson:"listingBoard,omitempty"`
	ListingDate  time.Time       `json:"listingDate" bson:"listingDate"`
	Record       *string         `json:"record" bson:"record,omitempty"`
	CreatedAt    time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// StockRecordCreate is the input for a direct create. Underwriters are
// re-normalized by the service before the record is stored.
type StockRecordCreate struct {
	Underwriters UnderwriterList `json:"underwriters" validate:"required,min=1,dive,required"`
	Code         string          `json:"code" validate:"required,alphanum,max=10"`
	CompanyName  string          `json:"companyName" validate:"required"`
	IPOPrice     float64         `json:"ipoPrice" validate:"required,gt=0"`
	ReturnD1     *float64        `json:"returnD1"`
	ReturnD2     *float64        `json:"returnD2"`
	ReturnD3     *float64        `json:"returnD3"`
	ReturnD4     *float64        `json:"returnD4"`
	ReturnD5     *float64        `json:"returnD5"`
	ReturnD6     *float64        `json:"returnD6"`
	ReturnD7     *float64        `json:"returnD7"`
	ListingBoard ListingBoard    `json:"listingBoard" validate:"required,oneof=Utama Pengembangan Akselerasi"`
	ListingDate  FlexTime        `json:"listingDate" validate:"required"`
	Record       *string         `json:"record"`
}

// StockRecordUpdate is a partial update; nil fields are left untouched.
type StockRecordUpdate struct {
	Underwriters *UnderwriterList `json:"underwriters"`
	Code         *string          `json:"code"`
	CompanyName  *string          `json:"companyName"`
	IPOPrice     *float64         `json:"ipoPrice" validate:"omitempty,gt=0"`
	ReturnD1     *float64         `json:"returnD1"`
	ReturnD2     *float64         `json:"returnD2"`
	ReturnD3     *float64         `json:"returnD3"`
	ReturnD4     *float64         `json:"returnD4"`
	ReturnD5     *float64         `json:"returnD5"`
	ReturnD6     *float64         `json:"returnD6"`
	ReturnD7     *float64         `json:"returnD7"`
	ListingBoard *ListingBoard    `json:"listingBoard" validate:"omitempty,oneof=Utama Pengembangan Akselerasi"`
	ListingDate  *FlexTime        `json:"listingDate"`
	Record       *string          `json:"record"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u *StockRecordUpdate) IsEmpty() bool {
	return u.Underwriters == nil && u.Code == nil && u.CompanyName == nil &&
		u.IPOPrice == nil && u.ReturnD1 == nil && u.ReturnD2 == nil &&
		u.ReturnD3 == nil && u.ReturnD4 == nil && u.ReturnD5 == nil &&
		u.ReturnD6 == nil && u.ReturnD7 == nil && u.ListingBoard == nil &&
		u.ListingDate == nil && u.Record == nil
}

// BulkRecordInput is one row of a bulk upload. It accepts both the legacy
// flat shape (scalar "uw" field, one row per underwriter) and the grouped
// shape ("underwriters" array).
type BulkRecordInput struct {
	UW           UnderwriterList `json:"uw"`
	Underwriters UnderwriterList `json:"underwriters"`
	Code         string          `json:"code"`
	CompanyName  string          `json:"companyName"`
	IPOPrice     float64         `json:"ipoPrice"`
	ReturnD1     *float64        `json:"returnD1"`
	ReturnD2     *float64        `json:"returnD2"`
	ReturnD3     *float64        `json:"returnD3"`
	ReturnD4     *float64        `json:"returnD4"`
	ReturnD5     *float64        `json:"returnD5"`
	ReturnD6     *float64        `json:"returnD6"`
	ReturnD7     *float64        `json:"returnD7"`
	ListingBoard ListingBoard    `json:"listingBoard"`
	ListingDate  FlexTime        `json:"listingDate"`
	Record       *string         `json:"record"`
}

// UnderwriterTokens returns the row's underwriter dimension regardless of
// which field the source used. The grouped-shape field wins when both are set.
func (r *BulkRecordInput) UnderwriterTokens() UnderwriterList {
	if len(r.Underwriters) > 0 {
		return r.Underwriters
	}
	return r.UW
}

// RecordListResponse is the list/search contract: the page of records, the
// page size actually returned, and the total size of the filtered set.
type RecordListResponse struct {
	Data  []StockRecord `json:"data"`
	Total int64         `json:"total"`
	Count int           `json:"count"`
}

// StatsResponse reports cross-cutting counts over the grouped view.
type StatsResponse struct {
	TotalRecords   int64      `json:"totalRecords"`
	TotalUW        int64      `json:"totalUW"`
	TotalCompanies int64      `json:"totalCompanies"`
	LastUpdated    *time.Time `json:"lastUpdated"`
}

// BulkUploadRequest wraps the batch of rows to ingest.
type BulkUploadRequest struct {
	Data []BulkRecordInput `json:"data"`
}

// BulkUploadResponse reports the non-atomic outcome of a bulk upload.
type BulkUploadResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// FlexTime is a timestamp that decodes from RFC3339 as well as the bare date
// forms spreadsheet exports tend to carry.
type FlexTime struct {
	time.Time
}

var flexTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseFlexTime parses a timestamp string in any of the accepted layouts.
func ParseFlexTime(value string) (FlexTime, error) {
	for _, layout := range flexTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return FlexTime{Time: parsed.UTC()}, nil
		}
	}
	return FlexTime{}, fmt.Errorf("unrecognized date format: %q", value)
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("listing date must be a string: %w", err)
	}
	if value == "" {
		*t = FlexTime{}
		return nil
	}
	parsed, err := ParseFlexTime(value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
