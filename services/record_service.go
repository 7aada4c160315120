package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kurniadi/uw-tracker-backend/database"
	"github.com/kurniadi/uw-tracker-backend/models"
	"github.com/kurniadi/uw-tracker-backend/shared"
)

// RecordService is the record-grouping and aggregation engine. It owns the
// grouped stock-record collection: list/search over the grouped view, direct
// CRUD mediated by the identifier resolver, the bulk ingest pipeline and the
// cross-cutting statistics.
type RecordService struct {
	collection     *mongo.Collection
	validate       *validator.Validate
	metrics        *shared.OperationMetrics
	bulkErrorLimit int
}

// DefaultBulkErrorLimit bounds the error list in a bulk upload report.
const DefaultBulkErrorLimit = 25

// NewRecordService creates the engine bound to its store handle.
func NewRecordService(store *database.Store, metrics *shared.OperationMetrics, bulkErrorLimit int) *RecordService {
	if bulkErrorLimit <= 0 {
		bulkErrorLimit = DefaultBulkErrorLimit
	}
	return &RecordService{
		collection:     store.DB.Collection(database.RecordCollection),
		validate:       validator.New(),
		metrics:        metrics,
		bulkErrorLimit: bulkErrorLimit,
	}
}

// List returns a page of the grouped view, optionally filtered by an
// underwriter token. The filter is applied after grouping so a stock is found
// through any of its underwriters, not just the representative row. An empty
// or whitespace query means no filter.
func (s *RecordService) List(ctx context.Context, search string, limit, offset int64) (result *models.RecordListResponse, err error) {
	defer s.record("list", time.Now(), &err)

	cursor, err := s.collection.Aggregate(ctx, listPipeline(search, limit, offset))
	if err != nil {
		return nil, shared.NewStoreError("list", err)
	}
	defer cursor.Close(ctx)

	records := make([]models.StockRecord, 0, limit)
	for cursor.Next(ctx) {
		var record models.StockRecord
		if err := cursor.Decode(&record); err != nil {
			logrus.WithError(err).Warn("Skipping undecodable record in grouped view")
			continue
		}
		// grouping alone guarantees neither order nor case-collapse
		record.Underwriters = record.Underwriters.Normalized()
		records = append(records, record)
	}
	if err := cursor.Err(); err != nil {
		return nil, shared.NewStoreError("list", err)
	}

	total, err := s.countGrouped(ctx, search)
	if err != nil {
		return nil, err
	}

	return &models.RecordListResponse{
		Data:  records,
		Total: total,
		Count: len(records),
	}, nil
}

func (s *RecordService) countGrouped(ctx context.Context, search string) (int64, error) {
	cursor, err := s.collection.Aggregate(ctx, countPipeline(search))
	if err != nil {
		return 0, shared.NewStoreError("count", err)
	}
	defer cursor.Close(ctx)

	var counts []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &counts); err != nil {
		return 0, shared.NewStoreError("count", err)
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0].Total, nil
}

// Create inserts a new grouped record under a generated token identifier.
// A duplicate stock code is a conflict, not a merge.
func (s *RecordService) Create(ctx context.Context, input *models.StockRecordCreate) (rec *models.StockRecord, err error) {
	defer s.record("create", time.Now(), &err)

	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := models.StockRecord{
		ID:           models.DocumentID(uuid.NewString()),
		Underwriters: input.Underwriters.Normalized(),
		Code:         strings.ToUpper(strings.TrimSpace(input.Code)),
		CompanyName:  strings.TrimSpace(input.CompanyName),
		IPOPrice:     input.IPOPrice,
		ReturnD1:     input.ReturnD1,
		ReturnD2:     input.ReturnD2,
		ReturnD3:     input.ReturnD3,
		ReturnD4:     input.ReturnD4,
		ReturnD5:     input.ReturnD5,
		ReturnD6:     input.ReturnD6,
		ReturnD7:     input.ReturnD7,
		ListingBoard: input.ListingBoard,
		ListingDate:  input.ListingDate.Time,
		Record:       input.Record,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.collection.InsertOne(ctx, toDocument(&record)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, shared.NewConflictError("create", fmt.Sprintf("record with code %s already exists", record.Code))
		}
		return nil, shared.NewStoreError("create", err)
	}

	logrus.WithFields(logrus.Fields{
		"code":         record.Code,
		"underwriters": len(record.Underwriters),
	}).Info("Created new record")
	return &record, nil
}

// GetByID fetches one record through the identifier resolver. Both generated
// token handles and store-native handles land here.
func (s *RecordService) GetByID(ctx context.Context, handle string) (rec *models.StockRecord, err error) {
	defer s.record("get", time.Now(), &err)

	key := ResolveRecordKey(handle)

	var record models.StockRecord
	if err := s.collection.FindOne(ctx, key.Filter()).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NewNotFoundError("get")
		}
		return nil, shared.NewStoreError("get", err)
	}

	record.Underwriters = record.Underwriters.Normalized()
	return &record, nil
}

// Update applies a partial update. An updated underwriter list is always
// re-normalized before it is stored.
func (s *RecordService) Update(ctx context.Context, handle string, update *models.StockRecordUpdate) (rec *models.StockRecord, err error) {
	defer s.record("update", time.Now(), &err)

	if update == nil || update.IsEmpty() {
		return nil, shared.NewValidationError("update", "no fields to update")
	}
	if err := s.validate.Struct(update); err != nil {
		return nil, shared.NewValidationError("update", validationMessage(err))
	}

	set, err := updateDocument(update)
	if err != nil {
		return nil, err
	}

	key := ResolveRecordKey(handle)
	after := options.After
	opts := options.FindOneAndUpdate().SetReturnDocument(after)

	var record models.StockRecord
	err = s.collection.FindOneAndUpdate(ctx, key.Filter(), bson.M{"$set": set}, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NewNotFoundError("update")
		}
		if mongo.IsDuplicateKeyError(err) {
			code, _ := set["code"].(string)
			return nil, shared.NewConflictError("update", fmt.Sprintf("record with code %s already exists", code))
		}
		return nil, shared.NewStoreError("update", err)
	}

	record.Underwriters = record.Underwriters.Normalized()
	logrus.WithField("record_id", key.String()).Info("Updated record")
	return &record, nil
}

// Delete removes one record through the identifier resolver.
func (s *RecordService) Delete(ctx context.Context, handle string) (err error) {
	defer s.record("delete", time.Now(), &err)

	key := ResolveRecordKey(handle)

	result, err := s.collection.DeleteOne(ctx, key.Filter())
	if err != nil {
		return shared.NewStoreError("delete", err)
	}
	if result.DeletedCount == 0 {
		return shared.NewNotFoundError("delete")
	}

	logrus.WithField("record_id", key.String()).Info("Deleted record")
	return nil
}

// BulkUpsert runs the ingest pipeline: per-row validation, eager grouping by
// stock code, then one idempotent upsert per group. The batch is not atomic;
// row failures are collected into the report, never thrown, and the error
// list is bounded.
func (s *RecordService) BulkUpsert(ctx context.Context, rows []models.BulkRecordInput) (report *models.BulkUploadResponse, err error) {
	defer s.record("bulk_upsert", time.Now(), &err)

	report = &models.BulkUploadResponse{Errors: []string{}}
	valid := make([]models.BulkRecordInput, 0, len(rows))

	for index, row := range rows {
		if rowErr := validateBulkRow(&row); rowErr != nil {
			report.Failed++
			s.appendBulkError(report, fmt.Sprintf("row %d (%s): %s", index, row.Code, rowErr.Error()))
			continue
		}
		valid = append(valid, row)
	}

	batch := GroupFlatRecords(valid)
	now := time.Now().UTC()

	for _, group := range batch.Groups {
		if upsertErr := s.upsertGroup(ctx, &group, now); upsertErr != nil {
			report.Failed += len(group.RowIndexes)
			s.appendBulkError(report, fmt.Sprintf("failed to upsert %s: %s", group.Code, upsertErr.Error()))
			continue
		}
		report.Success += len(group.RowIndexes)
	}

	logrus.WithFields(logrus.Fields{
		"success": report.Success,
		"failed":  report.Failed,
		"groups":  len(batch.Groups),
	}).Info(shared.BuildBulkErrorSummary(report.Success, report.Failed, report.Errors))
	return report, nil
}

func (s *RecordService) appendBulkError(report *models.BulkUploadResponse, message string) {
	if len(report.Errors) < s.bulkErrorLimit {
		report.Errors = append(report.Errors, message)
	}
}

// upsertGroup writes one grouped record keyed by stock code. Scalars only
// apply on first insert; the underwriter set accumulates as a union, which is
// what makes re-ingesting the same batch a no-op.
func (s *RecordService) upsertGroup(ctx context.Context, group *GroupedInput, now time.Time) error {
	template := group.Template

	board := template.ListingBoard
	if !board.Valid() {
		board = models.BoardPengembangan
	}

	setOnInsert := bson.M{
		"code":        group.Code,
		"companyName": strings.TrimSpace(template.CompanyName),
		"ipoPrice":    template.IPOPrice,
		"returnD1":    template.ReturnD1,
		"returnD2":    template.ReturnD2,
		"returnD3":    template.ReturnD3,
		"returnD4":    template.ReturnD4,
		"returnD5":    template.ReturnD5,
		"returnD6":    template.ReturnD6,
		"returnD7":    template.ReturnD7,
		"listingBoard": board,
		"listingDate":  template.ListingDate.Time,
		"record":      template.Record,
		"createdAt":   now,
	}

	update := bson.M{
		"$setOnInsert": setOnInsert,
		"$addToSet":    bson.M{"underwriters": bson.M{"$each": group.Underwriters}},
		"$set":         bson.M{"updatedAt": now},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := s.collection.UpdateOne(ctx, bson.M{"code": group.Code}, update, opts); err != nil {
		return shared.NewStoreError("bulk_upsert", err)
	}
	return nil
}

// Stats computes the cross-cutting counts fresh on every call. An empty
// collection yields zeros and a nil last-updated, never an error.
func (s *RecordService) Stats(ctx context.Context) (stats *models.StatsResponse, err error) {
	defer s.record("stats", time.Now(), &err)

	totalStocks, err := s.aggregateCount(ctx, stockCountPipeline())
	if err != nil {
		return nil, err
	}

	totalUnderwriters, err := s.aggregateCount(ctx, underwriterCountPipeline())
	if err != nil {
		return nil, err
	}

	lastUpdated, err := s.lastUpdatedAt(ctx)
	if err != nil {
		return nil, err
	}

	return &models.StatsResponse{
		TotalRecords: totalStocks,
		TotalUW:      totalUnderwriters,
		// one stock code is one company is one IPO in this model
		TotalCompanies: totalStocks,
		LastUpdated:    lastUpdated,
	}, nil
}

func (s *RecordService) aggregateCount(ctx context.Context, pipeline mongo.Pipeline) (int64, error) {
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, shared.NewStoreError("stats", err)
	}
	defer cursor.Close(ctx)

	var counts []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &counts); err != nil {
		return 0, shared.NewStoreError("stats", err)
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0].Total, nil
}

func (s *RecordService) lastUpdatedAt(ctx context.Context) (*time.Time, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	var document struct {
		UpdatedAt time.Time `bson:"updatedAt"`
	}
	err := s.collection.FindOne(ctx, bson.M{}, opts).Decode(&document)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, shared.NewStoreError("stats", err)
	}
	return &document.UpdatedAt, nil
}

func (s *RecordService) validateCreate(input *models.StockRecordCreate) error {
	if input == nil {
		return shared.NewValidationError("create", "missing request body")
	}
	if err := s.validate.Struct(input); err != nil {
		return shared.NewValidationError("create", validationMessage(err))
	}
	if len(input.Underwriters.Normalized()) == 0 {
		return shared.NewValidationError("create", "underwriters must contain at least one non-empty code")
	}
	if input.ListingDate.IsZero() {
		return shared.NewValidationError("create", "listingDate is required")
	}
	return nil
}

// validateBulkRow mirrors the create validation for one bulk row, with
// messages meant for the per-row error report.
func validateBulkRow(row *models.BulkRecordInput) error {
	code := strings.ToUpper(strings.TrimSpace(row.Code))
	if code == "" {
		return fmt.Errorf("code is required")
	}
	if len(code) > 10 {
		return fmt.Errorf("code %q is too long", code)
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("code %q is not alphanumeric", code)
		}
	}
	if len(row.UnderwriterTokens().Normalized()) == 0 {
		return fmt.Errorf("at least one underwriter code is required")
	}
	if strings.TrimSpace(row.CompanyName) == "" {
		return fmt.Errorf("companyName is required")
	}
	if row.IPOPrice <= 0 {
		return fmt.Errorf("ipoPrice must be positive")
	}
	if row.ListingBoard != "" && !row.ListingBoard.Valid() {
		return fmt.Errorf("unknown listing board %q", row.ListingBoard)
	}
	if row.ListingDate.IsZero() {
		return fmt.Errorf("listingDate is required")
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		first := fieldErrors[0]
		return fmt.Sprintf("field %s failed %s validation", first.Field(), first.Tag())
	}
	return err.Error()
}

// toDocument renders a record for insertion, keeping the token _id as a plain
// string key.
func toDocument(record *models.StockRecord) bson.M {
	return bson.M{
		"_id":          string(record.ID),
		"underwriters": record.Underwriters,
		"code":         record.Code,
		"companyName":  record.CompanyName,
		"ipoPrice":     record.IPOPrice,
		"returnD1":     record.ReturnD1,
		"returnD2":     record.ReturnD2,
		"returnD3":     record.ReturnD3,
		"returnD4":     record.ReturnD4,
		"returnD5":     record.ReturnD5,
		"returnD6":     record.ReturnD6,
		"returnD7":     record.ReturnD7,
		"listingBoard": record.ListingBoard,
		"listingDate":  record.ListingDate,
		"record":       record.Record,
		"createdAt":    record.CreatedAt,
		"updatedAt":    record.UpdatedAt,
	}
}

// updateDocument builds the $set document from the non-nil update fields.
func updateDocument(update *models.StockRecordUpdate) (bson.M, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}

	if update.Underwriters != nil {
		normalized := update.Underwriters.Normalized()
		if len(normalized) == 0 {
			return nil, shared.NewValidationError("update", "underwriters must contain at least one non-empty code")
		}
		set["underwriters"] = normalized
	}
	if update.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*update.Code))
		if code == "" {
			return nil, shared.NewValidationError("update", "code must not be empty")
		}
		set["code"] = code
	}
	if update.CompanyName != nil {
		set["companyName"] = strings.TrimSpace(*update.CompanyName)
	}
	if update.IPOPrice != nil {
		set["ipoPrice"] = *update.IPOPrice
	}
	if update.ReturnD1 != nil {
		set["returnD1"] = *update.ReturnD1
	}
	if update.ReturnD2 != nil {
		set["returnD2"] = *update.ReturnD2
	}
	if update.ReturnD3 != nil {
		set["returnD3"] = *update.ReturnD3
	}
	if update.ReturnD4 != nil {
		set["returnD4"] = *update.ReturnD4
	}
	if update.ReturnD5 != nil {
		set["returnD5"] = *update.ReturnD5
	}
	if update.ReturnD6 != nil {
		set["returnD6"] = *update.ReturnD6
	}
	if update.ReturnD7 != nil {
		set["returnD7"] = *update.ReturnD7
	}
	if update.ListingBoard != nil {
		set["listingBoard"] = *update.ListingBoard
	}
	if update.ListingDate != nil {
		set["listingDate"] = update.ListingDate.Time
	}
	if update.Record != nil {
		set["record"] = *update.Record
	}

	return set, nil
}

func (s *RecordService) record(operation string, start time.Time, err *error) {
	s.metrics.Record("records."+operation, time.Since(start), *err)
}
