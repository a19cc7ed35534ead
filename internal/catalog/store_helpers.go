package catalog

import (
	"database/sql"
	"errors"
	"time"

	"conveyor/internal/pipeline"
)

const productColumns = "sku, name, brand, category, input_json, consolidated_json, sources_json, pipeline_status, confidence_score, error_message, retry_count, created_at, updated_at"

func scanProduct(scanner interface{ Scan(dest ...any) error }) (*Product, error) {
	var (
		sku          string
		name         sql.NullString
		brand        sql.NullString
		category     sql.NullString
		inputJSON    sql.NullString
		consolidated sql.NullString
		sources      sql.NullString
		statusStr    string
		confidence   sql.NullFloat64
		errorMessage sql.NullString
		retryCount   sql.NullInt64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&sku,
		&name,
		&brand,
		&category,
		&inputJSON,
		&consolidated,
		&sources,
		&statusStr,
		&confidence,
		&errorMessage,
		&retryCount,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	product := &Product{
		SKU:              sku,
		Name:             name.String,
		Brand:            brand.String,
		Category:         category.String,
		InputJSON:        inputJSON.String,
		ConsolidatedJSON: consolidated.String,
		SourcesJSON:      sources.String,
		Status:           pipeline.Status(statusStr),
		ConfidenceScore:  confidence.Float64,
		ErrorMessage:     errorMessage.String,
		RetryCount:       int(retryCount.Int64),
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		product.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		product.UpdatedAt = updated
	}
	return product, nil
}

const batchColumns = "id, status, progress, total_count, processed_count, failed_count, skus_json, results_json, error_message, created_at, updated_at"

func scanBatch(scanner interface{ Scan(dest ...any) error }) (*Batch, error) {
	var (
		id           string
		statusStr    string
		progress     sql.NullInt64
		totalCount   sql.NullInt64
		processed    sql.NullInt64
		failed       sql.NullInt64
		skusJSON     sql.NullString
		resultsJSON  sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&progress,
		&totalCount,
		&processed,
		&failed,
		&skusJSON,
		&resultsJSON,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	batch := &Batch{
		ID:             id,
		Status:         BatchStatus(statusStr),
		Progress:       int(progress.Int64),
		TotalCount:     int(totalCount.Int64),
		ProcessedCount: int(processed.Int64),
		FailedCount:    int(failed.Int64),
		SKUsJSON:       skusJSON.String,
		ResultsJSON:    resultsJSON.String,
		ErrorMessage:   errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		batch.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		batch.UpdatedAt = updated
	}
	return batch, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
