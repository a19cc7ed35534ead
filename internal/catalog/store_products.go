package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"conveyor/internal/pipeline"
)

func productFilterConds(status pipeline.Status, filters ListFilters) []sq.Sqlizer {
	filters = filters.normalized()
	conds := []sq.Sqlizer{sq.Eq{"pipeline_status": string(status)}}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		conds = append(conds, sq.Or{
			sq.Like{"sku": like},
			sq.Like{"name": like},
			sq.Like{"brand": like},
		})
	}
	if filters.Brand != "" {
		conds = append(conds, sq.Eq{"brand": filters.Brand})
	}
	if filters.Category != "" {
		conds = append(conds, sq.Eq{"category": filters.Category})
	}
	if filters.MinConfidence > 0 {
		conds = append(conds, sq.GtOrEq{"confidence_score": filters.MinConfidence})
	}
	return conds
}

// ListProducts returns one page of products in a status bucket plus the
// total match count for the same filters.
func (s *Store) ListProducts(ctx context.Context, status pipeline.Status, filters ListFilters, offset, limit int) (*ListResult, error) {
	ctx = ensureContext(ctx)
	conds := productFilterConds(status, filters)

	countBuilder := sq.Select("COUNT(1)").From("products")
	for _, cond := range conds {
		countBuilder = countBuilder.Where(cond)
	}
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	listBuilder := sq.Select(productColumns).From("products")
	for _, cond := range conds {
		listBuilder = listBuilder.Where(cond)
	}
	listBuilder = listBuilder.OrderBy("sku")
	if limit > 0 {
		listBuilder = listBuilder.Limit(uint64(limit))
	}
	if offset > 0 {
		listBuilder = listBuilder.Offset(uint64(offset))
	}
	listQuery, listArgs, err := listBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	result := &ListResult{TotalCount: total}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result.Products = append(result.Products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return result, nil
}

// MatchingSKUs returns every SKU matching a status and filters, in one
// consistent read so select-all snapshots do not tear.
func (s *Store) MatchingSKUs(ctx context.Context, status pipeline.Status, filters ListFilters) (*MatchResult, error) {
	ctx = ensureContext(ctx)
	builder := sq.Select("sku").From("products").OrderBy("sku")
	for _, cond := range productFilterConds(status, filters) {
		builder = builder.Where(cond)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sku query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matching skus: %w", err)
	}
	defer rows.Close()

	result := &MatchResult{}
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		result.SKUs = append(result.SKUs, sku)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skus: %w", err)
	}
	result.Count = len(result.SKUs)
	return result, nil
}

// StatusCounts returns the row count of every status bucket, including
// zero-count buckets, in the canonical status order.
func (s *Store) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT pipeline_status, COUNT(1) FROM products GROUP BY pipeline_status")
	if err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[pipeline.Status]int)
	for rows.Next() {
		var statusStr string
		var count int
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[pipeline.Status(statusStr)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	out := make([]StatusCount, 0, len(pipeline.AllStatuses()))
	for _, status := range pipeline.AllStatuses() {
		out = append(out, StatusCount{Status: status, Count: counts[status]})
	}
	return out, nil
}

// GetBySKU fetches a product by identifier. A missing row returns (nil, nil).
func (s *Store) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)
	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// InsertProduct adds a new product row in the staging bucket unless the
// product carries an explicit status.
func (s *Store) InsertProduct(ctx context.Context, product *Product) error {
	if product == nil {
		return errors.New("product is nil")
	}
	if product.Status == "" {
		product.Status = pipeline.StatusStaging
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	timestamp := now.Format(time.RFC3339Nano)

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO products (
            sku, name, brand, category, input_json, consolidated_json, sources_json,
            pipeline_status, confidence_score, error_message, retry_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.SKU,
		nullableString(product.Name),
		nullableString(product.Brand),
		nullableString(product.Category),
		nullableString(product.InputJSON),
		nullableString(product.ConsolidatedJSON),
		nullableString(product.SourcesJSON),
		product.Status,
		product.ConfidenceScore,
		nullableString(product.ErrorMessage),
		product.RetryCount,
		timestamp,
		timestamp,
	); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct persists changes to an existing product row.
func (s *Store) UpdateProduct(ctx context.Context, product *Product) error {
	if product == nil {
		return errors.New("product is nil")
	}
	product.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE products
         SET name = ?, brand = ?, category = ?, input_json = ?, consolidated_json = ?,
             sources_json = ?, pipeline_status = ?, confidence_score = ?, error_message = ?,
             retry_count = ?, updated_at = ?
         WHERE sku = ?`,
		nullableString(product.Name),
		nullableString(product.Brand),
		nullableString(product.Category),
		nullableString(product.InputJSON),
		nullableString(product.ConsolidatedJSON),
		nullableString(product.SourcesJSON),
		product.Status,
		product.ConfidenceScore,
		nullableString(product.ErrorMessage),
		product.RetryCount,
		product.UpdatedAt.Format(time.RFC3339Nano),
		product.SKU,
	); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// BulkSetStatus moves the given SKUs to a new status in one statement.
// Failed rows are excluded; only SetProductStatus moves a row out of failed.
// The returned count reflects rows actually updated.
func (s *Store) BulkSetStatus(ctx context.Context, skus []string, newStatus pipeline.Status) (int, error) {
	if len(skus) == 0 {
		return 0, nil
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	args := make([]any, 0, len(skus)+3)
	args = append(args, string(newStatus), timestamp)
	for _, sku := range skus {
		args = append(args, sku)
	}
	args = append(args, string(pipeline.StatusFailed))

	res, err := s.execWithRetry(
		ctx,
		`UPDATE products SET pipeline_status = ?, updated_at = ?
         WHERE sku IN (`+makePlaceholders(len(skus))+`) AND pipeline_status != ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("bulk set status: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(updated), nil
}

// SetProductStatus sets one product's status directly. This is the only
// write path that moves a row out of the failed bucket.
func (s *Store) SetProductStatus(ctx context.Context, sku string, newStatus pipeline.Status) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE products SET pipeline_status = ?, error_message = NULL, updated_at = ? WHERE sku = ?`,
		string(newStatus), timestamp, sku,
	)
	if err != nil {
		return fmt.Errorf("set product status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("product %q not found", sku)
	}
	return nil
}

// MarkProductFailed records a failure on a product row and bumps its retry count.
func (s *Store) MarkProductFailed(ctx context.Context, sku, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execWithoutResultRetry(
		ctx,
		`UPDATE products
         SET pipeline_status = ?, error_message = ?, retry_count = retry_count + 1, updated_at = ?
         WHERE sku = ?`,
		string(pipeline.StatusFailed), nullableString(message), timestamp, sku,
	)
}

// DeleteProducts removes rows by SKU and returns the count actually deleted.
func (s *Store) DeleteProducts(ctx context.Context, skus []string) (int, error) {
	if len(skus) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(skus))
	for _, sku := range skus {
		args = append(args, sku)
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM products WHERE sku IN (`+makePlaceholders(len(skus))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(deleted), nil
}
