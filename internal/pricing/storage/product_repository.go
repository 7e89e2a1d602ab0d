package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pricewatch_api/internal/pricing/business/models"
)

// ProductRepository — все операции над таблицами товаров. Имя таблицы всегда
// берётся из Catalog (белый список), параметры — только через плейсхолдеры.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	nm_id,
	brand,
	title,
	seller_id,
	seller_name,
	price_before_discount,
	price_after_seller_discount,
	ui_price,
	rrc,
	sales_24h,
	updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.NmID,
		&p.Brand,
		&p.Title,
		&p.SellerID,
		&p.SellerName,
		&p.PriceBeforeDiscount,
		&p.PriceAfterDiscount,
		&p.DisplayPrice,
		&p.FloorPrice,
		&p.Sales24h,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List возвращает все товары каталога, отсортированные по nm_id.
func (r *ProductRepository) List(ctx context.Context, catalog Catalog) ([]models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY nm_id`, productColumns, catalog.TableName())

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var items []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

func (r *ProductRepository) Get(ctx context.Context, catalog Catalog, nmID int64) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE nm_id = $1`, productColumns, catalog.TableName())
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, nmID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Upsert вставляет/обновляет товар по nm_id.
// rrc НЕ трогаем (чтобы не затирать вручную введённое значение);
// sales_24h сохраняется, если новое значение не передано.
func (r *ProductRepository) Upsert(ctx context.Context, catalog Catalog, p models.Product) error {
	query := fmt.Sprintf(`
		INSERT INTO %s AS t
			(nm_id, brand, title, seller_id, seller_name,
			 price_before_discount, price_after_seller_discount, ui_price, sales_24h, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (nm_id) DO UPDATE SET
			brand = EXCLUDED.brand,
			title = EXCLUDED.title,
			seller_id = EXCLUDED.seller_id,
			seller_name = EXCLUDED.seller_name,
			price_before_discount = EXCLUDED.price_before_discount,
			price_after_seller_discount = EXCLUDED.price_after_seller_discount,
			ui_price = EXCLUDED.ui_price,
			sales_24h = COALESCE(EXCLUDED.sales_24h, t.sales_24h),
			updated_at = EXCLUDED.updated_at`, catalog.TableName())

	_, err := r.db.ExecContext(ctx, query,
		p.NmID, p.Brand, p.Title, p.SellerID, p.SellerName,
		p.PriceBeforeDiscount, p.PriceAfterDiscount, p.DisplayPrice, p.Sales24h,
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert product nm_id=%d: %w", p.NmID, err)
	}
	return nil
}

// SetFloorPrice ставит/очищает РРЦ. rrc = nil -> NULL в БД.
func (r *ProductRepository) SetFloorPrice(ctx context.Context, catalog Catalog, nmID int64, rrc *float64) error {
	query := fmt.Sprintf(`UPDATE %s SET rrc = $1, updated_at = $2 WHERE nm_id = $3`, catalog.TableName())
	_, err := r.db.ExecContext(ctx, query, rrc, time.Now().UTC(), nmID)
	if err != nil {
		return fmt.Errorf("set rrc nm_id=%d: %w", nmID, err)
	}
	return nil
}

// Delete удаляет товар по nm_id. Идемпотентно: если нет — 0 затронутых строк.
func (r *ProductRepository) Delete(ctx context.Context, catalog Catalog, nmID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE nm_id = $1`, catalog.TableName())
	if _, err := r.db.ExecContext(ctx, query, nmID); err != nil {
		return fmt.Errorf("delete product nm_id=%d: %w", nmID, err)
	}
	return nil
}

// duePredicate: цены ещё не было, либо (при включённой устарелости) давно не
// обновлялись. Сентинел -1 под первое условие не попадает.
func duePredicate(stalenessHours int) (string, []interface{}) {
	where := `(price_after_seller_discount IS NULL OR price_after_seller_discount = 0)`
	var args []interface{}
	if stalenessHours > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(stalenessHours) * time.Hour)
		where = `(` + where + ` OR updated_at IS NULL OR updated_at < $1)`
		args = append(args, cutoff)
	}
	return where, args
}

// SelectDue возвращает nm_id товаров, которым нужно обновление цены:
// сначала никогда не обновлявшиеся, затем самые старые.
func (r *ProductRepository) SelectDue(ctx context.Context, catalog Catalog, limit, stalenessHours int) ([]int64, error) {
	where, args := duePredicate(stalenessHours)
	query := fmt.Sprintf(`
		SELECT nm_id FROM %s
		WHERE %s
		ORDER BY updated_at ASC NULLS FIRST, nm_id ASC
		LIMIT $%d`, catalog.TableName(), where, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select due: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("select due: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ProductRepository) CountDue(ctx context.Context, catalog Catalog, stalenessHours int) (int, error) {
	where, args := duePredicate(stalenessHours)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, catalog.TableName(), where)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count due: %w", err)
	}
	return count, nil
}

// SelectPage — детерминированный полный перебор по nm_id ASC (режим force).
func (r *ProductRepository) SelectPage(ctx context.Context, catalog Catalog, limit, offset int) ([]int64, error) {
	query := fmt.Sprintf(`SELECT nm_id FROM %s ORDER BY nm_id ASC LIMIT $1 OFFSET $2`, catalog.TableName())

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select page: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("select page: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ProductRepository) CountAll(ctx context.Context, catalog Catalog) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, catalog.TableName())
	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count all: %w", err)
	}
	return count, nil
}

// violationPredicate — каноничная двойная проверка: нарушение, когда РРЦ
// задана и либо отображаемая, либо сырая цена со скидкой положительна и
// строго ниже РРЦ.
const violationPredicate = `
	rrc IS NOT NULL AND rrc > 0
	AND (
		(ui_price IS NOT NULL AND ui_price > 0 AND ui_price < rrc)
		OR (price_after_seller_discount > 0 AND price_after_seller_discount < rrc)
	)`

// ListViolatingSellers группирует нарушения по селлерам, сортировка по числу
// нарушений по убыванию.
func (r *ProductRepository) ListViolatingSellers(ctx context.Context, catalog Catalog) ([]models.ViolatingSeller, error) {
	query := fmt.Sprintf(`
		SELECT seller_id, MAX(seller_name), COUNT(*)
		FROM %s
		WHERE seller_id IS NOT NULL AND %s
		GROUP BY seller_id
		ORDER BY COUNT(*) DESC, seller_id ASC`, catalog.TableName(), violationPredicate)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list violating sellers: %w", err)
	}
	defer rows.Close()

	var sellers []models.ViolatingSeller
	for rows.Next() {
		var s models.ViolatingSeller
		if err := rows.Scan(&s.SellerID, &s.SellerName, &s.ViolationCount); err != nil {
			return nil, fmt.Errorf("list violating sellers: %w", err)
		}
		sellers = append(sellers, s)
	}
	return sellers, rows.Err()
}

// ListViolatingProducts — артикулы селлера с нарушением по отображаемой цене
// (строгая одиночная проверка для выгрузки в чат).
func (r *ProductRepository) ListViolatingProducts(ctx context.Context, catalog Catalog, sellerID int64) ([]int64, error) {
	query := fmt.Sprintf(`
		SELECT nm_id FROM %s
		WHERE seller_id = $1
		  AND rrc IS NOT NULL AND rrc > 0
		  AND ui_price IS NOT NULL AND ui_price > 0 AND ui_price < rrc
		ORDER BY nm_id ASC`, catalog.TableName())

	rows, err := r.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list violating products: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list violating products: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ProductRepository) CountViolations(ctx context.Context, catalog Catalog) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, catalog.TableName(), violationPredicate)
	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count violations: %w", err)
	}
	return count, nil
}

// Stats собирает сводку каталога для /api/stats.
func (r *ProductRepository) Stats(ctx context.Context, catalog Catalog, stalenessHours int) (*models.CatalogStats, error) {
	total, err := r.CountAll(ctx, catalog)
	if err != nil {
		return nil, err
	}
	violations, err := r.CountViolations(ctx, catalog)
	if err != nil {
		return nil, err
	}
	due, err := r.CountDue(ctx, catalog, stalenessHours)
	if err != nil {
		return nil, err
	}
	return &models.CatalogStats{TotalRows: total, ViolationCount: violations, DueCount: due}, nil
}
