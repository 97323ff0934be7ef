package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository создаёт PostgreSQL-реализацию ItemRepository.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepository{db: store.DB()}
}

func (r *itemRepository) Create(ctx context.Context, item domain.Item) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	images, err := marshalImages(item.Images)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO livestock (
			id, tag_number, breed, age_months, weight_kg, health_notes,
			price, quantity, status, images, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		item.ID, item.TagNumber, item.Breed, item.AgeMonths, item.WeightKG, item.HealthNotes,
		item.Price, item.Quantity, string(item.Status), images, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrItemAlreadyExists
		}
		return fmt.Errorf("insert livestock item: %w", err)
	}

	return nil
}

func (r *itemRepository) Get(ctx context.Context, id string) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, tag_number, breed, age_months, weight_kg, health_notes,
		       price, quantity, status, images, created_at, updated_at
		FROM livestock
		WHERE id = $1
	`, id)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("select livestock item: %w", err)
	}

	return item, nil
}

func (r *itemRepository) List(ctx context.Context) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tag_number, breed, age_months, weight_kg, health_notes,
		       price, quantity, status, images, created_at, updated_at
		FROM livestock
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list livestock: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan livestock row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate livestock rows: %w", err)
	}

	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, item domain.Item) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	images, err := marshalImages(item.Images)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE livestock
		SET tag_number = $1,
		    breed = $2,
		    age_months = $3,
		    weight_kg = $4,
		    health_notes = $5,
		    price = $6,
		    quantity = $7,
		    status = $8,
		    images = $9,
		    updated_at = NOW()
		WHERE id = $10
	`,
		item.TagNumber, item.Breed, item.AgeMonths, item.WeightKG, item.HealthNotes,
		item.Price, item.Quantity, string(item.Status), images, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update livestock item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("livestock rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

// Delete жёстко удаляет позицию; заказы остаются со своими снимками.
func (r *itemRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM livestock WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete livestock item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("livestock rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		item      domain.Item
		statusRaw string
		images    []byte
	)

	if err := row.Scan(
		&item.ID, &item.TagNumber, &item.Breed, &item.AgeMonths, &item.WeightKG, &item.HealthNotes,
		&item.Price, &item.Quantity, &statusRaw, &images, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return domain.Item{}, err
	}

	item.Status = domain.AvailabilityStatus(statusRaw)
	if len(images) > 0 {
		if err := json.Unmarshal(images, &item.Images); err != nil {
			return domain.Item{}, fmt.Errorf("decode livestock images: %w", err)
		}
	}

	return item, nil
}

func marshalImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("encode livestock images: %w", err)
	}
	return data, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.ItemRepository = (*itemRepository)(nil)
