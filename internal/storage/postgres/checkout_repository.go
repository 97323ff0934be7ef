package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

const commitTimeout = 10 * time.Second

// checkoutRepository применяет чекаут одной транзакцией: условные декременты
// стока и вставки заказов либо проходят все вместе, либо не проходят вовсе.
type checkoutRepository struct {
	db *sql.DB
}

// NewCheckoutRepository создаёт PostgreSQL-реализацию CheckoutRepository.
func NewCheckoutRepository(store *Store) domain.CheckoutRepository {
	return &checkoutRepository{db: store.DB()}
}

// Commit фиксирует оплаченный чекаут. Повтор уже закоммиченной платёжной
// ссылки возвращает исходные заказы без повторного списания стока.
func (r *checkoutRepository) Commit(ctx context.Context, commit domain.CheckoutCommit) (domain.CommitResult, error) {
	if errs := commit.ValidateInvariants(); len(errs) > 0 {
		return domain.CommitResult{}, errors.Join(errs...)
	}

	policy := commit.PricePolicy
	if policy == "" {
		policy = domain.PricePolicyCommitTime
	}
	if !policy.Valid() {
		return domain.CommitResult{}, domain.ErrPricePolicyInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, commitTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CommitResult{}, fmt.Errorf("begin checkout tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Транзакционный advisory lock сериализует конкурирующие коммиты одной
	// и той же платёжной ссылки между инстансами.
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, commit.PaymentReference); err != nil {
		return domain.CommitResult{}, fmt.Errorf("acquire checkout lock: %w", err)
	}

	replayed, err := r.existingOrderIDs(ctx, tx, commit.PaymentReference)
	if err != nil {
		return domain.CommitResult{}, err
	}
	if len(replayed) > 0 {
		if err = tx.Commit(); err != nil {
			return domain.CommitResult{}, fmt.Errorf("commit replay check: %w", err)
		}
		return domain.CommitResult{OrderIDs: replayed, Replayed: true}, nil
	}

	// Сначала блокируем и проверяем все позиции, потом применяем.
	demand := make(map[string]int)
	for _, line := range commit.Lines {
		demand[line.ItemID]++
	}

	itemIDs := make([]string, 0, len(demand))
	for itemID := range demand {
		itemIDs = append(itemIDs, itemID)
	}
	// Детерминированный порядок блокировок исключает дедлоки между коммитами.
	sort.Strings(itemIDs)

	locked := make(map[string]domain.Item, len(itemIDs))
	var outOfStock []string
	for _, itemID := range itemIDs {
		var item domain.Item
		item, err = lockItemForUpdate(ctx, tx, itemID)
		if err != nil {
			return domain.CommitResult{}, err
		}
		if item.Quantity < demand[itemID] {
			outOfStock = append(outOfStock, itemID)
			continue
		}
		locked[itemID] = item
	}
	if len(outOfStock) > 0 {
		err = &domain.OutOfStockError{ItemIDs: outOfStock}
		return domain.CommitResult{}, err
	}

	for _, itemID := range itemIDs {
		qty := demand[itemID]
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			UPDATE livestock
			SET quantity = quantity - $2,
			    status = CASE
			        WHEN quantity - $2 <= 0 THEN $3
			        WHEN status = $3 THEN $4
			        ELSE status
			    END,
			    updated_at = NOW()
			WHERE id = $1
			  AND quantity >= $2
		`, itemID, qty, string(domain.AvailabilitySold), string(domain.AvailabilityAvailable))
		if err != nil {
			return domain.CommitResult{}, fmt.Errorf("decrement stock for item %s: %w", itemID, err)
		}

		var affected int64
		affected, err = res.RowsAffected()
		if err != nil {
			return domain.CommitResult{}, fmt.Errorf("stock rows affected: %w", err)
		}
		if affected == 0 {
			// Проверка выше держит FOR UPDATE, сюда попадать не должны.
			err = &domain.OutOfStockError{ItemIDs: []string{itemID}}
			return domain.CommitResult{}, err
		}
	}

	now := time.Now().UTC()
	orderIDs := make([]string, 0, len(commit.Lines))
	for _, line := range commit.Lines {
		item := locked[line.ItemID]

		amount := item.Price
		if policy == domain.PricePolicyQuoted {
			amount = line.QuotedPrice
		}

		orderID := uuid.NewString()
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO orders (
				id, buyer_id, guest_email, item_id, item_breed, item_tag, item_image,
				amount, payment_reference, payment_status, delivery_status,
				recipient_name, phone_number, address, region, instructions, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		`,
			orderID,
			nullableText(commit.BuyerID),
			nullableText(commit.GuestEmail),
			item.ID,
			item.Breed,
			item.TagNumber,
			item.PrimaryImage(),
			amount,
			commit.PaymentReference,
			string(domain.PaymentStatusSuccessful),
			string(domain.DeliveryStatusProcessing),
			commit.Delivery.RecipientName,
			commit.Delivery.PhoneNumber,
			commit.Delivery.Address,
			commit.Delivery.Region,
			commit.Delivery.Instructions,
			now,
		); err != nil {
			return domain.CommitResult{}, fmt.Errorf("insert order for item %s: %w", line.ItemID, err)
		}
		orderIDs = append(orderIDs, orderID)
	}

	if err = tx.Commit(); err != nil {
		return domain.CommitResult{}, fmt.Errorf("commit checkout tx: %w", err)
	}

	return domain.CommitResult{OrderIDs: orderIDs}, nil
}

func (r *checkoutRepository) existingOrderIDs(ctx context.Context, tx *sql.Tx, reference string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id
		FROM orders
		WHERE payment_reference = $1
		ORDER BY created_at ASC, id ASC
	`, reference)
	if err != nil {
		return nil, fmt.Errorf("select existing orders: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan existing order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing orders: %w", err)
	}

	return ids, nil
}

func lockItemForUpdate(ctx context.Context, tx *sql.Tx, itemID string) (domain.Item, error) {
	var (
		item      domain.Item
		statusRaw string
		images    []byte
	)

	err := tx.QueryRowContext(ctx, `
		SELECT id, tag_number, breed, price, quantity, status, images
		FROM livestock
		WHERE id = $1
		FOR UPDATE
	`, itemID).Scan(
		&item.ID, &item.TagNumber, &item.Breed, &item.Price, &item.Quantity, &statusRaw, &images,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, fmt.Errorf("item %s: %w", itemID, domain.ErrItemNotFound)
		}
		return domain.Item{}, fmt.Errorf("lock livestock item %s: %w", itemID, err)
	}

	item.Status = domain.AvailabilityStatus(statusRaw)
	if len(images) > 0 {
		if err := json.Unmarshal(images, &item.Images); err != nil {
			return domain.Item{}, fmt.Errorf("decode livestock images: %w", err)
		}
	}

	return item, nil
}

func nullableText(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

var _ domain.CheckoutRepository = (*checkoutRepository)(nil)
