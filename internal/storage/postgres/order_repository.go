package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

const orderColumns = `
	id, buyer_id, guest_email, item_id, item_breed, item_tag, item_image,
	amount, payment_reference, payment_status, delivery_status,
	recipient_name, phone_number, address, region, instructions, created_at
`

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE buyer_id = $1
		ORDER BY created_at DESC, id DESC
	`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list orders by buyer: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *orderRepository) ListByPaymentReference(ctx context.Context, reference string) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE payment_reference = $1
		ORDER BY created_at ASC, id ASC
	`, reference)
	if err != nil {
		return nil, fmt.Errorf("list orders by payment reference: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListAll возвращает все заказы с витринными данными позиции. Для удалённых
// позиций витрина собирается из снимка на самом заказе.
func (r *orderRepository) ListAll(ctx context.Context) ([]domain.AdminOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.buyer_id, o.guest_email, o.item_id, o.item_breed, o.item_tag, o.item_image,
		       o.amount, o.payment_reference, o.payment_status, o.delivery_status,
		       o.recipient_name, o.phone_number, o.address, o.region, o.instructions, o.created_at,
		       l.breed, l.tag_number, l.images
		FROM orders o
		LEFT JOIN livestock l ON l.id = o.item_id
		ORDER BY o.created_at DESC, o.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	defer rows.Close()

	result := make([]domain.AdminOrder, 0)
	for rows.Next() {
		var (
			order         domain.Order
			buyerID       sql.NullString
			guestEmail    sql.NullString
			paymentStatus string
			deliveryRaw   string
			liveBreed     sql.NullString
			liveTag       sql.NullString
			liveImages    []byte
		)

		if err := rows.Scan(
			&order.ID, &buyerID, &guestEmail, &order.ItemID, &order.ItemBreed, &order.ItemTag, &order.ItemImage,
			&order.Amount, &order.PaymentReference, &paymentStatus, &deliveryRaw,
			&order.Delivery.RecipientName, &order.Delivery.PhoneNumber, &order.Delivery.Address,
			&order.Delivery.Region, &order.Delivery.Instructions, &order.CreatedAt,
			&liveBreed, &liveTag, &liveImages,
		); err != nil {
			return nil, fmt.Errorf("scan admin order row: %w", err)
		}

		order.BuyerID = buyerID.String
		order.GuestEmail = guestEmail.String
		order.PaymentStatus = domain.PaymentStatus(paymentStatus)
		order.DeliveryStatus = domain.DeliveryStatus(deliveryRaw)

		admin := domain.AdminOrder{Order: order}
		if liveBreed.Valid {
			admin.DisplayBreed = liveBreed.String
			admin.DisplayTag = liveTag.String
			admin.DisplayImage = firstImage(liveImages)
		} else {
			admin.ItemDeleted = true
			admin.DisplayBreed = order.ItemBreed
			admin.DisplayTag = order.ItemTag
			admin.DisplayImage = order.ItemImage
		}
		result = append(result, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin order rows: %w", err)
	}

	return result, nil
}

// UpdateDeliveryStatus безусловно пишет delivery_status, остальное не трогает.
func (r *orderRepository) UpdateDeliveryStatus(ctx context.Context, orderID string, status domain.DeliveryStatus) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET delivery_status = $1
		WHERE id = $2
	`, string(status), orderID)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("order rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order         domain.Order
		buyerID       sql.NullString
		guestEmail    sql.NullString
		paymentStatus string
		deliveryRaw   string
	)

	if err := row.Scan(
		&order.ID, &buyerID, &guestEmail, &order.ItemID, &order.ItemBreed, &order.ItemTag, &order.ItemImage,
		&order.Amount, &order.PaymentReference, &paymentStatus, &deliveryRaw,
		&order.Delivery.RecipientName, &order.Delivery.PhoneNumber, &order.Delivery.Address,
		&order.Delivery.Region, &order.Delivery.Instructions, &order.CreatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	order.BuyerID = buyerID.String
	order.GuestEmail = guestEmail.String
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.DeliveryStatus = domain.DeliveryStatus(deliveryRaw)

	return order, nil
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func firstImage(imagesJSON []byte) string {
	if len(imagesJSON) == 0 {
		return ""
	}
	var images []string
	if err := json.Unmarshal(imagesJSON, &images); err != nil || len(images) == 0 {
		return ""
	}
	return images[0]
}

var _ domain.OrderRepository = (*orderRepository)(nil)
