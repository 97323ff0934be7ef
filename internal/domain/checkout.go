package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PricePolicy определяет, какая цена фиксируется на заказе при коммите.
type PricePolicy string

const (
	// PricePolicyCommitTime — записывается актуальная цена каталога на момент
	// коммита; клиентский снимок не является источником истины.
	PricePolicyCommitTime PricePolicy = "commit"
	// PricePolicyQuoted — фиксируется цена, показанная покупателю при
	// добавлении в корзину (price-lock для бизнеса, где котировка обещана).
	PricePolicyQuoted PricePolicy = "quoted"
)

// Valid проверяет, что политика относится к поддерживаемым значениям.
func (p PricePolicy) Valid() bool {
	switch p {
	case PricePolicyCommitTime, PricePolicyQuoted:
		return true
	default:
		return false
	}
}

// CheckoutLine — строка коммита: товар и цена, которую видел клиент.
type CheckoutLine struct {
	ItemID string
	// QuotedPrice — снимок из корзины; используется только при PricePolicyQuoted.
	QuotedPrice decimal.Decimal
}

// CheckoutCommit — вход атомарной операции коммита чекаута.
type CheckoutCommit struct {
	// PaymentReference — подтверждённая провайдером ссылка, ключ идемпотентности.
	PaymentReference string
	BuyerID          string
	GuestEmail       string
	Lines            []CheckoutLine
	Delivery         DeliveryDetails
	PricePolicy      PricePolicy
}

// ValidateInvariants проверяет вход коммита до обращения к хранилищу.
func (c *CheckoutCommit) ValidateInvariants() []error {
	var errs []error

	if strings.TrimSpace(c.PaymentReference) == "" {
		errs = append(errs, ErrPaymentReferenceRequired)
	}
	if len(c.Lines) == 0 {
		errs = append(errs, ErrCartEmpty)
	}
	if c.BuyerID == "" && strings.TrimSpace(c.GuestEmail) == "" {
		errs = append(errs, ErrGuestEmailRequired)
	}
	for _, line := range c.Lines {
		if strings.TrimSpace(line.ItemID) == "" {
			errs = append(errs, ErrOrderItemRequired)
			break
		}
	}

	return errs
}

// CommitResult — результат коммита: созданные (или ранее созданные) заказы.
type CommitResult struct {
	OrderIDs []string
	// Replayed выставляется при повторе уже закоммиченной платёжной ссылки:
	// сток не списывался повторно, возвращён исходный результат.
	Replayed bool
}
