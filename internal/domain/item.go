package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AvailabilityStatus описывает доступность позиции каталога для покупки.
type AvailabilityStatus string

const (
	// AvailabilityAvailable — позиция в продаже, остаток больше нуля.
	AvailabilityAvailable AvailabilityStatus = "Available"
	// AvailabilitySold — остаток исчерпан, позиция недоступна для покупки.
	AvailabilitySold AvailabilityStatus = "Sold"
	// AvailabilityReserved — позиция вручную зарезервирована администратором.
	AvailabilityReserved AvailabilityStatus = "Reserved"
	// AvailabilityPending — позиция ожидает решения администратора (осмотр, документы).
	AvailabilityPending AvailabilityStatus = "Pending"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s AvailabilityStatus) Valid() bool {
	switch s {
	case AvailabilityAvailable, AvailabilitySold, AvailabilityReserved, AvailabilityPending:
		return true
	default:
		return false
	}
}

// Item — позиция каталога: одна или несколько одинаковых голов скота на продажу.
type Item struct {
	ID          string
	TagNumber   string
	Breed       string
	AgeMonths   int
	WeightKG    float64
	HealthNotes string
	// Price — актуальная цена за единицу; источник истины при коммите.
	Price decimal.Decimal
	// Quantity — остаток на складе, инвариант Quantity >= 0.
	Quantity int
	Status   AvailabilityStatus
	// Images — упорядоченный список URL, первый считается основным.
	Images    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrimaryImage возвращает основной URL изображения или пустую строку.
func (i *Item) PrimaryImage() string {
	if len(i.Images) == 0 {
		return ""
	}
	return i.Images[0]
}

// InStock сообщает, остались ли единицы для продажи.
func (i *Item) InStock() bool {
	return i.Quantity > 0
}

// ValidateInvariants проверяет базовые инварианты позиции и возвращает список замечаний.
func (i *Item) ValidateInvariants() []error {
	var errs []error

	if strings.TrimSpace(i.TagNumber) == "" {
		errs = append(errs, ErrItemTagRequired)
	}
	if strings.TrimSpace(i.Breed) == "" {
		errs = append(errs, ErrItemBreedRequired)
	}
	if !i.Price.IsPositive() {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if i.Quantity < 0 {
		errs = append(errs, ErrItemQuantityNegative)
	}
	if !i.Status.Valid() {
		errs = append(errs, ErrItemStatusInvalid)
	}

	return errs
}

// DeriveAvailability вычисляет статус доступности из остатка.
// Правило общее для всех писателей поля: остаток 0 всегда даёт Sold;
// положительный остаток «воскрешает» только Sold обратно в Available,
// ручные статусы Reserved/Pending стоковым сигналом не перетираются.
func DeriveAvailability(quantity int, current AvailabilityStatus) AvailabilityStatus {
	if quantity <= 0 {
		return AvailabilitySold
	}
	if current == AvailabilitySold || current == "" {
		return AvailabilityAvailable
	}
	return current
}
