package httpapi

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/obinnaokafor/stockyard/internal/domain"
	"github.com/obinnaokafor/stockyard/internal/service/checkout"
)

type beginCheckoutRequest struct {
	BuyerID    string `json:"buyer_id"`
	GuestEmail string `json:"guest_email"`
	Email      string `json:"email"`
	Delivery   struct {
		RecipientName string `json:"recipient_name"`
		PhoneNumber   string `json:"phone_number"`
		Address       string `json:"address"`
		Region        string `json:"region"`
		Instructions  string `json:"instructions"`
	} `json:"delivery"`
}

type beginCheckoutResponse struct {
	PaymentReference string          `json:"payment_reference"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
}

// handleBeginCheckout инициирует оплату содержимого корзины. Сток и заказы
// на этом шаге не меняются: мутация происходит только в callback'е провайдера.
func (s *Server) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is required"})
		return
	}

	var req beginCheckoutRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := s.checkout.Begin(r.Context(), checkout.BeginRequest{
		Cart:       s.carts.Get(session),
		BuyerID:    req.BuyerID,
		GuestEmail: req.GuestEmail,
		Email:      req.Email,
		Delivery: domain.DeliveryDetails{
			RecipientName: req.Delivery.RecipientName,
			PhoneNumber:   req.Delivery.PhoneNumber,
			Address:       req.Delivery.Address,
			Region:        req.Delivery.Region,
			Instructions:  req.Delivery.Instructions,
		},
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.rememberSession(result.PaymentReference, session)

	s.respondJSON(w, http.StatusAccepted, beginCheckoutResponse{
		PaymentReference: result.PaymentReference,
		Amount:           result.Amount,
		Currency:         "NGN",
	})
}

type paymentCallbackRequest struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type paymentCallbackResponse struct {
	OrderIDs []string `json:"order_ids"`
	Replayed bool     `json:"replayed"`
}

// handlePaymentCallback принимает подтверждение провайдера и доводит чекаут
// до заказов. Повтор того же reference безопасен и возвращает исходный результат.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := s.checkout.HandlePaymentCallback(r.Context(), domain.PaymentConfirmation{
		Reference: req.Reference,
		Status:    req.Status,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentFailed) {
			// Отклонённый платёж закрывает чекаут, корзина остаётся как была.
			s.takeSession(req.Reference)
		}
		s.respondError(w, err)
		return
	}

	// Callback приходит server-to-server и не несёт сессию покупателя:
	// корзину чистим по сессии, записанной при инициации чекаута.
	if !result.Replayed {
		session := s.takeSession(req.Reference)
		if session == "" {
			session = sessionID(r)
		}
		if session != "" {
			s.carts.Clear(session)
		}
	}

	s.respondJSON(w, http.StatusOK, paymentCallbackResponse{
		OrderIDs: result.OrderIDs,
		Replayed: result.Replayed,
	})
}
