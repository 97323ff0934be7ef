package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

type orderResponse struct {
	ID               string          `json:"id"`
	BuyerID          string          `json:"buyer_id,omitempty"`
	GuestEmail       string          `json:"guest_email,omitempty"`
	ItemID           string          `json:"item_id"`
	ItemBreed        string          `json:"item_breed"`
	ItemTag          string          `json:"item_tag"`
	ItemImage        string          `json:"item_image,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentReference string          `json:"payment_reference"`
	PaymentStatus    string          `json:"payment_status"`
	DeliveryStatus   string          `json:"delivery_status"`
	Delivery         deliveryPayload `json:"delivery"`
	CreatedAt        time.Time       `json:"created_at"`
}

type deliveryPayload struct {
	RecipientName string `json:"recipient_name"`
	PhoneNumber   string `json:"phone_number"`
	Address       string `json:"address"`
	Region        string `json:"region,omitempty"`
	Instructions  string `json:"instructions,omitempty"`
}

func toOrderResponse(order domain.Order) orderResponse {
	return orderResponse{
		ID:               order.ID,
		BuyerID:          order.BuyerID,
		GuestEmail:       order.GuestEmail,
		ItemID:           order.ItemID,
		ItemBreed:        order.ItemBreed,
		ItemTag:          order.ItemTag,
		ItemImage:        order.ItemImage,
		Amount:           order.Amount,
		PaymentReference: order.PaymentReference,
		PaymentStatus:    string(order.PaymentStatus),
		DeliveryStatus:   string(order.DeliveryStatus),
		Delivery: deliveryPayload{
			RecipientName: order.Delivery.RecipientName,
			PhoneNumber:   order.Delivery.PhoneNumber,
			Address:       order.Delivery.Address,
			Region:        order.Delivery.Region,
			Instructions:  order.Delivery.Instructions,
		},
		CreatedAt: order.CreatedAt,
	}
}

type adminOrderResponse struct {
	orderResponse
	DisplayBreed string `json:"display_breed"`
	DisplayTag   string `json:"display_tag"`
	DisplayImage string `json:"display_image,omitempty"`
	ItemDeleted  bool   `json:"item_deleted"`
}

// handleListOrders возвращает историю заказов покупателя или одного чекаута.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	if reference := r.URL.Query().Get("payment_reference"); reference != "" {
		list, err := s.orders.ListByPaymentReference(r.Context(), reference)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, toOrderResponses(list))
		return
	}

	buyerID := r.URL.Query().Get("buyer_id")
	if buyerID == "" {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "buyer_id or payment_reference is required"})
		return
	}

	list, err := s.orders.ListForBuyer(r.Context(), buyerID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toOrderResponses(list))
}

func toOrderResponses(list []domain.Order) []orderResponse {
	response := make([]orderResponse, 0, len(list))
	for _, order := range list {
		response = append(response, toOrderResponse(order))
	}
	return response
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.ListAll(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	response := make([]adminOrderResponse, 0, len(list))
	for _, order := range list {
		response = append(response, adminOrderResponse{
			orderResponse: toOrderResponse(order.Order),
			DisplayBreed:  order.DisplayBreed,
			DisplayTag:    order.DisplayTag,
			DisplayImage:  order.DisplayImage,
			ItemDeleted:   order.ItemDeleted,
		})
	}
	s.respondJSON(w, http.StatusOK, response)
}

type updateDeliveryRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateDelivery(w http.ResponseWriter, r *http.Request) {
	var req updateDeliveryRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	status := domain.DeliveryStatus(req.Status)
	if !status.Valid() {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported delivery status: " + req.Status})
		return
	}

	orderID := mux.Vars(r)["id"]
	if err := s.orders.UpdateDeliveryStatus(r.Context(), orderID, status); err != nil {
		s.respondError(w, err)
		return
	}

	order, err := s.orders.Get(r.Context(), orderID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toOrderResponse(order))
}
