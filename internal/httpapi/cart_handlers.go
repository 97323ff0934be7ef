package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

type cartLineResponse struct {
	ItemID    string          `json:"item_id"`
	Breed     string          `json:"breed"`
	TagNumber string          `json:"tag_number"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"added_at"`
}

type cartResponse struct {
	SessionID string             `json:"session_id"`
	Lines     []cartLineResponse `json:"lines"`
	Total     decimal.Decimal    `json:"total"`
}

func toCartResponse(cart domain.Cart) cartResponse {
	lines := make([]cartLineResponse, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, cartLineResponse{
			ItemID:    line.ItemID,
			Breed:     line.Breed,
			TagNumber: line.TagNumber,
			Image:     line.Image,
			Price:     line.Price,
			AddedAt:   line.AddedAt,
		})
	}
	return cartResponse{
		SessionID: cart.SessionID,
		Lines:     lines,
		Total:     cart.Total(),
	}
}

type addToCartRequest struct {
	ItemID string `json:"item_id"`
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is required"})
		return
	}
	s.respondJSON(w, http.StatusOK, toCartResponse(s.carts.Get(session)))
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is required"})
		return
	}

	var req addToCartRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	// Снимок цены и витринных полей берётся из живого каталога.
	item, err := s.catalog.Get(r.Context(), req.ItemID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if !item.InStock() {
		s.respondError(w, &domain.OutOfStockError{ItemIDs: []string{item.ID}})
		return
	}

	cart, err := s.carts.Add(session, item)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toCartResponse(cart))
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is required"})
		return
	}

	cart, err := s.carts.Remove(session, mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toCartResponse(cart))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is required"})
		return
	}

	s.carts.Clear(session)
	s.respondJSON(w, http.StatusNoContent, nil)
}
