package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/obinnaokafor/stockyard/internal/domain"
	"github.com/obinnaokafor/stockyard/internal/service/catalog"
)

type itemRequest struct {
	TagNumber   string          `json:"tag_number"`
	Breed       string          `json:"breed"`
	AgeMonths   int             `json:"age_months"`
	WeightKG    float64         `json:"weight_kg"`
	HealthNotes string          `json:"health_notes"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Status      string          `json:"status"`
	Images      []string        `json:"images"`
}

func (req itemRequest) toInput() catalog.ItemInput {
	return catalog.ItemInput{
		TagNumber:   req.TagNumber,
		Breed:       req.Breed,
		AgeMonths:   req.AgeMonths,
		WeightKG:    req.WeightKG,
		HealthNotes: req.HealthNotes,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Status:      domain.AvailabilityStatus(req.Status),
		Images:      req.Images,
	}
}

type itemResponse struct {
	ID          string          `json:"id"`
	TagNumber   string          `json:"tag_number"`
	Breed       string          `json:"breed"`
	AgeMonths   int             `json:"age_months"`
	WeightKG    float64         `json:"weight_kg"`
	HealthNotes string          `json:"health_notes,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Status      string          `json:"status"`
	Images      []string        `json:"images"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toItemResponse(item domain.Item) itemResponse {
	images := item.Images
	if images == nil {
		images = []string{}
	}
	return itemResponse{
		ID:          item.ID,
		TagNumber:   item.TagNumber,
		Breed:       item.Breed,
		AgeMonths:   item.AgeMonths,
		WeightKG:    item.WeightKG,
		HealthNotes: item.HealthNotes,
		Price:       item.Price,
		Quantity:    item.Quantity,
		Status:      string(item.Status),
		Images:      images,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	response := make([]itemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toItemResponse(item))
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	item, err := s.catalog.Create(r.Context(), req.toInput())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toItemResponse(item))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	item, err := s.catalog.Update(r.Context(), mux.Vars(r)["id"], req.toInput())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_items":     stats.TotalItems,
		"available_items": stats.AvailableItems,
		"sold_items":      stats.SoldItems,
		"total_orders":    stats.TotalOrders,
		"revenue":         stats.Revenue,
	})
}
