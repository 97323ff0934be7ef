package httpapi

import (
	"sync"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/obinnaokafor/stockyard/internal/service/cart"
	"github.com/obinnaokafor/stockyard/internal/service/catalog"
	"github.com/obinnaokafor/stockyard/internal/service/checkout"
	"github.com/obinnaokafor/stockyard/internal/service/orders"
)

// Server собирает HTTP-обработчики витрины поверх сервисного слоя.
type Server struct {
	catalog    *catalog.Service
	carts      *cart.Service
	checkout   *checkout.Orchestrator
	orders     *orders.Service
	adminToken string
	logger     *log.Entry

	// sessions связывает платёжную ссылку с сессией, начавшей чекаут:
	// callback провайдера приходит server-to-server, без заголовка сессии.
	mu       sync.Mutex
	sessions map[string]string
}

// NewServer создаёт HTTP-слой. Пустой adminToken отключает админские ручки.
func NewServer(
	catalogSvc *catalog.Service,
	cartSvc *cart.Service,
	checkoutSvc *checkout.Orchestrator,
	ordersSvc *orders.Service,
	adminToken string,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}
	return &Server{
		catalog:    catalogSvc,
		carts:      cartSvc,
		checkout:   checkoutSvc,
		orders:     ordersSvc,
		adminToken: adminToken,
		logger:     logger,
		sessions:   make(map[string]string),
	}
}

func (s *Server) rememberSession(reference, session string) {
	s.mu.Lock()
	s.sessions[reference] = session
	s.mu.Unlock()
}

func (s *Server) takeSession(reference string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessions[reference]
	delete(s.sessions, reference)
	return session
}

// Router строит маршрутизатор витрины.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()

	// Публичная витрина каталога.
	api.HandleFunc("/items", s.handleListItems).Methods("GET")
	api.HandleFunc("/items/{id}", s.handleGetItem).Methods("GET")

	// Корзина сессии.
	api.HandleFunc("/cart", s.handleGetCart).Methods("GET")
	api.HandleFunc("/cart", s.handleClearCart).Methods("DELETE")
	api.HandleFunc("/cart/items", s.handleAddToCart).Methods("POST")
	api.HandleFunc("/cart/items/{id}", s.handleRemoveFromCart).Methods("DELETE")

	// Чекаут и callback провайдера.
	api.HandleFunc("/checkout", s.handleBeginCheckout).Methods("POST")
	api.HandleFunc("/payments/callback", s.handlePaymentCallback).Methods("POST")

	// История заказов покупателя.
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")

	// Админка.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/items", s.handleCreateItem).Methods("POST")
	admin.HandleFunc("/items/{id}", s.handleUpdateItem).Methods("PUT")
	admin.HandleFunc("/items/{id}", s.handleDeleteItem).Methods("DELETE")
	admin.HandleFunc("/orders", s.handleAdminListOrders).Methods("GET")
	admin.HandleFunc("/orders/{id}/delivery", s.handleUpdateDelivery).Methods("PUT")
	admin.HandleFunc("/stats", s.handleStats).Methods("GET")

	return r
}
