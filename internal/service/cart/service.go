package cart

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

// Service хранит корзины по идентификатору сессии. Корзина — клиентское
// выделение товаров: сервер не резервирует сток до коммита чекаута.
// Снапшот на диске переживает рестарт процесса.
type Service struct {
	mu     sync.RWMutex
	carts  map[string]domain.Cart
	path   string
	logger *log.Entry
}

// Option настраивает Service.
type Option func(*Service)

// WithSnapshotPath включает сохранение корзин в JSON-файл.
func WithSnapshotPath(path string) Option {
	return func(s *Service) {
		s.path = path
	}
}

// WithLogger задает logger для сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService создаёт сервис корзин и, если задан путь снапшота,
// восстанавливает состояние с диска.
func NewService(options ...Option) *Service {
	s := &Service{
		carts: make(map[string]domain.Cart),
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "cart")
	}

	if s.path != "" {
		if err := s.restore(); err != nil {
			s.logger.WithError(err).Warn("failed to restore cart snapshot, starting empty")
		}
	}

	return s
}

// Add кладёт товар в корзину сессии. Повторное добавление того же товара —
// no-op: корзина является множеством по ItemID.
func (s *Service) Add(sessionID string, item domain.Item) (domain.Cart, error) {
	if sessionID == "" {
		return domain.Cart{}, fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.carts[sessionID]
	cart.SessionID = sessionID
	if !cart.Contains(item.ID) {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ItemID:    item.ID,
			Breed:     item.Breed,
			TagNumber: item.TagNumber,
			Image:     item.PrimaryImage(),
			Price:     item.Price,
			AddedAt:   time.Now().UTC(),
		})
		cart.UpdatedAt = time.Now().UTC()
	}
	s.carts[sessionID] = cart
	s.persistLocked()

	return cloneCart(cart), nil
}

// Remove убирает товар из корзины. Отсутствующий товар — no-op.
func (s *Service) Remove(sessionID, itemID string) (domain.Cart, error) {
	if sessionID == "" {
		return domain.Cart{}, fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.carts[sessionID]
	cart.SessionID = sessionID
	for i, line := range cart.Lines {
		if line.ItemID == itemID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			cart.UpdatedAt = time.Now().UTC()
			break
		}
	}
	s.carts[sessionID] = cart
	s.persistLocked()

	return cloneCart(cart), nil
}

// Clear опустошает корзину сессии.
func (s *Service) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
	s.persistLocked()
}

// Get возвращает текущее содержимое корзины.
func (s *Service) Get(sessionID string) domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart := s.carts[sessionID]
	cart.SessionID = sessionID
	return cloneCart(cart)
}

// persistLocked пишет снапшот на диск; вызывается только под mu.
func (s *Service) persistLocked() {
	if s.path == "" {
		return
	}

	data, err := json.MarshalIndent(s.carts, "", "  ")
	if err != nil {
		s.logger.WithError(err).Warn("failed to encode cart snapshot")
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.WithError(err).Warn("failed to write cart snapshot")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.WithError(err).Warn("failed to replace cart snapshot")
	}
}

func (s *Service) restore() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			if dir := filepath.Dir(s.path); dir != "." {
				return os.MkdirAll(dir, 0o755)
			}
			return nil
		}
		return fmt.Errorf("read cart snapshot: %w", err)
	}

	carts := make(map[string]domain.Cart)
	if err := json.Unmarshal(data, &carts); err != nil {
		return fmt.Errorf("decode cart snapshot: %w", err)
	}

	s.carts = carts
	return nil
}

func cloneCart(cart domain.Cart) domain.Cart {
	clone := cart
	clone.Lines = append([]domain.CartLine(nil), cart.Lines...)
	return clone
}
