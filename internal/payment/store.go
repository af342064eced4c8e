package payment

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farmbridge/notify/internal/errors"
)

// Store persists pending orders in a local sqlite database so an
// interrupted gateway round-trip survives a process restart.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the pending order database at the given
// path.
func NewStore(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("payment").
			Category(errors.CategoryDatabase).
			Context("operation", "open").
			Build()
	}

	if err := db.AutoMigrate(&PendingOrder{}); err != nil {
		return nil, errors.New(err).
			Component("payment").
			Category(errors.CategoryDatabase).
			Context("operation", "migrate").
			Build()
	}

	return &Store{db: db}, nil
}

// SavePendingOrder persists a new pending order before the user is handed
// to the gateway.
func (s *Store) SavePendingOrder(order *PendingOrder) error {
	if order.OrderID == "" {
		return errors.Newf("pending order requires an order id").
			Component("payment").
			Category(errors.CategoryValidation).
			Build()
	}
	if order.Status == "" {
		order.Status = StatusPending
	}

	if err := s.db.Create(order).Error; err != nil {
		return errors.New(err).
			Component("payment").
			Category(errors.CategoryDatabase).
			Context("operation", "save_pending_order").
			Build()
	}
	return nil
}

// GetByOrderID retrieves a pending order by its order reference.
func (s *Store) GetByOrderID(orderID string) (*PendingOrder, error) {
	var order PendingOrder
	err := s.db.Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("pending order %s not found", orderID).
				Component("payment").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, errors.New(err).
			Component("payment").
			Category(errors.CategoryDatabase).
			Build()
	}
	return &order, nil
}

// LatestPending retrieves the most recent unresolved order for a session.
// Used when the gateway redirect does not echo the order reference.
func (s *Store) LatestPending(sessionID string) (*PendingOrder, error) {
	var order PendingOrder
	err := s.db.
		Where("session_id = ? AND status = ?", sessionID, StatusPending).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("no pending order for session").
				Component("payment").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, errors.New(err).
			Component("payment").
			Category(errors.CategoryDatabase).
			Build()
	}
	return &order, nil
}

// MarkActivated records a successful resolution. The order is kept, not
// deleted, as the local record of the purchase.
func (s *Store) MarkActivated(orderID string) error {
	now := time.Now()
	err := s.db.Model(&PendingOrder{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"status":      StatusActivated,
			"resolved_at": &now,
		}).Error
	if err != nil {
		return errors.New(err).
			Component("payment").
			Category(errors.CategoryDatabase).
			Context("operation", "mark_activated").
			Build()
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
