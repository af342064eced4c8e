package notification

import (
	"sync"
)

var (
	instance *Service
	once     sync.Once
	mu       sync.RWMutex
)

// Initialize sets up the global notification service instance
func Initialize(config *ServiceConfig, backend Backend, transport Transport) {
	once.Do(func() {
		instance = NewService(config, backend, transport)
	})
}

// GetService returns the global notification service instance
func GetService() *Service {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// SetService allows setting a custom service instance (mainly for testing)
func SetService(service *Service) {
	mu.Lock()
	defer mu.Unlock()
	instance = service
}

// IsInitialized checks if the notification service has been initialized
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return instance != nil
}
