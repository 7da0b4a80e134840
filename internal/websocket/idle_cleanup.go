package websocket

import (
	"time"

	"go.uber.org/zap"
)

// IdleCleanupService disconnects gateway clients that stopped sending
// anything, so abandoned tabs do not hold realtime sessions open.
type IdleCleanupService struct {
	hub      *Hub
	maxIdle  time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewIdleCleanupService creates a new idle cleanup service
func NewIdleCleanupService(hub *Hub, maxIdle time.Duration, logger *zap.Logger) *IdleCleanupService {
	return &IdleCleanupService{
		hub:      hub,
		maxIdle:  maxIdle,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *IdleCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Idle cleanup service started",
		zap.Duration("maxIdle", s.maxIdle))
}

// Stop gracefully stops the cleanup service
func (s *IdleCleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Idle cleanup service stopped")
}

// cleanupLoop runs the cleanup process periodically
func (s *IdleCleanupService) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if closed := s.hub.CloseIdle(s.maxIdle); closed > 0 {
				s.logger.Info("Closed idle clients", zap.Int("count", closed))
			}
		}
	}
}
