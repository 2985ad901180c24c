package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/logging"
)

// DefaultScanWindow is how long one Discover call listens for advertisements
const DefaultScanWindow = 5 * time.Second

// Scanner discovers advertising peripherals
type Scanner struct {
	adapter *bluetooth.Adapter
	Window  time.Duration

	enableOnce sync.Once
	enableErr  error

	// one scan at a time per adapter
	mu sync.Mutex
}

// NewScanner creates a scanner on the given adapter
func NewScanner(adapter *bluetooth.Adapter) *Scanner {
	return &Scanner{adapter: adapter, Window: DefaultScanWindow}
}

func (s *Scanner) enable() error {
	s.enableOnce.Do(func() {
		if err := s.adapter.Enable(); err != nil {
			s.enableErr = fmt.Errorf("enable bluetooth adapter: %w", err)
		}
	})
	return s.enableErr
}

// Discover listens for one scan window and returns every device seen, in
// the order first seen. A later advertisement from the same address fills
// in a missing name and refreshes the RSSI.
func (s *Scanner) Discover(ctx context.Context) ([]gatt.Device, error) {
	if err := s.enable(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.Window
	if window <= 0 {
		window = DefaultScanWindow
	}
	scanCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	// StopScan is repeated until Scan returns in case the window closes
	// before the scan has started
	scanDone := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-scanCtx.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			if err := s.adapter.StopScan(); err != nil {
				logging.Debug("StopScan failed", zap.Error(err))
			}
			select {
			case <-scanDone:
				return
			case <-ticker.C:
			}
		}
	}()

	var (
		mu    sync.Mutex
		order []string
		seen  = make(map[string]*gatt.Device)
	)
	err := s.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		addr := result.Address.String()
		name := result.LocalName()

		mu.Lock()
		defer mu.Unlock()
		d, ok := seen[addr]
		if !ok {
			d = &gatt.Device{Address: addr}
			seen[addr] = d
			order = append(order, addr)
			logging.Debug("Device found", zap.String("address", addr), zap.String("name", name))
		}
		if name != "" {
			d.Name = name
		}
		d.RSSI = int(result.RSSI)
	})
	close(scanDone)
	cancel()
	<-stopped

	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	mu.Lock()
	defer mu.Unlock()
	devices := make([]gatt.Device, 0, len(order))
	for _, addr := range order {
		devices = append(devices, *seen[addr])
	}
	return devices, nil
}
