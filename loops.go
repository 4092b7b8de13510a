package manager

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/schedule"
)

func (m *Manager) runInALoop(ctx context.Context, name string, interval time.Duration, callback func(ctx context.Context) error) {
	m.stopWg.Add(1)
	ticker := time.NewTicker(interval)

	go func() {
		defer func() {
			ticker.Stop()
			m.stopWg.Done()
		}()
		for {
			select {
			case <-ctx.Done():
				log.Printf("%s loop done by context", name)
				return
			case <-ticker.C:
				if err := callback(ctx); err != nil {
					log.Printf("%s callback failed: %v", name, err)
				}
			}
		}
	}()
}

// Start runs the status poller. It does nothing without a presale or with
// zero StatusInterval.
func (m *Manager) Start() {
	if m.presale == nil || m.settings.StatusInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	if err := m.pollStatus(ctx); err != nil {
		log.Printf("status callback failed: %v", err)
	}
	m.runInALoop(ctx, "status", m.settings.StatusInterval, m.pollStatus)
}

func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	m.stopWg.Wait()
	return nil
}

func (m *Manager) pollStatus(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch status: %w", err)
	}
	m.mu.Lock()
	prev := m.lastStatus
	m.lastStatus = status
	m.mu.Unlock()

	if prev != nil && prev.Phase != status.Phase {
		log.Printf("Presale phase changed: %s -> %s", prev.Phase, status.Phase)
	}
	days, hours := schedule.TimeLeft(status.CurrentTime, status.EndTime)
	log.Printf("Presale %s: %s, raised %s/%s %s (%.2f%%), %dd %dh left",
		status.Address.Hex(), status.Phase,
		common.FormatEther(status.TotalRaised), common.FormatEther(status.HardCap), common.NativeSymbol,
		status.ProgressPercent, days, hours)
	return nil
}

// LastStatus returns the status seen by the poller, nil before the first
// successful poll.
func (m *Manager) LastStatus() *common.PresaleStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStatus
}
