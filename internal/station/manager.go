/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/stationloop/internal/config"
)

// ErrNotFound is returned for unknown station IDs.
var ErrNotFound = errors.New("station not found")

// Manager owns every station of the process.
type Manager struct {
	mu       sync.RWMutex
	stations map[string]*Station
	order    []string
	logger   zerolog.Logger
}

func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		stations: make(map[string]*Station),
		logger:   logger.With().Str("component", "manager").Logger(),
	}
}

// Build creates every configured station. It fails on the first station
// that cannot be built, leaving none registered.
func (m *Manager) Build(stations []config.StationConfig, deps Deps) error {
	built := make([]*Station, 0, len(stations))
	for _, sc := range stations {
		st, err := FromConfig(sc, deps)
		if err != nil {
			return err
		}
		built = append(built, st)
	}
	for _, st := range built {
		if err := m.Add(st); err != nil {
			return err
		}
	}
	return nil
}

// Add registers a station.
func (m *Manager) Add(st *Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stations[st.ID()]; ok {
		return fmt.Errorf("station %q already registered", st.ID())
	}
	m.stations[st.ID()] = st
	m.order = append(m.order, st.ID())
	return nil
}

// Get looks a station up by ID.
func (m *Manager) Get(id string) (*Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return st, nil
}

// List returns stations in registration order.
func (m *Manager) List() []*Station {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Station, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.stations[id])
	}
	return out
}

// Start starts the given stations, or all of them when ids is empty.
func (m *Manager) Start(ctx context.Context, ids ...string) error {
	targets := m.List()
	if len(ids) > 0 {
		targets = targets[:0:0]
		for _, id := range ids {
			st, err := m.Get(id)
			if err != nil {
				return err
			}
			targets = append(targets, st)
		}
	}
	for _, st := range targets {
		if err := st.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", st.ID(), err)
		}
	}
	m.logger.Info().Int("stations", len(targets)).Msg("stations started")
	return nil
}

// Shutdown stops every station concurrently and waits for them.
func (m *Manager) Shutdown(ctx context.Context) error {
	stations := m.List()
	errs := make([]error, len(stations))

	var wg sync.WaitGroup
	for i, st := range stations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.Stop(ctx); err != nil {
				errs[i] = fmt.Errorf("stop %s: %w", st.ID(), err)
			}
		}()
	}
	wg.Wait()

	m.logger.Info().Int("stations", len(stations)).Msg("stations stopped")
	return errors.Join(errs...)
}
