// Package lifecycle retires rooms that no longer warrant keeping: rooms
// occupied only by insured-person hosts past a grace period, and rooms with
// no message activity past a grace period. Qualifying rooms get exactly one
// outstanding purge task on the external scheduler.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"timgate/internal/roomstate"
	"timgate/internal/scheduler"
	"timgate/pkg/mxid"
)

// PurgeAction is the scheduler action that kicks all members and deletes
// the room.
const PurgeAction = "shutdown_and_purge_room"

// minInterval is the floor the scan interval is clamped to.
const minInterval = time.Hour

// InsuranceClassifier answers whether a domain serves insured persons.
type InsuranceClassifier interface {
	IsInsurance(ctx context.Context, domain string) (bool, error)
}

// Config controls the scanner. An Interval of zero disables it entirely;
// any other value below one hour is clamped up.
type Config struct {
	Interval           time.Duration
	InsuredOnlyEnabled bool
	InsuredOnlyGrace   time.Duration
	InactiveEnabled    bool
	InactiveGrace      time.Duration
}

// Scanner runs the periodic room scans. It is pinned to a single worker;
// a cycle starts only after the previous one finished.
type Scanner struct {
	cfg        Config
	rooms      roomstate.Store
	classifier InsuranceClassifier
	tasks      scheduler.TaskScheduler
	now        func() time.Time
	logger     *slog.Logger
	metrics    *Metrics
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// WithMetrics attaches scan metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// NewScanner constructs a Scanner. The interval is clamped to at least one
// hour unless it is zero.
func NewScanner(cfg Config, rooms roomstate.Store, classifier InsuranceClassifier, tasks scheduler.TaskScheduler, opts ...Option) (*Scanner, error) {
	if rooms == nil {
		return nil, fmt.Errorf("room store is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("insurance classifier is required")
	}
	if tasks == nil {
		return nil, fmt.Errorf("task scheduler is required")
	}
	if cfg.Interval != 0 && cfg.Interval < minInterval {
		cfg.Interval = minInterval
	}
	s := &Scanner{
		cfg:        cfg,
		rooms:      rooms,
		classifier: classifier,
		tasks:      tasks,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes scan cycles until the context is cancelled. It returns
// immediately when the interval is zero.
func (s *Scanner) Run(ctx context.Context) error {
	if s.cfg.Interval == 0 {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "room lifecycle scanner disabled")
		}
		return nil
	}
	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if err := s.ScanOnce(ctx); err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "room scan failed", "error", err)
			}
		}
		timer.Reset(s.cfg.Interval)
	}
}

// ScanOnce runs one full scan cycle: the insured-only pass, the inactivity
// pass over the remaining rooms, and idempotent purge scheduling for every
// marked room.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	s.metrics.ObserveScan()
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}

	now := s.now()
	marked := make(map[string]struct{})

	if s.cfg.InsuredOnlyEnabled {
		for _, room := range rooms {
			expired, err := s.insuredOnlyExpired(ctx, room, now)
			if err != nil {
				return fmt.Errorf("insured-only scan of %s: %w", room.RoomID, err)
			}
			if expired {
				marked[room.RoomID] = struct{}{}
			}
		}
	}

	if s.cfg.InactiveEnabled {
		for _, room := range rooms {
			if _, ok := marked[room.RoomID]; ok {
				continue
			}
			expired, err := s.inactiveExpired(ctx, room, now)
			if err != nil {
				return fmt.Errorf("inactivity scan of %s: %w", room.RoomID, err)
			}
			if expired {
				marked[room.RoomID] = struct{}{}
			}
		}
	}

	for roomID := range marked {
		if err := s.schedulePurge(ctx, roomID, now); err != nil {
			return err
		}
	}
	return nil
}

// insuredOnlyExpired reports whether the room's hosts are all insurance
// domains and the grace period since the last non-insurance departure (or
// room creation, if none ever joined) has elapsed.
func (s *Scanner) insuredOnlyExpired(ctx context.Context, room roomstate.RoomInfo, now time.Time) (bool, error) {
	hosts, err := s.rooms.RoomHosts(ctx, room.RoomID)
	if err != nil {
		return false, err
	}
	if len(hosts) == 0 {
		return false, nil
	}
	for _, host := range hosts {
		insured, err := s.classifier.IsInsurance(ctx, host)
		if err != nil {
			return false, err
		}
		if !insured {
			return false, nil
		}
	}

	since := room.CreatedAt
	leaves, err := s.rooms.MembershipLeaves(ctx, room.RoomID)
	if err != nil {
		return false, err
	}
	for _, leave := range leaves {
		insured, err := s.classifier.IsInsurance(ctx, mxid.DomainOf(leave.UserID))
		if err != nil {
			return false, err
		}
		if !insured {
			since = leave.At
			break
		}
	}
	return !now.Before(since.Add(s.cfg.InsuredOnlyGrace)), nil
}

// inactiveExpired reports whether the grace period since the room's last
// message (or its creation, if none was ever sent) has elapsed.
func (s *Scanner) inactiveExpired(ctx context.Context, room roomstate.RoomInfo, now time.Time) (bool, error) {
	last, err := s.rooms.LastMessageAt(ctx, room.RoomID)
	if err != nil {
		return false, err
	}
	if last.IsZero() {
		last = room.CreatedAt
	}
	return !now.Before(last.Add(s.cfg.InactiveGrace)), nil
}

// schedulePurge creates a purge task unless one is already scheduled or
// active for the room.
func (s *Scanner) schedulePurge(ctx context.Context, roomID string, now time.Time) error {
	existing, err := s.tasks.Tasks(ctx, []string{PurgeAction}, roomID,
		[]scheduler.Status{scheduler.StatusScheduled, scheduler.StatusActive})
	if err != nil {
		return fmt.Errorf("query purge tasks for %s: %w", roomID, err)
	}
	if len(existing) > 0 {
		return nil
	}

	taskID, err := s.tasks.Schedule(ctx, PurgeAction, roomID, map[string]any{"force_purge": true}, now)
	if err != nil {
		return fmt.Errorf("schedule purge for %s: %w", roomID, err)
	}
	s.metrics.ObservePurgeScheduled()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "room purge scheduled",
			"room_id", roomID,
			"task_id", taskID,
		)
	}
	return nil
}
