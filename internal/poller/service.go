// Package poller runs the host-side loop: request a fix at a fixed interval,
// log it and hand it to the configured outputs.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"i2cgps/internal/i2cgps"
)

// Reader is the part of *i2cgps.Driver the loop needs.
type Reader interface {
	ReadFix(ctx context.Context) (i2cgps.Reading, error)
}

// Sink receives every reading, including no-fix ones.
type Sink interface {
	PublishReading(now time.Time, r i2cgps.Reading) error
}

type Config struct {
	Interval time.Duration

	// Informational, copied into snapshots.
	Backend string
	Bus     string
	Address uint16
}

type Snapshot struct {
	Running  bool   `json:"running"`
	Backend  string `json:"backend,omitempty"`
	Bus      string `json:"bus,omitempty"`
	Address  string `json:"address"`
	Interval string `json:"interval"`

	Reads    uint64 `json:"reads"`
	Fixes    uint64 `json:"fixes"`
	NoFixes  uint64 `json:"no_fixes"`
	Errors   uint64 `json:"errors"`
	Timeouts uint64 `json:"timeouts"`

	Last       *i2cgps.Reading `json:"last,omitempty"`
	LastUTC    string          `json:"last_utc,omitempty"`
	LastFixUTC string          `json:"last_fix_utc,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
}

type Service struct {
	cfg   Config
	rd    Reader
	sinks []Sink
	log   *logrus.Entry
	now   func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	snap Snapshot
}

func New(cfg Config, rd Reader, log *logrus.Entry, sinks ...Sink) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		cfg:   cfg,
		rd:    rd,
		sinks: sinks,
		log:   log.WithField("prefix", "poller"),
		now:   time.Now,
		snap: Snapshot{
			Backend:  cfg.Backend,
			Bus:      cfg.Bus,
			Address:  fmt.Sprintf("0x%02X", cfg.Address),
			Interval: cfg.Interval.String(),
		},
	}
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("poller service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.rd == nil {
		return fmt.Errorf("poller reader is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.snap.Running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.snap.Running = false
			s.mu.Unlock()
		}()

		s.log.WithField("interval", s.cfg.Interval).Info("polling started")
		t := time.NewTicker(s.cfg.Interval)
		defer t.Stop()
		for {
			_, _ = s.Poll(childCtx)
			select {
			case <-childCtx.Done():
				return
			case <-t.C:
			}
		}
	}()
	return nil
}

// Poll performs one read cycle. A no-fix reading is returned with a nil
// error; the error is whatever the driver reported.
func (s *Service) Poll(ctx context.Context) (i2cgps.Reading, error) {
	r, err := s.rd.ReadFix(ctx)
	now := s.now().UTC()

	if err != nil {
		if ctx.Err() != nil {
			return r, err
		}
		s.recordError(err)
		entry := s.log.WithError(err)
		if errors.Is(err, i2cgps.ErrTimeout) {
			entry.Warn("gps not responding")
		} else {
			entry.Error("gps read failed")
		}
		return r, err
	}

	s.recordReading(now, r)
	if r.Valid() {
		f := r.Fix
		s.log.WithFields(logrus.Fields{
			"status": r.Status,
			"time":   f.Date.Time().Format(time.RFC3339),
			"lat":    f.Latitude,
			"lon":    f.Longitude,
			"alt_m":  f.Altitude,
			"kmh":    f.Speed,
		}).Info("fix")
	} else {
		s.log.WithField("status", r.Status).Info("no fix")
	}

	for _, sink := range s.sinks {
		if err := sink.PublishReading(now, r); err != nil {
			s.log.WithError(err).Warn("publish failed")
		}
	}
	return r, nil
}

func (s *Service) recordReading(now time.Time, r i2cgps.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Reads++
	rc := r
	if r.Fix != nil {
		f := *r.Fix
		rc.Fix = &f
		s.snap.Fixes++
		s.snap.LastFixUTC = now.Format(time.RFC3339Nano)
	} else {
		s.snap.NoFixes++
	}
	s.snap.Last = &rc
	s.snap.LastUTC = now.Format(time.RFC3339Nano)
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Reads++
	s.snap.Errors++
	if errors.Is(err, i2cgps.ErrTimeout) {
		s.snap.Timeouts++
	}
	s.snap.LastError = err.Error()
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	if out.Last != nil {
		r := *out.Last
		out.Last = &r
	}
	return out
}
