package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"i2cgps/internal/i2cgps"
	"i2cgps/internal/logging"
)

type step struct {
	r   i2cgps.Reading
	err error
}

type fakeReader struct {
	mu    sync.Mutex
	steps []step
	calls int
	hit   chan struct{}
}

func (f *fakeReader) ReadFix(ctx context.Context) (i2cgps.Reading, error) {
	f.mu.Lock()
	f.calls++
	var st step
	if len(f.steps) > 0 {
		st = f.steps[0]
		f.steps = f.steps[1:]
	} else {
		st = step{r: i2cgps.NoFix()}
	}
	f.mu.Unlock()
	if f.hit != nil {
		select {
		case f.hit <- struct{}{}:
		default:
		}
	}
	return st.r, st.err
}

type fakeSink struct {
	got []i2cgps.Reading
	err error
}

func (s *fakeSink) PublishReading(now time.Time, r i2cgps.Reading) error {
	s.got = append(s.got, r)
	return s.err
}

func validReading() i2cgps.Reading {
	return i2cgps.Reading{Status: 0, Fix: &i2cgps.Fix{
		Date:      i2cgps.Date{Year: 2024, Month: 6, Day: 1, Hour: 12},
		Latitude:  35.6,
		Longitude: 139.7,
		Altitude:  10.5,
	}}
}

func TestPoll_CountsAndForwards(t *testing.T) {
	timeout := fmt.Errorf("%w: busy after 101 polls", i2cgps.ErrTimeout)
	rd := &fakeReader{steps: []step{
		{r: validReading()},
		{r: i2cgps.NoFix()},
		{err: timeout},
		{err: errors.New("remote I/O error")},
	}}
	sink := &fakeSink{}
	s := New(Config{Address: 0x58}, rd, logging.Discard(), sink)
	fixed := time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx := context.Background()
	if r, err := s.Poll(ctx); err != nil || !r.Valid() {
		t.Fatalf("poll 1: r=%v err=%v", r, err)
	}
	if r, err := s.Poll(ctx); err != nil || r.Valid() || r.Status != -1 {
		t.Fatalf("poll 2: r=%v err=%v", r, err)
	}
	if _, err := s.Poll(ctx); !errors.Is(err, i2cgps.ErrTimeout) {
		t.Fatalf("poll 3: err=%v want timeout", err)
	}
	if _, err := s.Poll(ctx); err == nil {
		t.Fatalf("poll 4: expected error")
	}

	snap := s.Snapshot()
	if snap.Reads != 4 || snap.Fixes != 1 || snap.NoFixes != 1 || snap.Errors != 2 || snap.Timeouts != 1 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.Address != "0x58" {
		t.Fatalf("address=%q", snap.Address)
	}
	if snap.Last == nil || snap.Last.Valid() {
		t.Fatalf("last=%v want no fix", snap.Last)
	}
	if snap.LastFixUTC != fixed.Format(time.RFC3339Nano) {
		t.Fatalf("last_fix_utc=%q", snap.LastFixUTC)
	}
	if snap.LastError != "remote I/O error" {
		t.Fatalf("last_error=%q", snap.LastError)
	}
	if len(sink.got) != 2 {
		t.Fatalf("sink got %d readings want 2", len(sink.got))
	}
}

func TestPoll_SinkErrorDoesNotFailRead(t *testing.T) {
	rd := &fakeReader{steps: []step{{r: validReading()}}}
	failing := &fakeSink{err: errors.New("broker down")}
	ok := &fakeSink{}
	s := New(Config{}, rd, logging.Discard(), failing, ok)

	if _, err := s.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error: %v", err)
	}
	if len(ok.got) != 1 {
		t.Fatalf("second sink skipped after first failed")
	}
	if snap := s.Snapshot(); snap.Errors != 0 {
		t.Fatalf("sink failure counted as read error")
	}
}

func TestStartClose_PollsUntilClosed(t *testing.T) {
	rd := &fakeReader{hit: make(chan struct{}, 1)}
	s := New(Config{Interval: 5 * time.Millisecond}, rd, logging.Discard())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-rd.hit:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for poll %d", i+1)
		}
	}
	if !s.Snapshot().Running {
		t.Fatalf("expected running")
	}
	s.Close()
	if s.Snapshot().Running {
		t.Fatalf("expected stopped after Close")
	}
	// Close is idempotent.
	s.Close()
}

func TestStart_RequiresReader(t *testing.T) {
	s := New(Config{}, nil, logging.Discard())
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
