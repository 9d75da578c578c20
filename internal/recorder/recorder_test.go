package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/triggerd/internal/db"
	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/eventbus"
	"github.com/dokzlo13/triggerd/internal/ledger"
)

type chanSink struct {
	name   string
	err    error
	events chan eventbus.Event
}

func newChanSink(name string, err error) *chanSink {
	return &chanSink{name: name, err: err, events: make(chan eventbus.Event, 10)}
}

func (s *chanSink) Name() string { return s.name }

func (s *chanSink) Record(_ context.Context, e eventbus.Event) error {
	s.events <- e
	return s.err
}

func receive(t *testing.T, ch <-chan eventbus.Event) eventbus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return eventbus.Event{}
	}
}

func TestRecorder_NotifyFansOut(t *testing.T) {
	bus := eventbus.NewWithConfig(2, 10)
	defer bus.Close(context.Background())

	r := New(bus)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	a := newChanSink("a", nil)
	b := newChanSink("b", errors.New("down"))
	r.Attach(context.Background(), a, b)

	r.Notify(debounce.KindDoorbell, "Front Door", true)

	ea := receive(t, a.events)
	eb := receive(t, b.events)
	if ea.ID == "" || ea.ID != eb.ID {
		t.Errorf("event IDs = %q, %q, want the same non-empty ID", ea.ID, eb.ID)
	}
	if ea.Type != eventbus.EventTypeDoorbell || ea.Device != "Front Door" || !ea.Active {
		t.Errorf("event = %+v", ea)
	}
	if ea.Source != SourceManual || !ea.Timestamp.Equal(fixed) {
		t.Errorf("source/timestamp = %q/%v", ea.Source, ea.Timestamp)
	}
}

func TestRecorder_ImplementsDebounceRecorder(t *testing.T) {
	var _ debounce.Recorder = New(eventbus.New())
}

func TestLedgerSink_Record(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	l := ledger.New(database.DB)
	bus := eventbus.NewWithConfig(1, 10)
	r := New(bus)

	var wg sync.WaitGroup
	wg.Add(1)
	r.Attach(context.Background(), NewLedgerSink(l))
	bus.Subscribe("counter", func(eventbus.Event) { wg.Done() })

	r.Notify(debounce.KindMotion, "Garage", false)
	wg.Wait()
	bus.Close(context.Background())

	got, err := l.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Device != "Garage" || got[0].Active || got[0].Source != SourceManual {
		t.Errorf("ledger = %+v", got)
	}
}
