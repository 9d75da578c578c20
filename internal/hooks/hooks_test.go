package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/triggerd/internal/db"
	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/eventbus"
	"github.com/dokzlo13/triggerd/internal/storage"
)

type call struct {
	manual bool
	kind   debounce.Kind
	name   string
	active bool
}

type fakeEngine struct {
	calls chan call
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{calls: make(chan call, 10)}
}

func (f *fakeEngine) Handle(_ context.Context, kind debounce.Kind, name string, active bool) debounce.Result {
	f.calls <- call{kind: kind, name: name, active: active}
	return debounce.Result{Status: debounce.StatusAccepted, Message: "handled"}
}

func (f *fakeEngine) Trigger(_ context.Context, kind debounce.Kind, name string, active bool) debounce.Result {
	f.calls <- call{manual: true, kind: kind, name: name, active: active}
	return debounce.Result{Status: debounce.StatusSkipped, Message: "triggered"}
}

type staticSettings struct {
	gs debounce.GeneralSettings
}

func (s staticSettings) GeneralSettings(context.Context) (debounce.GeneralSettings, error) {
	return s.gs, nil
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hooks.lua")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func startRuntime(t *testing.T, script string, engine Engine, settings debounce.SettingsProvider) *Runtime {
	t.Helper()
	r := NewRuntime(10)
	r.Bind(engine, settings)
	if err := r.LoadScript(writeScript(t, script)); err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func globalString(t *testing.T, r *Runtime, name string) string {
	t.Helper()
	var out string
	err := r.DoSyncWithResult(context.Background(), func(context.Context) error {
		out = lua.LVAsString(r.L.GetGlobal(name))
		return nil
	})
	if err != nil {
		t.Fatalf("DoSyncWithResult() error = %v", err)
	}
	return out
}

func TestSink_CallsOnEvent(t *testing.T) {
	engine := newFakeEngine()
	r := startRuntime(t, `
local triggerd = require("triggerd")
local log = require("log")

function on_event(evt)
  log.info("event", {device = evt.device, kind = evt.kind})
  seen = evt.kind .. ":" .. evt.device .. ":" .. tostring(evt.active) .. ":" .. evt.source
  if evt.kind == "doorbell" and evt.active then
    triggerd.trigger("motion", "Hallway", true)
  end
end
`, engine, nil)

	sink := NewSink(r)
	if sink.Name() != "lua" {
		t.Errorf("Name() = %q, want lua", sink.Name())
	}

	err := sink.Record(context.Background(), eventbus.Event{
		ID:        "e1",
		Type:      eventbus.EventTypeDoorbell,
		Device:    "Front Door",
		Active:    true,
		Source:    "manual",
		Timestamp: time.Unix(1700000000, 0),
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	select {
	case c := <-engine.calls:
		want := call{manual: true, kind: debounce.KindMotion, name: "Hallway", active: true}
		if c != want {
			t.Errorf("call = %+v, want %+v", c, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("script did not call triggerd.trigger")
	}

	if got := globalString(t, r, "seen"); got != "doorbell:Front Door:true:manual" {
		t.Errorf("seen = %q", got)
	}
}

func TestTriggerModule_ReturnsStatus(t *testing.T) {
	engine := newFakeEngine()
	r := startRuntime(t, `
local triggerd = require("triggerd")
function probe()
  local status, message = triggerd.handle("motion", "Garage", false)
  result = status .. "/" .. message
end
`, engine, nil)

	err := r.DoSyncWithResult(context.Background(), func(context.Context) error {
		return r.L.CallByParam(lua.P{Fn: r.L.GetGlobal("probe"), NRet: 0, Protect: true})
	})
	if err != nil {
		t.Fatalf("probe() error = %v", err)
	}

	if got := globalString(t, r, "result"); got != "accepted/handled" {
		t.Errorf("result = %q", got)
	}
	c := <-engine.calls
	if c.manual || c.active || c.name != "Garage" {
		t.Errorf("call = %+v, want automated reset of Garage", c)
	}
}

func TestTriggerModule_Settings(t *testing.T) {
	settings := staticSettings{gs: debounce.GeneralSettings{AtHome: true, Exclude: []string{"Garage", "Porch"}}}
	r := startRuntime(t, `
local triggerd = require("triggerd")
local s = triggerd.settings()
summary = tostring(s.at_home) .. ":" .. #s.exclude .. ":" .. s.exclude[2]
`, newFakeEngine(), settings)

	if got := globalString(t, r, "summary"); got != "true:2:Porch" {
		t.Errorf("summary = %q", got)
	}
}

func TestSink_NoHandlerIsNoop(t *testing.T) {
	r := startRuntime(t, `x = 1`, newFakeEngine(), nil)

	if err := NewSink(r).Record(context.Background(), eventbus.Event{ID: "e1"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := globalString(t, r, "x"); got != "1" {
		t.Errorf("x = %q", got)
	}
}

func TestSink_ScriptErrorDoesNotStopRuntime(t *testing.T) {
	r := startRuntime(t, `
calls = 0
function on_event(evt)
  calls = calls + 1
  error("boom")
end
`, newFakeEngine(), nil)

	sink := NewSink(r)
	for i := 0; i < 2; i++ {
		if err := sink.Record(context.Background(), eventbus.Event{ID: "e"}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if got := globalString(t, r, "calls"); got != "2" {
		t.Errorf("calls = %q, want 2", got)
	}
}

func TestSink_QueueFull(t *testing.T) {
	r := NewRuntime(1)
	defer r.L.Close()
	sink := NewSink(r)

	if err := sink.Record(context.Background(), eventbus.Event{ID: "e1"}); err != nil {
		t.Fatalf("first Record() error = %v", err)
	}
	if err := sink.Record(context.Background(), eventbus.Event{ID: "e2"}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Record() error = %v, want ErrQueueFull", err)
	}
}

func TestRuntime_ClosedRejectsWork(t *testing.T) {
	r := NewRuntime(1)
	defer r.L.Close()
	r.Close()

	if r.Do(context.Background(), func(context.Context) {}) {
		t.Error("Do() accepted work after Close")
	}
	err := r.DoSyncWithResult(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, ErrRuntimeClosed) {
		t.Errorf("DoSyncWithResult() error = %v, want ErrRuntimeClosed", err)
	}
}

func TestLoadScript_SyntaxError(t *testing.T) {
	r := NewRuntime(1)
	defer r.L.Close()
	r.Bind(newFakeEngine(), nil)

	if err := r.LoadScript(writeScript(t, "function (")); err == nil {
		t.Error("LoadScript() error = nil for invalid script")
	}
}

func TestKVModule_RoundTrip(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	defer database.Close()
	store := storage.NewStore(database.DB)

	r := NewRuntime(10)
	r.Bind(newFakeEngine(), nil)
	r.BindStore(store)
	if err := r.LoadScript(writeScript(t, `
local kv = require("kv")
kv.set("rings", "Front Door", 3)
kv.set("rings", "Back Door", {last = "manual"})
kv.delete("rings", "Back Door")
count = kv.get("rings", "Front Door")
missing = kv.get("rings", "Back Door") == nil
keys = table.concat(kv.keys("rings"), ",")
`)); err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}
	defer r.L.Close()

	if got := lua.LVAsString(r.L.GetGlobal("count")); got != "3" {
		t.Errorf("count = %q, want 3", got)
	}
	if !lua.LVAsBool(r.L.GetGlobal("missing")) {
		t.Error("deleted key should read as nil")
	}
	if got := lua.LVAsString(r.L.GetGlobal("keys")); got != "Front Door" {
		t.Errorf("keys = %q", got)
	}

	doc, err := store.Get(context.Background(), "kv:rings", "Front Door")
	if err != nil || doc == nil || string(doc.Payload) != "3" {
		t.Errorf("stored document = %+v, %v", doc, err)
	}
}
