package hooks

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/triggerd/internal/debounce"
)

// triggerModule lets scripts raise events and read settings:
//
//	local triggerd = require("triggerd")
//	local status, message = triggerd.trigger("doorbell", "Front Door", true)
//	local status, message = triggerd.handle("motion", "Garage", false)
//	local s = triggerd.settings()  -- {at_home = bool, exclude = {...}}
type triggerModule struct {
	engine   Engine
	settings debounce.SettingsProvider
}

func newTriggerModule(engine Engine, settings debounce.SettingsProvider) *triggerModule {
	return &triggerModule{engine: engine, settings: settings}
}

func (m *triggerModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "trigger", L.NewFunction(m.call(true)))
	L.SetField(mod, "handle", L.NewFunction(m.call(false)))
	L.SetField(mod, "settings", L.NewFunction(m.readSettings))

	L.Push(mod)
	return 1
}

func (m *triggerModule) call(manual bool) lua.LGFunction {
	return func(L *lua.LState) int {
		kind := debounce.Kind(L.CheckString(1))
		name := L.CheckString(2)
		active := L.OptBool(3, true)

		ctx := L.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var res debounce.Result
		if manual {
			res = m.engine.Trigger(ctx, kind, name, active)
		} else {
			res = m.engine.Handle(ctx, kind, name, active)
		}

		L.Push(lua.LString(res.Status))
		L.Push(lua.LString(res.Message))
		return 2
	}
}

func (m *triggerModule) readSettings(L *lua.LState) int {
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var gs debounce.GeneralSettings
	if m.settings != nil {
		var err error
		if gs, err = m.settings.GeneralSettings(ctx); err != nil {
			L.RaiseError("read settings: %s", err.Error())
			return 0
		}
	}

	tbl := L.NewTable()
	tbl.RawSetString("at_home", lua.LBool(gs.AtHome))
	exclude := L.NewTable()
	for _, name := range gs.Exclude {
		exclude.Append(lua.LString(name))
	}
	tbl.RawSetString("exclude", exclude)

	L.Push(tbl)
	return 1
}
