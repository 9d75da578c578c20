package hooks

import (
	"context"
	"encoding/json"

	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/triggerd/internal/storage"
)

const kvKindPrefix = "kv:"

// kvModule gives scripts persistent buckets in the state store:
//
//	local kv = require("kv")
//	kv.set("rings", "Front Door", 3)
//	local n = kv.get("rings", "Front Door")  -- nil when missing
//	kv.delete("rings", "Front Door")  -- true if it existed
//	local names = kv.keys("rings")
type kvModule struct {
	store *storage.Store
}

func (m *kvModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "get", L.NewFunction(m.get))
	L.SetField(mod, "set", L.NewFunction(m.set))
	L.SetField(mod, "delete", L.NewFunction(m.delete))
	L.SetField(mod, "keys", L.NewFunction(m.keys))

	L.Push(mod)
	return 1
}

func luaContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// get(bucket, key) -> value or nil
func (m *kvModule) get(L *lua.LState) int {
	bucket := L.CheckString(1)
	key := L.CheckString(2)

	doc, err := m.store.Get(luaContext(L), kvKindPrefix+bucket, key)
	if err != nil {
		L.RaiseError("kv.get: %s", err.Error())
		return 0
	}
	if doc == nil {
		L.Push(lua.LNil)
		return 1
	}

	var v interface{}
	if err := json.Unmarshal(doc.Payload, &v); err != nil {
		L.RaiseError("kv.get: %s", err.Error())
		return 0
	}
	L.Push(goToLua(L, v))
	return 1
}

// set(bucket, key, value)
func (m *kvModule) set(L *lua.LState) int {
	bucket := L.CheckString(1)
	key := L.CheckString(2)
	value := L.CheckAny(3)

	payload, err := json.Marshal(luaToGo(value))
	if err != nil {
		L.RaiseError("kv.set: %s", err.Error())
		return 0
	}
	if _, err := m.store.Put(luaContext(L), kvKindPrefix+bucket, key, payload); err != nil {
		L.RaiseError("kv.set: %s", err.Error())
	}
	return 0
}

// delete(bucket, key) -> existed
func (m *kvModule) delete(L *lua.LState) int {
	bucket := L.CheckString(1)
	key := L.CheckString(2)

	existed, err := m.store.Delete(luaContext(L), kvKindPrefix+bucket, key)
	if err != nil {
		L.RaiseError("kv.delete: %s", err.Error())
		return 0
	}
	L.Push(lua.LBool(existed))
	return 1
}

// keys(bucket) -> keys ordered by name
func (m *kvModule) keys(L *lua.LState) int {
	bucket := L.CheckString(1)

	docs, err := m.store.List(luaContext(L), kvKindPrefix+bucket)
	if err != nil {
		L.RaiseError("kv.keys: %s", err.Error())
		return 0
	}

	tbl := L.NewTable()
	for _, doc := range docs {
		tbl.Append(lua.LString(doc.ID))
	}
	L.Push(tbl)
	return 1
}
