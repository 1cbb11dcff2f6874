package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"erbgo/internal/erb"
	"erbgo/internal/helpers"
)

// Lua runs programs on gopher-lua. Chunks are compiled once to a
// FunctionProto; each Execute gets a fresh LState.
type Lua struct {
	programs *programCache
}

// NewLua creates the gopher-lua evaluator.
func NewLua() *Lua {
	return &Lua{programs: newProgramCache()}
}

func (e *Lua) Dialect() erb.Dialect { return erb.Lua{} }

// ClearCache drops every compiled chunk.
func (e *Lua) ClearCache() { e.programs.flush() }

func (e *Lua) Execute(ctx context.Context, exec *erb.Execution) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compiled, err := e.programs.getOrCompile(cacheKey("lua", exec.Filename, exec.Program), "lua", func() (interface{}, error) {
		chunk, err := parse.Parse(strings.NewReader(exec.Program), exec.Filename)
		if err != nil {
			return nil, err
		}
		return lua.Compile(chunk, exec.Filename)
	})
	if err != nil {
		return nil, err
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openLuaLibs(L, exec.Isolation)
	for name, fn := range helpers.Funcs() {
		L.SetGlobal(name, L.NewFunction(luaHelper(fn)))
	}
	for name, value := range exec.Vars {
		L.SetGlobal(name, toLValue(L, value))
	}

	L.Push(L.NewFunctionFromProto(compiled.(*lua.FunctionProto)))
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return fromLValue(ret), nil
}

func luaHelper(fn helpers.Func) lua.LGFunction {
	return func(L *lua.LState) int {
		arg := L.Get(1)
		s := ""
		if arg != lua.LNil {
			s = L.ToStringMeta(arg).String()
		}
		L.Push(lua.LString(fn(s)))
		return 1
	}
}

type luaLib struct {
	name string
	open lua.LGFunction
}

var restrictedLibs = []luaLib{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

var (
	loaderGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}
	strictGlobals = []string{"setmetatable", "getmetatable", "rawget", "rawset", "rawequal", "getfenv", "setfenv"}
)

func openLuaLibs(L *lua.LState, level erb.IsolationLevel) {
	if level == erb.IsolationNone {
		L.OpenLibs()
		return
	}

	for _, lib := range restrictedLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range loaderGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if level >= erb.IsolationStrict {
		for _, name := range strictGlobals {
			L.SetGlobal(name, lua.LNil)
		}
	}
}

// toLValue converts a Go value into Lua. Values without a direct mapping go
// through their JSON form.
func toLValue(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return lua.LString(val.String())
		}
		return lua.LNumber(f)
	case []interface{}:
		tbl := L.CreateTable(len(val), 0)
		for _, item := range val {
			tbl.Append(toLValue(L, item))
		}
		return tbl
	case map[string]interface{}:
		tbl := L.CreateTable(0, len(val))
		for k, item := range val {
			tbl.RawSetString(k, toLValue(L, item))
		}
		return tbl
	case map[interface{}]interface{}:
		tbl := L.CreateTable(0, len(val))
		for k, item := range val {
			tbl.RawSetString(fmt.Sprint(k), toLValue(L, item))
		}
		return tbl
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Func {
		return lua.LNil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return lua.LString(fmt.Sprint(v))
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return lua.LString(fmt.Sprint(v))
	}
	return toLValue(L, generic)
}

// fromLValue converts a Lua value back into Go. Tables with only a
// contiguous 1..n sequence become slices, everything else a map.
func fromLValue(v lua.LValue) interface{} {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 && countKeys(val) == n {
			out := make([]interface{}, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLValue(val.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]interface{})
		val.ForEach(func(k, item lua.LValue) {
			out[k.String()] = fromLValue(item)
		})
		return out
	default:
		return v.String()
	}
}

func countKeys(tbl *lua.LTable) int {
	n := 0
	tbl.ForEach(func(lua.LValue, lua.LValue) { n++ })
	return n
}
