package script

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/pulse/internal/event"
	"github.com/dshills/pulse/internal/hook"
)

// Script is a loaded Lua source exposing global functions as event and
// hook handlers.
//
// gopher-lua's LState is not goroutine-safe; every call into the state
// is serialized by the script's mutex, so handlers built from one
// Script never run a Lua function concurrently.
type Script struct {
	name string

	mu     sync.Mutex
	state  *lua.LState
	closed bool
}

// Load compiles and runs Lua source, returning a Script bound to the
// resulting state.
func Load(name, source string) (*Script, error) {
	L := lua.NewState()
	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrScriptLoad, name, err)
	}
	return &Script{name: name, state: L}, nil
}

// LoadFile compiles and runs a Lua source file.
func LoadFile(path string) (*Script, error) {
	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrScriptLoad, path, err)
	}
	return &Script{name: path, state: L}, nil
}

// Name returns the script name (or path for LoadFile).
func (s *Script) Name() string {
	return s.name
}

// Close releases the Lua state. Handlers invoked after Close return
// ErrScriptClosed.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.state.Close()
	}
}

// HasFunction returns true if the script defines the named global
// function.
func (s *Script) HasFunction(fn string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	_, ok := s.state.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// EventHandler returns an event.Handler that calls the named global
// function with a table describing the event:
//
//	{ topic = "auth.login", id = "...", source = "...", payload = <converted payload> }
//
// The function may return nothing or true for success, false or an
// error string for failure.
func (s *Script) EventHandler(fn string) (event.Handler, error) {
	if !s.HasFunction(fn) {
		return nil, fmt.Errorf("%w: %s in %s", ErrFunctionNotFound, fn, s.name)
	}

	return event.HandlerFunc(func(ctx context.Context, ev event.Envelope) error {
		ret, err := s.call(fn, func(L *lua.LState) lua.LValue {
			tbl := L.NewTable()
			tbl.RawSetString("topic", lua.LString(ev.Topic.String()))
			tbl.RawSetString("id", lua.LString(ev.Meta.ID))
			tbl.RawSetString("source", lua.LString(ev.Meta.Source))
			tbl.RawSetString("payload", toLua(L, ev.Payload))
			return tbl
		})
		if err != nil {
			return err
		}
		return resultToError(ret)
	}), nil
}

// HookHandler returns a hook.Handler that calls the named global
// function with the hook context as a table. A returned table becomes
// the partial context update; a string return is treated as an error.
func (s *Script) HookHandler(fn string) (hook.Handler, error) {
	if !s.HasFunction(fn) {
		return nil, fmt.Errorf("%w: %s in %s", ErrFunctionNotFound, fn, s.name)
	}

	return func(ctx context.Context, hc hook.Context) (hook.Context, error) {
		ret, err := s.call(fn, func(L *lua.LState) lua.LValue {
			return toLua(L, map[string]any(hc))
		})
		if err != nil {
			return nil, err
		}

		switch v := fromLua(ret).(type) {
		case map[string]any:
			return hook.Context(v), nil
		case string:
			if v != "" {
				return nil, fmt.Errorf("%s: %s", s.name, v)
			}
			return nil, nil
		case bool:
			if !v {
				return nil, fmt.Errorf("%s: %s returned failure", s.name, fn)
			}
			return nil, nil
		default:
			return nil, nil
		}
	}, nil
}

// call invokes a global function with one argument built by mkArg,
// returning its first result.
func (s *Script) call(fn string, mkArg func(L *lua.LState) lua.LValue) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil, ErrScriptClosed
	}

	L := s.state
	target, ok := L.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return lua.LNil, fmt.Errorf("%w: %s in %s", ErrFunctionNotFound, fn, s.name)
	}

	err := L.CallByParam(lua.P{
		Fn:      target,
		NRet:    1,
		Protect: true,
	}, mkArg(L))
	if err != nil {
		return lua.LNil, fmt.Errorf("%s: %s: %v", s.name, fn, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// resultToError interprets an event handler's Lua return value.
// nil and true mean success; false and non-empty strings are errors.
func resultToError(ret lua.LValue) error {
	switch v := ret.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		if !bool(v) {
			return fmt.Errorf("script handler returned failure")
		}
		return nil
	case lua.LString:
		if string(v) != "" {
			return fmt.Errorf("%s", string(v))
		}
		return nil
	default:
		return nil
	}
}
