package script

import (
	lua "github.com/yuin/gopher-lua"
)

// toLua converts a Go value to a Lua value. Unsupported types convert
// to nil.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, toLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLua(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// fromLua converts a Lua value to a Go value. Tables with contiguous
// integer keys starting at 1 become slices; other tables become maps.
// Functions and userdata convert to nil.
func fromLua(lv lua.LValue) any {
	return fromLuaVisited(lv, make(map[*lua.LTable]bool))
}

func fromLuaVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			// Break circular references.
			return nil
		}
		// visited tracks the current conversion path, not every table
		// ever seen: unmarking on return lets a table shared by two
		// branches convert in both places.
		visited[v] = true
		out := tableFromLua(v, visited)
		delete(visited, v)
		return out
	default:
		return nil
	}
}

func tableFromLua(t *lua.LTable, visited map[*lua.LTable]bool) any {
	length := t.Len()
	if length > 0 {
		// Verify the table is a pure array before converting to a slice.
		count := 0
		isArray := true
		t.ForEach(func(k, _ lua.LValue) {
			count++
			kn, ok := k.(lua.LNumber)
			if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 || int(kn) > length {
				isArray = false
			}
		})
		if isArray && count == length {
			arr := make([]any, length)
			for i := 1; i <= length; i++ {
				arr[i-1] = fromLuaVisited(t.RawGetInt(i), visited)
			}
			return arr
		}
	}

	out := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			out[string(ks)] = fromLuaVisited(v, visited)
		}
	})
	return out
}
