// Package script loads Lua sources and exposes their global functions
// as event bus handlers and hook handlers.
//
// An event handler function receives a table with topic, id, source and
// payload fields. A hook handler function receives the hook context as
// a table and may return a table of partial updates:
//
//	function stamp(ctx)
//	    return { stamped = true, by = "lua" }
//	end
//
// Each Script owns one Lua state; calls into it are serialized, so a
// script's handlers are safe to register for concurrent delivery.
package script
