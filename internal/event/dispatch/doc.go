// Package dispatch provides handler execution primitives shared by the
// event bus and hook registry: a panic-recovering executor with optional
// retry, and a bounded worker pool for fire-and-forget delivery.
//
// Handler failures never escape to the caller of Execute; they are
// captured on the returned Result so the caller decides how to report
// them.
package dispatch
