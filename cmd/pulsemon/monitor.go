package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/pulse/internal/event"
	"github.com/dshills/pulse/internal/hook"
)

// eventLog is a fixed-capacity rolling log of rendered event lines.
type eventLog struct {
	mu      sync.Mutex
	entries []string
	max     int
}

func newEventLog(max int) *eventLog {
	return &eventLog{max: max}
}

// Add appends a line, evicting the oldest when at capacity.
func (l *eventLog) Add(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, line)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Tail returns up to n most recent lines, newest last.
func (l *eventLog) Tail(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]string, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// monitor renders live bus and hook statistics to the terminal.
type monitor struct {
	screen tcell.Screen
	bus    *event.Bus
	hooks  *hook.Registry
	log    *eventLog
}

func newMonitor(bus *event.Bus, hooks *hook.Registry, log *eventLog) (*monitor, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &monitor{screen: screen, bus: bus, hooks: hooks, log: log}, nil
}

// Run drives the draw loop until the context is cancelled or the user
// quits with q, Escape, or Ctrl+C.
func (m *monitor) Run(ctx context.Context, cancel context.CancelFunc) error {
	if err := m.screen.Init(); err != nil {
		return err
	}
	defer m.screen.Fini()

	m.screen.SetStyle(tcell.StyleDefault)

	keys := make(chan *tcell.EventKey, 8)
	go func() {
		for {
			switch ev := m.screen.PollEvent().(type) {
			case *tcell.EventKey:
				select {
				case keys <- ev:
				default:
				}
			case *tcell.EventResize:
				m.screen.Sync()
			case nil:
				return
			}
		}
	}()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-keys:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				cancel()
				return nil
			}
		case <-ticker.C:
			m.draw()
		}
	}
}

func (m *monitor) draw() {
	m.screen.Clear()

	bold := tcell.StyleDefault.Bold(true)
	dim := tcell.StyleDefault.Dim(true)
	errStyle := tcell.StyleDefault.Foreground(tcell.ColorRed)

	stats := m.bus.Stats()
	row := 0

	m.print(0, row, bold, "pulse monitor")
	m.print(20, row, dim, "q to quit")
	row += 2

	m.print(0, row, tcell.StyleDefault, fmt.Sprintf(
		"emitted %d   delivered %d   errors %d   panics %d   dropped %d",
		stats.EventsEmitted, stats.EventsDelivered, stats.HandlerErrors,
		stats.HandlerPanics, stats.EventsDropped))
	row++
	m.print(0, row, tcell.StyleDefault, fmt.Sprintf(
		"subscriptions %d   async queue %d   reports dropped %d",
		stats.ActiveSubscriptions, stats.AsyncQueueDepth, stats.ReportsDropped))
	row += 2

	m.print(0, row, bold, "hook points")
	row++
	for _, point := range m.hooks.Points() {
		m.print(2, row, tcell.StyleDefault, fmt.Sprintf("%-28s %d hooks", point, m.hooks.HookCount(point)))
		row++
	}
	row++

	m.print(0, row, bold, "recent events")
	row++

	_, height := m.screen.Size()
	for _, line := range m.log.Tail(height - row - 1) {
		style := tcell.StyleDefault
		if len(line) >= 5 && line[:5] == "ERROR" {
			style = errStyle
		}
		m.print(2, row, style, line)
		row++
	}

	m.screen.Show()
}

func (m *monitor) print(x, y int, style tcell.Style, text string) {
	width, height := m.screen.Size()
	if y >= height {
		return
	}
	col := x
	for _, r := range text {
		if col >= width {
			break
		}
		m.screen.SetContent(col, y, r, nil, style)
		col++
	}
}
