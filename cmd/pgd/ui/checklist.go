package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// checklist keeps a block of step lines on a terminal and rewrites it in
// place whenever a step changes and on every spinner frame.
type checklist struct {
	out    io.Writer
	frames []string

	mu    sync.Mutex
	steps []step
	drawn int
	frame int

	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
}

func newChecklist(out io.Writer) *checklist {
	c := &checklist{
		out:    out,
		frames: spinner.MiniDot.Frames,
		stop:   make(chan struct{}),
	}
	c.stopped.Add(1)
	go c.animate(spinner.MiniDot.FPS)
	return c
}

func (c *checklist) update(steps []step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = steps
	c.render()
}

// Close stops the animation and waits for it. The block stays on screen as
// last drawn.
func (c *checklist) Close() {
	c.once.Do(func() { close(c.stop) })
	c.stopped.Wait()
}

func (c *checklist) animate(every time.Duration) {
	defer c.stopped.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.frame++
			c.render()
			c.mu.Unlock()
		}
	}
}

// render emits the whole block in one write. c.mu must be held.
func (c *checklist) render() {
	if len(c.steps) == 0 && c.drawn == 0 {
		return
	}
	var b strings.Builder
	if c.drawn > 0 {
		fmt.Fprintf(&b, "\x1b[%dA", c.drawn)
	}
	for _, s := range c.steps {
		b.WriteString("\r" + c.format(s) + "\x1b[K\n")
	}
	for i := len(c.steps); i < c.drawn; i++ {
		b.WriteString("\r\x1b[K\n")
	}
	c.drawn = max(c.drawn, len(c.steps))
	_, _ = io.WriteString(c.out, b.String())
}

func (c *checklist) format(s step) string {
	mark, title := Muted("●"), Muted(s.Title)
	switch s.Status {
	case stepRunning:
		mark, title = Accent(c.frames[c.frame%len(c.frames)]), s.Title
	case stepDone:
		mark, title = Success("✓"), s.Title
	case stepSkipped:
		mark = Muted("-")
	case stepFailed:
		mark, title = ErrorStyle.Render("✗"), ErrorStyle.Render(s.Title)
	}
	line := s.indent() + mark + " " + title
	if s.Note != "" {
		line += " " + Muted(s.Note)
	}
	return line
}
