package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/d-madiou/to-meet-yours/internal/client/chat"
)

// syncWriter serializes writes from the REPL and the polling goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// threadPrinter prints each entry once: pending sends with a "sending..."
// marker as soon as they are queued, then the confirmed message.
type threadPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	me    string
	shown map[string]struct{}
}

func newThreadPrinter(out io.Writer, me string) *threadPrinter {
	return &threadPrinter{out: out, me: me, shown: make(map[string]struct{})}
}

func (p *threadPrinter) print(entries []chat.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range entries {
		if _, ok := p.shown[e.ID]; ok {
			continue
		}
		p.shown[e.ID] = struct{}{}

		who := e.Message.Sender.Username
		if e.Message.Sender.Matches(p.me) {
			who = "you"
		}
		line := fmt.Sprintf("[%s] %s: %s", e.Message.CreatedAt.Local().Format("15:04"), who, e.Message.Content)
		if e.Kind == chat.KindPending {
			line += " (sending...)"
		}
		fmt.Fprintln(p.out, line)
	}
}
