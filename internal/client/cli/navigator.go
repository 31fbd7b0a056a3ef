package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/d-madiou/to-meet-yours/internal/client/navigation"
)

// screenNavigator is the CLI's router: it remembers the current screen and
// announces every move.
type screenNavigator struct {
	mu      sync.Mutex
	current navigation.Route
	stack   []navigation.Route
	out     io.Writer
}

func newScreenNavigator(out io.Writer) *screenNavigator {
	return &screenNavigator{out: out}
}

func (n *screenNavigator) Current() navigation.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *screenNavigator) Replace(to navigation.Route) {
	n.mu.Lock()
	n.current = to
	n.stack = n.stack[:0]
	n.mu.Unlock()

	fmt.Fprintf(n.out, "-> %s\n", to)
}

func (n *screenNavigator) Push(to navigation.Route) {
	n.mu.Lock()
	n.stack = append(n.stack, n.current)
	n.current = to
	n.mu.Unlock()

	fmt.Fprintf(n.out, "-> %s\n", to)
}

// Back returns to the previous pushed screen, if any.
func (n *screenNavigator) Back() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.stack) == 0 {
		return false
	}
	n.current = n.stack[len(n.stack)-1]
	n.stack = n.stack[:len(n.stack)-1]
	return true
}
