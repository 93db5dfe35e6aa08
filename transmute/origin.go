package transmute

import (
	"runtime"
	"sync"
	"weak"

	"golang.org/x/net/html"
)

// OriginStore associates text units with their pristine text. Keys are
// weak: the store never keeps a unit alive, and an entry disappears once
// its unit has been collected.
//
// The mutex exists because collection cleanups run on the runtime's
// cleanup goroutine; all other access comes from the engine goroutine.
type OriginStore struct {
	mu sync.Mutex
	m  map[weak.Pointer[html.Node]]string
}

// NewOriginStore creates an empty store.
func NewOriginStore() *OriginStore {
	return &OriginStore{m: make(map[weak.Pointer[html.Node]]string)}
}

// Origin returns the pristine text stored for unit.
func (s *OriginStore) Origin(unit *html.Node) (string, bool) {
	if unit == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.m[weak.Make(unit)]
	return text, ok
}

// Len is the number of live entries.
func (s *OriginStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// remember stores text as unit's origin unless one is already stored.
// The first stored value is never replaced.
func (s *OriginStore) remember(unit *html.Node, text string) {
	key := weak.Make(unit)

	s.mu.Lock()
	if _, ok := s.m[key]; ok {
		s.mu.Unlock()
		return
	}
	s.m[key] = text
	s.mu.Unlock()

	runtime.AddCleanup(unit, s.drop, key)
}

func (s *OriginStore) drop(key weak.Pointer[html.Node]) {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
}

// Forget drops the origins of every unit under root. The engine calls it
// for subtrees a mutation detached; collection would drop them later anyway.
func (s *OriginStore) Forget(root *html.Node) {
	if root == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			delete(s.m, weak.Make(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}
