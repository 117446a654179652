// Package block evaluates user-defined block rules against post and comment
// attributes.
package block

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"refresher/internal/config"
)

// Kind is the attribute a rule is matched against.
type Kind string

const (
	Nick    Kind = "NICK"
	ID      Kind = "ID"
	IP      Kind = "IP"
	Text    Kind = "TEXT"
	Comment Kind = "COMMENT"
	Dccon   Kind = "DCCON"
)

// ContentNotice replaces post contents that matched a TEXT rule.
const ContentNotice = "The contents of this post are blocked."

// Item is one attribute value to check.
type Item struct {
	Kind  Kind
	Value string
}

// Checker decides whether content is blocked. Implementations must be safe
// for concurrent use.
type Checker interface {
	Check(kind Kind, value, gallery string) bool
	CheckAll(items []Item, gallery string) bool
}

// Nothing blocks nothing.
type Nothing struct{}

func (Nothing) Check(Kind, string, string) bool { return false }
func (Nothing) CheckAll([]Item, string) bool    { return false }

type rule struct {
	kind    Kind
	gallery string
	match   glob.Glob
	source  string
}

// List is a Checker backed by glob patterns.
type List struct {
	mu    sync.RWMutex
	rules []rule
}

// NewList compiles rules. An invalid pattern is reported with its index.
func NewList(rules []config.BlockRule) (*List, error) {
	l := &List{}
	for i, r := range rules {
		if err := l.Add(Kind(strings.ToUpper(r.Kind)), r.Pattern, r.Gallery); err != nil {
			return nil, fmt.Errorf("block rule %d: %w", i, err)
		}
	}
	return l, nil
}

// Add compiles and appends one rule. An empty gallery matches every gallery.
func (l *List) Add(kind Kind, pattern, gallery string) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compile %q: %w", pattern, err)
	}
	l.mu.Lock()
	l.rules = append(l.rules, rule{kind: kind, gallery: gallery, match: g, source: pattern})
	l.mu.Unlock()
	return nil
}

// Len returns the number of rules.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rules)
}

// Check reports whether any rule of kind matches value in gallery. TEXT
// and COMMENT rules match anywhere in the value.
func (l *List) Check(kind Kind, value, gallery string) bool {
	if value == "" {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.rules {
		if r.kind != kind {
			continue
		}
		if r.gallery != "" && r.gallery != gallery {
			continue
		}
		if r.match.Match(value) {
			return true
		}
		if (kind == Text || kind == Comment) && strings.Contains(value, r.source) {
			return true
		}
	}
	return false
}

// CheckAll reports whether any item is blocked.
func (l *List) CheckAll(items []Item, gallery string) bool {
	for _, it := range items {
		if l.Check(it.Kind, it.Value, gallery) {
			return true
		}
	}
	return false
}
