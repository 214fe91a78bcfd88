// Package strpool provides a process-wide string interner.
//
// DWARF entries repeat the same identifier, type, and file-path strings
// across thousands of DIEs; interning collapses them into small integer ids
// so the rest of the loader can carry an int instead of a string copy. The
// pool is thread-unsafe and meant to be created once per load and discarded
// with it, not shared across concurrent loads (see spec §5).
package strpool

import "github.com/Manu343726/dwarfcore/pkg/utils"

// ID is an interned string handle. ID 0 is reserved for the empty/nil string.
type ID int

// Pool interns byte strings into small, dense integer ids.
type Pool struct {
	strings []string
	ids     map[string]ID
}

// New creates an empty pool. Index/id 0 is pre-reserved for the empty string.
func New() *Pool {
	return &Pool{
		strings: []string{""},
		ids:     map[string]ID{"": 0},
	}
}

// Add interns s and returns its id. A nil or empty input returns id 0.
func (p *Pool) Add(s []byte) ID {
	if len(s) == 0 {
		return 0
	}
	return p.AddString(string(s))
}

// AddString is like Add but takes a string directly, avoiding a copy when
// the caller already has one (the common case: DWARF attribute readers hand
// back Go strings, not byte slices).
func (p *Pool) AddString(s string) ID {
	if s == "" {
		return 0
	}
	if id, ok := p.ids[s]; ok {
		return id
	}

	id := ID(len(p.strings))
	p.strings = append(p.strings, s)
	p.ids[s] = id
	return id
}

// Ptr returns the interned string for id, or "" if id is out of range.
func (p *Pool) Ptr(id ID) string {
	if int(id) < 0 || int(id) >= len(p.strings) {
		return ""
	}
	return p.strings[id]
}

// Len returns the number of distinct interned strings, including the
// reserved empty string.
func (p *Pool) Len() int {
	return len(p.strings)
}

// Strings returns every interned string currently in the pool, in id order,
// using the teacher's generic sequence-generator helper.
func (p *Pool) Strings() []string {
	return utils.Iota(len(p.strings), func(i int) string { return p.strings[i] })
}
