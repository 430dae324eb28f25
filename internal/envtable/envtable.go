// Package envtable holds the resolved environment of a service: the ordered
// merge of plain container environment entries with secrets resolved from the
// parameter store. The merge is a pure function; rendering is the only place
// a secret value is ever turned into displayable text.
package envtable

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Plain is a non-secret environment entry declared on the container.
type Plain struct {
	Name  string
	Value string
}

// SecretRef declares that variable Name is populated from the parameter
// store entry addressed by ValueFrom.
type SecretRef struct {
	Name      string
	ValueFrom string
}

// Resolved is the parameter store's answer for one locator.
type Resolved struct {
	Locator string
	Value   string
}

// Entry is one row of the merged table.
type Entry struct {
	Name   string
	Value  string
	Secret bool
}

// Table is an ordered name -> Entry mapping. Names are unique; an upsert
// keeps the position of the first insertion.
type Table struct {
	order   []string
	entries map[string]Entry
}

func (t *Table) upsert(e Entry) {
	if t.entries == nil {
		t.entries = map[string]Entry{}
	}
	if _, ok := t.entries[e.Name]; !ok {
		t.order = append(t.order, e.Name)
	}
	t.entries[e.Name] = e
}

// Len returns the number of entries.
func (t Table) Len() int {
	return len(t.order)
}

// Lookup returns the entry for name.
func (t Table) Lookup(name string) (Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// Entries returns the entries in table order.
func (t Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.entries[name])
	}
	return out
}

// Environ projects the table into the flat NAME=value form the launcher
// hands to the child process. Values are unmasked; callers must never write
// the result to human-facing output.
func (t Table) Environ() []string {
	out := make([]string, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, name+"="+t.entries[name].Value)
	}
	return out
}

// Merge builds the table: plain entries in declaration order, then each
// secret ref in declaration order upserted with its resolved value. A ref
// whose locator is absent from resolved contributes no entry; the caller
// decides whether to surface the omission. A secret upsert overwrites a
// same-named plain entry in place.
func Merge(plain []Plain, refs []SecretRef, resolved []Resolved) Table {
	var t Table
	for _, p := range plain {
		t.upsert(Entry{Name: p.Name, Value: p.Value})
	}
	byLocator := make(map[string]string, len(resolved))
	for _, r := range resolved {
		byLocator[r.Locator] = r.Value
	}
	for _, ref := range refs {
		value, ok := byLocator[ref.ValueFrom]
		if !ok {
			continue
		}
		t.upsert(Entry{Name: ref.Name, Value: value, Secret: true})
	}
	return t
}

// Unresolved returns the names of refs whose locator is missing from
// resolved, in declaration order.
func Unresolved(refs []SecretRef, resolved []Resolved) []string {
	have := make(map[string]struct{}, len(resolved))
	for _, r := range resolved {
		have[r.Locator] = struct{}{}
	}
	var out []string
	for _, ref := range refs {
		if _, ok := have[ref.ValueFrom]; !ok {
			out = append(out, ref.Name)
		}
	}
	return out
}

// Mask replaces every rune of value with '*', preserving length.
func Mask(value string) string {
	return strings.Repeat("*", utf8.RuneCountInString(value))
}

// Display returns the value of e safe for human-facing output: the literal
// value for plain entries, a same-length mask for secret entries.
func (e Entry) Display() string {
	if e.Secret {
		return Mask(e.Value)
	}
	return e.Value
}

// RenderLines renders one NAME=VALUE line per entry in table order, masking
// secret values. This is the only conversion of secrets to displayable form.
func (t Table) RenderLines() []string {
	out := make([]string, 0, len(t.order))
	for _, name := range t.order {
		e := t.entries[name]
		out = append(out, fmt.Sprintf("%s=%s", e.Name, e.Display()))
	}
	return out
}
