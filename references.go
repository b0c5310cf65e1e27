package main

import (
	"strconv"
	"strings"
)

// referenceTracker collects footnote references per group during a single
// article render. Created fresh for every render, never shared.
type referenceTracker struct {
	groups map[string][]*Node
	named  map[string]map[string]*namedRef
}

// namedRef records where a named reference was first seen (1-based position
// in its group's list) and how many times it has occurred.
type namedRef struct {
	first int
	count int
}

func newReferenceTracker() *referenceTracker {
	return &referenceTracker{
		groups: make(map[string][]*Node),
		named:  make(map[string]map[string]*namedRef),
	}
}

// noteID is the anchor id of the list entry num (1-based) in group.
func noteID(group string, num int) string {
	return "_n" + group + "_" + strconv.Itoa(num)
}

// register records one occurrence of a reference and returns its sequence
// number, the note id of its list entry, and the id for this inline marker.
// Named references share the sequence number of their first occurrence; each
// occurrence gets a distinct marker id. Unnamed references always start a
// new entry.
func (t *referenceTracker) register(group, name string, n *Node) (seq int, note, marker string) {
	if name != "" {
		name = strings.ReplaceAll(name, " ", "_")
		byName := t.named[group]
		if byName == nil {
			byName = make(map[string]*namedRef)
			t.named[group] = byName
		}
		ref := byName[name]
		if ref == nil {
			t.groups[group] = append(t.groups[group], n)
			ref = &namedRef{first: len(t.groups[group])}
			byName[name] = ref
		}
		seq = ref.first
		note = noteID(group, ref.first)
		marker = "_r" + note + "_" + strconv.Itoa(ref.count)
		ref.count++
		return seq, note, marker
	}

	t.groups[group] = append(t.groups[group], n)
	seq = len(t.groups[group])
	note = noteID(group, seq)
	marker = "_r" + note
	return seq, note, marker
}

// take removes and returns the collected references of a group, in first
// occurrence order. Rendering a references block consumes the group; an
// absent or already consumed group yields nil.
func (t *referenceTracker) take(group string) []*Node {
	refs := t.groups[group]
	delete(t.groups, group)
	return refs
}

// occurrences returns how many inline markers were registered for a named
// reference, or zero when unknown.
func (t *referenceTracker) occurrences(group, name string) int {
	name = strings.ReplaceAll(name, " ", "_")
	if ref := t.named[group][name]; ref != nil {
		return ref.count
	}
	return 0
}
