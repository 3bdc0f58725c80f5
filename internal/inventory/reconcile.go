package inventory

import "fmt"

// AddTarget appends t to the named transport group.
func AddTarget(doc *Document, group string, t Target) error {
	if !IsKnownGroup(group) {
		return &Error{Kind: ErrUnknownGroup, Msg: fmt.Sprintf("%q", group)}
	}
	g := doc.group(group)
	if g == nil {
		// Documents built by hand may skip a transport group.
		doc.Groups = append(doc.Groups, Group{Name: group})
		g = &doc.Groups[len(doc.Groups)-1]
	}
	g.Targets = append(g.Targets, t)
	return nil
}

// RemoveTargetsByURI drops every target whose uri is in uris, across all
// groups. It returns the URIs that were actually present, each once, in the
// order they were found.
func RemoveTargetsByURI(doc *Document, uris []string) []string {
	want := toSet(uris)
	removed := []string{}
	seen := make(map[string]bool)

	for gi := range doc.Groups {
		g := &doc.Groups[gi]
		kept := g.Targets[:0]
		for _, t := range g.Targets {
			if !want[t.URI] {
				kept = append(kept, t)
				continue
			}
			if !seen[t.URI] {
				seen[t.URI] = true
				removed = append(removed, t.URI)
			}
		}
		g.Targets = kept
	}
	return removed
}

// FindTargets returns the targets matching keep, in document order.
func FindTargets(doc *Document, keep func(Target) bool) []Target {
	var out []Target
	for _, g := range doc.Groups {
		for _, t := range g.Targets {
			if keep(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// TargetByURI returns the first target with the given uri.
func TargetByURI(doc *Document, uri string) (Target, bool) {
	found := FindTargets(doc, func(t Target) bool { return t.URI == uri })
	if len(found) == 0 {
		return Target{}, false
	}
	return found[0], true
}

// Group returns a copy of the named group.
func (d *Document) Group(name string) (Group, bool) {
	g := d.group(name)
	if g == nil {
		return Group{}, false
	}
	return *g, true
}

func (d *Document) group(name string) *Group {
	for i := range d.Groups {
		if d.Groups[i].Name == name {
			return &d.Groups[i]
		}
	}
	return nil
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
