package journey

import (
	"errors"
	"fmt"
	"regexp"
)

// contentIDPattern is the alphabet allowed in the last composite key segment.
var contentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrStructure is matched by every *StructuralError via errors.Is.
var ErrStructure = errors.New("invalid journey structure")

// StructuralError reports a journey graph that cannot be activated.
type StructuralError struct {
	Reason string
	NodeID string
	Edge   *Edge
}

func (e *StructuralError) Error() string {
	switch {
	case e.Edge != nil:
		return fmt.Sprintf("invalid journey structure: %s (edge %s -> %s)", e.Reason, e.Edge.Source, e.Edge.Target)
	case e.NodeID != "":
		return fmt.Sprintf("invalid journey structure: %s (node %s)", e.Reason, e.NodeID)
	default:
		return "invalid journey structure: " + e.Reason
	}
}

// Is makes errors.Is(err, ErrStructure) true for structural errors.
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructure
}

// Validate checks that the graph is well formed: node ids are present and
// unique, kinds are known, there is exactly one entry node (or the default
// entry id for bootstrap graphs) and every edge endpoint names a node.
func Validate(nodes []Node, edges []Edge) error {
	if len(nodes) == 0 {
		return &StructuralError{Reason: "journey has no nodes"}
	}

	seen := make(map[string]bool, len(nodes))
	entries := 0
	for _, n := range nodes {
		if n.ID == "" {
			return &StructuralError{Reason: "node has an empty id"}
		}
		if seen[n.ID] {
			return &StructuralError{Reason: "duplicate node id", NodeID: n.ID}
		}
		seen[n.ID] = true

		if !n.Kind.Valid() {
			return &StructuralError{Reason: fmt.Sprintf("unknown node kind %q", n.Kind), NodeID: n.ID}
		}
		if n.Kind == KindEntry {
			entries++
		}
		if n.Content != nil && n.Content.ID == "" {
			return &StructuralError{Reason: "content attached without an id", NodeID: n.ID}
		}
		if n.HasContent() && !contentIDPattern.MatchString(n.Content.ID) {
			return &StructuralError{Reason: fmt.Sprintf("content id %q may only contain letters, digits, '_' and '-'", n.Content.ID), NodeID: n.ID}
		}
	}

	if entries > 1 {
		return &StructuralError{Reason: fmt.Sprintf("journey has %d entry nodes, expected one", entries)}
	}
	if _, ok := FindEntry(nodes); !ok {
		return &StructuralError{Reason: "journey has no entry node"}
	}

	for i := range edges {
		e := edges[i]
		if !seen[e.Source] {
			return &StructuralError{Reason: "edge source does not exist", Edge: &e}
		}
		if !seen[e.Target] {
			return &StructuralError{Reason: "edge target does not exist", Edge: &e}
		}
	}

	return nil
}
