package refgraph

import (
	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
)

type visitState int

const (
	unvisited visitState = iota
	onStack
	done
)

// frame is one level of the explicit DFS stack: a table id and the index of
// the next neighbor to visit.
type frame struct {
	id   string
	next int
}

// detectCycles walks the table-level dependency graph (referencing table ->
// referenced table) depth-first and reports the first cycle found as a
// structural error naming every table on the cycle. Self-references are
// excluded; they are handled by deferring FK attachment. The traversal is
// iterative with an explicit stack since table counts are caller-controlled.
func detectCycles(s *schema.Schema, edges []Edge) error {
	adj := make(map[string][]string, len(s.Tables))
	for _, e := range edges {
		if e.SourceTable.ID == e.TargetTable.ID {
			continue
		}
		adj[e.SourceTable.ID] = append(adj[e.SourceTable.ID], e.TargetTable.ID)
	}

	state := make(map[string]visitState, len(s.Tables))

	for i := range s.Tables {
		root := s.Tables[i].ID
		if state[root] != unvisited {
			continue
		}

		stack := []frame{{id: root}}
		state[root] = onStack

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			neighbors := adj[top.id]

			if top.next >= len(neighbors) {
				state[top.id] = done
				stack = stack[:len(stack)-1]
				continue
			}

			next := neighbors[top.next]
			top.next++

			switch state[next] {
			case onStack:
				return cycleError(s, stack, next)
			case unvisited:
				state[next] = onStack
				stack = append(stack, frame{id: next})
			}
		}
	}

	return nil
}

// cycleError extracts the cycle path from the traversal stack, starting at
// the frame holding the back-edge target.
func cycleError(s *schema.Schema, stack []frame, backEdge string) error {
	start := 0
	for i := range stack {
		if stack[i].id == backEdge {
			start = i
			break
		}
	}

	var names []string
	for _, f := range stack[start:] {
		if t := s.Table(f.id); t != nil {
			names = append(names, t.Name)
		}
	}
	if t := s.Table(backEdge); t != nil {
		names = append(names, t.Name)
	}

	return &diag.StructuralError{
		Code:    diag.CodeDependencyCycle,
		Message: "reference cycle prevents a safe creation order",
		Cycle:   names,
	}
}
