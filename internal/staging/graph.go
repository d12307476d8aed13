package staging

import (
	"fmt"
	"strings"
)

// StageKind is one node of the fixed stage dependency graph.
type StageKind int

// Declaration order is the tie-break priority for the topological sort.
const (
	Transcribe StageKind = iota
	Extract
	Translate
	Combine
	Mux
)

var kindNames = [...]string{
	Transcribe: "transcribe",
	Extract:    "extract",
	Translate:  "translate",
	Combine:    "combine",
	Mux:        "mux",
}

func (k StageKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("StageKind(%d)", int(k))
	}
	return kindNames[k]
}

// allKinds lists every stage kind in priority order.
var allKinds = []StageKind{Transcribe, Extract, Translate, Combine, Mux}

// edge means the From stage must finish before the To stage starts.
type edge struct {
	From StageKind
	To   StageKind
}

var stageEdges = []edge{
	{Transcribe, Translate},
	{Extract, Translate},
	{Transcribe, Combine},
	{Extract, Combine},
	{Translate, Combine},
	{Transcribe, Mux},
	{Extract, Mux},
	{Translate, Mux},
	{Combine, Mux},
}

// PlanCycleError reports a stage graph that has no topological order.
type PlanCycleError struct {
	Remaining []StageKind
}

func (e *PlanCycleError) Error() string {
	names := make([]string, 0, len(e.Remaining))
	for _, k := range e.Remaining {
		names = append(names, k.String())
	}
	return "stage graph has a cycle among: " + strings.Join(names, ", ")
}

// kindOrder sorts kinds topologically over edges using Kahn's algorithm,
// always taking the ready kind with the lowest priority value.
func kindOrder(kinds []StageKind, edges []edge) ([]StageKind, error) {
	present := make(map[StageKind]bool, len(kinds))
	for _, k := range kinds {
		present[k] = true
	}
	indegree := make(map[StageKind]int, len(kinds))
	successors := make(map[StageKind][]StageKind, len(kinds))
	for _, e := range edges {
		if !present[e.From] || !present[e.To] {
			continue
		}
		indegree[e.To]++
		successors[e.From] = append(successors[e.From], e.To)
	}

	done := make(map[StageKind]bool, len(kinds))
	order := make([]StageKind, 0, len(kinds))
	for len(order) < len(kinds) {
		next, found := StageKind(0), false
		for _, k := range kinds {
			if done[k] || indegree[k] > 0 {
				continue
			}
			if !found || k < next {
				next, found = k, true
			}
		}
		if !found {
			var remaining []StageKind
			for _, k := range kinds {
				if !done[k] {
					remaining = append(remaining, k)
				}
			}
			return nil, &PlanCycleError{Remaining: remaining}
		}
		done[next] = true
		order = append(order, next)
		for _, s := range successors[next] {
			indegree[s]--
		}
	}
	return order, nil
}
