// Package depgraph implements the Dependency Graph (spec §4.4): topological
// ordering, parallel-safe batching, cycle detection, and a conservative
// resource-conflict predicate that serialises conflicting steps within a batch.
package depgraph

import (
	"regexp"
	"sort"
	"strings"
)

// Node is the minimal shape the graph needs from a workflow Step.
type Node struct {
	ID           string
	Predecessors []string
	// Command is used only by the conflict predicate to infer touched paths;
	// non-command steps can leave it empty.
	Command string
}

// CycleError reports a detected cycle as the ordered list of step ids in it.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Cycle, " -> ")
}

// Graph holds nodes indexed by id plus derived adjacency.
type Graph struct {
	nodes    map[string]Node
	children map[string][]string // id -> ids that depend on it
}

// Build constructs a Graph from nodes, validating that every predecessor
// reference resolves to a node in the same set (spec §3 invariant).
func Build(nodes []Node) (*Graph, error) {
	g := &Graph{nodes: make(map[string]Node, len(nodes)), children: make(map[string][]string)}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	for _, n := range nodes {
		for _, p := range n.Predecessors {
			if _, ok := g.nodes[p]; !ok {
				return nil, &UnknownPredecessorError{Step: n.ID, Predecessor: p}
			}
			g.children[p] = append(g.children[p], n.ID)
		}
	}
	return g, nil
}

// UnknownPredecessorError reports a Step referencing a predecessor id absent
// from the plan (spec §7 UnknownStep).
type UnknownPredecessorError struct {
	Step        string
	Predecessor string
}

func (e *UnknownPredecessorError) Error() string {
	return "step " + e.Step + " references unknown predecessor " + e.Predecessor
}

// TopologicalOrder returns a schedule in which every step's predecessors
// appear earlier, or a *CycleError if none exists (Kahn's algorithm).
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	ids := make([]string, 0, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.Predecessors)
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic iteration order

	var queue []string
	for _, id := range ids {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)

		next := append([]string(nil), g.children[cur]...)
		sort.Strings(next)
		for _, c := range next {
			indegree[c]--
			if indegree[c] == 0 {
				queue = append(queue, c)
				sort.Strings(queue)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, &CycleError{Cycle: g.findCycle()}
	}
	return order, nil
}

// findCycle locates one cycle via DFS, used only to build a diagnostic after
// TopologicalOrder detects that not every node was emitted.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	var path []string
	var cycle []string

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		path = append(path, id)
		next := append([]string(nil), g.children[id]...)
		sort.Strings(next)
		for _, c := range next {
			switch color[c] {
			case white:
				if visit(c) {
					return true
				}
			case gray:
				// found the back-edge; extract the cycle portion of path
				start := 0
				for i, p := range path {
					if p == c {
						start = i
						break
					}
				}
				cycle = append(append([]string{}, path[start:]...), c)
				return true
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

// Batches partitions a topologically valid graph into ordered batches where
// every step in a batch has all its predecessors in an earlier batch.
func (g *Graph) Batches() ([][]string, error) {
	if _, err := g.TopologicalOrder(); err != nil {
		return nil, err
	}

	remaining := make(map[string]bool, len(g.nodes))
	for id := range g.nodes {
		remaining[id] = true
	}

	var batches [][]string
	for len(remaining) > 0 {
		var batch []string
		for id := range remaining {
			ready := true
			for _, p := range g.nodes[id].Predecessors {
				if remaining[p] {
					ready = false
					break
				}
			}
			if ready {
				batch = append(batch, id)
			}
		}
		sort.Strings(batch)
		for _, id := range batch {
			delete(remaining, id)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// reAbsPath and reRelPath conservatively scan a command for filesystem paths,
// per spec §4.4's "scanning the command for absolute paths and for paths
// starting with ./ or ../".
var (
	reAbsPath = regexp.MustCompile(`(?:^|\s)(/[^\s'"]+)`)
	reRelPath = regexp.MustCompile(`(?:^|\s)(\.\.?/[^\s'"]+)`)
)

// InferredPaths extracts the filesystem paths a command conservatively
// appears to touch.
func InferredPaths(command string) []string {
	var paths []string
	for _, m := range reAbsPath.FindAllStringSubmatch(command, -1) {
		paths = append(paths, m[1])
	}
	for _, m := range reRelPath.FindAllStringSubmatch(command, -1) {
		paths = append(paths, m[1])
	}
	return paths
}

// reRedirectTargets finds every shell redirection target in a command.
var reRedirectTargets = regexp.MustCompile(`>{1,2}\s*(\S+)`)

// writeTargets returns the subset of a command's inferred paths that it
// writes to, as opposed to merely reads: redirect targets, and the
// destination argument of rm/cp/mv/tee. Two steps only conflict when at
// least one side writes a path the other side also touches (spec §4.4);
// two steps that both only read the same path do not conflict.
func writeTargets(command string) []string {
	var targets []string
	for _, m := range reRedirectTargets.FindAllStringSubmatch(command, -1) {
		targets = append(targets, m[1])
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return targets
	}
	args := nonFlagArgs(fields[1:])
	switch fields[0] {
	case "rm", "tee":
		targets = append(targets, args...)
	case "cp", "mv":
		if len(args) >= 1 {
			targets = append(targets, args[len(args)-1])
		}
	}
	return targets
}

func nonFlagArgs(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !strings.HasPrefix(f, "-") {
			out = append(out, f)
		}
	}
	return out
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}
	return false
}

// Conflicts reports whether two command-like steps conflict per spec §4.4: a
// write on at least one side touching a path the other side also touches
// (write/write or write/read), or inference is uncertain (no inferable paths
// on either side means we cannot prove independence, so we conservatively
// conflict only when at least one side names no path at all, matching the
// spec's "when inference is uncertain, steps are treated as conflicting").
// Two steps that only read a shared path, writing to distinct paths, do not
// conflict and may share a batch.
func Conflicts(commandA, commandB string) bool {
	a := InferredPaths(commandA)
	b := InferredPaths(commandB)
	if len(a) == 0 || len(b) == 0 {
		return true
	}

	for _, w := range writeTargets(commandA) {
		if containsPath(b, w) {
			return true
		}
	}
	for _, w := range writeTargets(commandB) {
		if containsPath(a, w) {
			return true
		}
	}
	return false
}

// SplitByConflict further partitions a batch into ordered sub-batches such
// that no two commands within a sub-batch conflict (spec §4.4: "conflicting
// steps in the same topological batch are serialised").
func SplitByConflict(batch []string, commandOf map[string]string) [][]string {
	var subBatches [][]string
	placed := make(map[string]bool, len(batch))

	for _, id := range batch {
		if placed[id] {
			continue
		}
		group := []string{id}
		placed[id] = true
		for _, other := range batch {
			if placed[other] {
				continue
			}
			conflictsWithGroup := false
			for _, g := range group {
				if Conflicts(commandOf[g], commandOf[other]) {
					conflictsWithGroup = true
					break
				}
			}
			if !conflictsWithGroup {
				group = append(group, other)
				placed[other] = true
			}
		}
		subBatches = append(subBatches, group)
	}
	return subBatches
}
