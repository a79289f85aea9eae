package domain

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is the node registry: an arena of nodes addressed by Handle and keyed
// by interned name. Nodes are never removed during a run.
type Graph struct {
	nodes  []*Node
	byName map[InternedString]Handle
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		byName: make(map[InternedString]Handle),
	}
}

// FindOrCreate returns the node called name, creating it on first reference.
func (g *Graph) FindOrCreate(name string) *Node {
	key := NewInternedString(name)
	if h, ok := g.byName[key]; ok {
		return g.nodes[h]
	}
	n := g.alloc(key)
	g.byName[key] = n.ID
	return n
}

// Find returns the node called name without creating it.
func (g *Graph) Find(name string) (*Node, bool) {
	h, ok := g.byName[NewInternedString(name)]
	if !ok {
		return nil, false
	}
	return g.nodes[h], true
}

// Node returns the node at h.
func (g *Graph) Node(h Handle) *Node {
	return g.nodes[h]
}

// Len returns the number of nodes, cohorts included.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// All yields nodes in creation order.
func (g *Graph) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, n := range g.nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// Link makes child a dependency of parent. Linking twice is a no-op.
func (g *Graph) Link(parent, child Handle) {
	p, c := g.nodes[parent], g.nodes[child]
	if slices.Contains(p.Children, child) {
		return
	}
	p.Children = append(p.Children, child)
	c.Parents = append(c.Parents, parent)
}

// Order records that pred must finish before succ starts, without making
// pred a dependency.
func (g *Graph) Order(pred, succ Handle) {
	if pred == succ {
		return
	}
	s, p := g.nodes[succ], g.nodes[pred]
	if slices.Contains(s.Preds, pred) {
		return
	}
	s.Preds = append(s.Preds, pred)
	p.Succs = append(p.Succs, succ)
}

// AddCohort creates a new occurrence of a '::' target, registered as
// "name#N" and listed in main.Cohorts.
func (g *Graph) AddCohort(main *Node) *Node {
	name := NewInternedString(main.Name.String() + "#" + strconv.Itoa(len(main.Cohorts)+1))
	c := g.alloc(name)
	g.byName[name] = c.ID
	c.Path = main.Path
	c.Kind = main.Kind
	c.Mods = main.Mods
	c.Main = main.ID
	main.Cohorts = append(main.Cohorts, c.ID)
	return c
}

// DisplayName returns the name users know a node by. Cohorts report their
// main node's name.
func (g *Graph) DisplayName(h Handle) string {
	n := g.nodes[h]
	if n.Main != NoNode {
		return g.nodes[n.Main].Name.String()
	}
	return n.Name.String()
}

// Names maps handles to node names.
func (g *Graph) Names(hs []Handle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = g.DisplayName(h)
	}
	return out
}

// FindCycle walks children of start restricted to nodes accepted by member
// and returns the first cycle found, closed by repeating its first node.
func (g *Graph) FindCycle(start Handle, member func(*Node) bool) []Handle {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[Handle]int)
	var path []Handle
	var cycle []Handle

	var visit func(h Handle) bool
	visit = func(h Handle) bool {
		state[h] = visiting
		path = append(path, h)
		for _, c := range g.nodes[h].Children {
			if !member(g.nodes[c]) {
				continue
			}
			switch state[c] {
			case visiting:
				idx := slices.Index(path, c)
				cycle = append(slices.Clone(path[idx:]), c)
				return true
			case unvisited:
				if visit(c) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		state[h] = done
		return false
	}

	if visit(start) {
		return cycle
	}
	return nil
}

// CycleError describes a cycle path.
func (g *Graph) CycleError(cycle []Handle) error {
	return zerr.With(ErrGraphCycle, "cycle", strings.Join(g.Names(cycle), " -> "))
}

func (g *Graph) alloc(name InternedString) *Node {
	n := &Node{
		ID:       Handle(len(g.nodes)),
		Name:     name,
		Youngest: NoNode,
		Suffix:   NoSuffix,
		Main:     NoNode,
	}
	g.nodes = append(g.nodes, n)
	return n
}
