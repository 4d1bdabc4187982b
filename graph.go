package binder

// DependencyGraph is the static binding graph checked by Verify. Nodes are
// identified by a unique id and reported by label, since several bindings
// (collection entries, conditional contexts) can share a label.
type DependencyGraph struct {
	nodes map[string]*graphNode
	order []string // insertion order
}

type graphNode struct {
	label string
	deps  []string
}

type visitState uint8

const (
	unvisited visitState = iota
	inProgress
	finished
)

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{nodes: make(map[string]*graphNode)}
}

// AddNode adds or replaces node id. An empty label reports the node by id.
func (g *DependencyGraph) AddNode(id, label string, deps []string) {
	if _, exists := g.nodes[id]; !exists {
		g.order = append(g.order, id)
	}
	if label == "" {
		label = id
	}
	g.nodes[id] = &graphNode{label: label, deps: deps}
}

// Dependencies returns the edges of id.
func (g *DependencyGraph) Dependencies(id string) []string {
	if n, ok := g.nodes[id]; ok {
		return n.deps
	}
	return nil
}

// Has reports whether id was added.
func (g *DependencyGraph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Sort returns the node ids with every dependency before its dependents.
// Independent nodes keep insertion order. Edges to unknown ids are ignored;
// missing dependencies are reported while the graph is built.
func (g *DependencyGraph) Sort() ([]string, error) {
	state := make(map[string]visitState, len(g.nodes))
	sorted := make([]string, 0, len(g.nodes))

	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		n, ok := g.nodes[id]
		if !ok {
			return nil
		}

		switch state[id] {
		case finished:
			return nil
		case inProgress:
			return ErrCircularDependency(g.cycle(stack, id))
		}

		state[id] = inProgress
		stack = append(stack, id)

		for _, dep := range n.deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = finished
		sorted = append(sorted, id)

		return nil
	}

	for _, id := range g.order {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	return sorted, nil
}

// cycle returns the labels of stack from the first occurrence of id, closed with id.
func (g *DependencyGraph) cycle(stack []string, id string) []string {
	start := 0
	for i, s := range stack {
		if s == id {
			start = i
			break
		}
	}

	labels := make([]string, 0, len(stack)-start+1)
	for _, s := range stack[start:] {
		labels = append(labels, g.nodes[s].label)
	}
	return append(labels, g.nodes[id].label)
}
