package flow

// Highlight is the set of nodes and links connected to the last clicked
// element. The zero value means nothing is focused.
type Highlight struct {
	Focus string
	Nodes map[string]bool
	Links map[int]bool
}

// Active reports whether a focus is set.
func (h Highlight) Active() bool { return h.Focus != "" }

// Connected walks g breadth-first from start, following links in both
// directions, and returns the reached nodes and the links it crossed.
func Connected(g Graph, start string) Highlight {
	h := Highlight{Focus: start, Nodes: map[string]bool{}, Links: map[int]bool{}}
	if _, ok := g.Node(start); !ok {
		return Highlight{}
	}

	adj := make(map[string][]int, len(g.Nodes))
	for i, l := range g.Links {
		adj[l.Source] = append(adj[l.Source], i)
		adj[l.Target] = append(adj[l.Target], i)
	}

	h.Nodes[start] = true
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, li := range adj[id] {
			h.Links[li] = true
			l := g.Links[li]
			next := l.Target
			if next == id {
				next = l.Source
			}
			if !h.Nodes[next] {
				h.Nodes[next] = true
				queue = append(queue, next)
			}
		}
	}
	return h
}
