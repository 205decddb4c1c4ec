package norm

// NodeKind classifies a level of the act's hierarchical decomposition.
type NodeKind string

// Node kinds, outermost to innermost.
const (
	KindBook    NodeKind = "book"
	KindPart    NodeKind = "part"
	KindTitle   NodeKind = "title"
	KindChapter NodeKind = "chapter"
	KindArticle NodeKind = "article"
)

// TreeNode is one node of the structural tree. Leaf nodes are articles;
// interior nodes are divisions.
type TreeNode struct {
	Kind     NodeKind   `json:"kind"`
	Label    string     `json:"label"`
	Children []TreeNode `json:"children,omitempty"`
}

// StructuralTree is the ordered hierarchical decomposition of an act,
// built once at resolution time and read-only thereafter.
type StructuralTree struct {
	Nodes []TreeNode `json:"nodes"`
}

// IsEmpty reports whether no structure was found for the act.
func (t StructuralTree) IsEmpty() bool {
	return len(t.Nodes) == 0
}

// Articles returns every article label in document order.
func (t StructuralTree) Articles() []string {
	var out []string
	var walk func(nodes []TreeNode)
	walk = func(nodes []TreeNode) {
		for _, n := range nodes {
			if n.Kind == KindArticle {
				out = append(out, n.Label)
			}
			walk(n.Children)
		}
	}
	walk(t.Nodes)
	return out
}
