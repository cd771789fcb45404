package sim

import (
	"fmt"

	"mmwave-irs-sim/internal/config"
	"mmwave-irs-sim/internal/geom"
	"mmwave-irs-sim/internal/measure"
)

// Role is the function of a node in the scenario.
type Role int

const (
	RoleUE Role = iota
	RoleUAV
	RoleJammer
)

func (r Role) String() string {
	switch r {
	case RoleUE:
		return "ue"
	case RoleUAV:
		return "uav"
	case RoleJammer:
		return "jammer"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Fixed scenario placement.
var (
	UAVPosition    = geom.Vec3{X: 30, Y: 10, Z: 25}
	JammerPosition = geom.Vec3{X: 15, Y: 5, Z: 10}
)

// UEPosition returns the ground position of user i.
func UEPosition(i int) geom.Vec3 {
	return geom.Vec3{X: 10 * float64(i), Y: 0, Z: 1.5}
}

// Node is one simulated device.
type Node struct {
	Index    measure.NodeIndex
	Role     Role
	Name     string
	Position geom.Vec3
}

// Endpoint addresses a network device on a node.
type Endpoint struct {
	Node   measure.NodeIndex
	Device int
}

// Registry assigns node indices in creation order.
type Registry struct {
	nodes []Node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewScenarioRegistry creates the users (indices 0..n-1), the UAV (n) and,
// when enabled, the jammer (n+1).
func NewScenarioRegistry(cfg *config.ScenarioConfig) *Registry {
	r := NewRegistry()
	for i := 0; i < int(cfg.NumUsers); i++ {
		r.Add(RoleUE, fmt.Sprintf("ue%d", i), UEPosition(i))
	}
	r.Add(RoleUAV, "uav", UAVPosition)
	if cfg.Jammer {
		r.Add(RoleJammer, "jammer", JammerPosition)
	}
	return r
}

// Add creates a node and returns it.
func (r *Registry) Add(role Role, name string, pos geom.Vec3) Node {
	n := Node{Index: measure.NodeIndex(len(r.nodes)), Role: role, Name: name, Position: pos}
	r.nodes = append(r.nodes, n)
	return n
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int { return len(r.nodes) }

// Node returns the node at idx.
func (r *Registry) Node(idx measure.NodeIndex) (Node, bool) {
	if int(idx) >= len(r.nodes) {
		return Node{}, false
	}
	return r.nodes[idx], true
}

// Nodes returns all nodes in index order.
func (r *Registry) Nodes() []Node {
	out := make([]Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// ByRole returns the nodes with the given role in index order.
func (r *Registry) ByRole(role Role) []Node {
	var out []Node
	for _, n := range r.nodes {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// Resolve maps an endpoint to its node index. Every node carries a single
// mmWave device (index 0).
func (r *Registry) Resolve(ep Endpoint) (measure.NodeIndex, bool) {
	if ep.Device != 0 {
		return 0, false
	}
	if _, ok := r.Node(ep.Node); !ok {
		return 0, false
	}
	return ep.Node, true
}

// StreamOpener opens the per-user output streams of a node.
type StreamOpener interface {
	Open(node measure.NodeIndex, user int) error
}

// OpenUserStreams opens output streams for every user node, numbered in
// creation order.
func OpenUserStreams(o StreamOpener, r *Registry) error {
	for i, n := range r.ByRole(RoleUE) {
		if err := o.Open(n.Index, i); err != nil {
			return fmt.Errorf("open streams for %s: %w", n.Name, err)
		}
	}
	return nil
}
