package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/moog"
)

type (
	// Block is one tick worth of samples of a single signal.
	Block []float32

	NodeID int

	// Port addresses an output (as the source of a connection) or an input
	// (as the destination) of a node.
	Port struct {
		Node  NodeID
		Index int
	}

	Connection struct {
		From, To Port
	}

	Input struct {
		Name     string
		Optional bool // unconnected optional inputs read silence
	}

	// Node is one processing element of the graph. The set of node kinds is
	// closed: only this package can implement it.
	Node interface {
		Kind() NodeKind
		Inputs() []Input
		Outputs() int
		process(in, out []Block)
	}

	// Graph is the static description of the signal routing: nodes in an
	// index-based table and the connections between their ports.
	Graph struct {
		nodes     []namedNode
		conns     []Connection
		feedbacks [][2]NodeID // return, send
	}

	namedNode struct {
		name string
		node Node
	}

	NodeInfo struct {
		ID      NodeID
		Name    string
		Kind    NodeKind
		Inputs  []Input
		Outputs int
	}

	// Schedule is a compiled graph: the evaluation order and every buffer,
	// allocated once. Ticking it allocates nothing.
	Schedule struct {
		graph     *Graph
		blockSize int
		order     []NodeID
		outs      [][]Block
		ins       [][]Block
		fanIns    [][]fanIn
		outputs   []*outputNode
	}

	fanIn struct {
		dst  Block
		srcs []Block
	}

	// allocator is implemented by nodes that need scratch buffers sized to
	// the block.
	allocator interface {
		alloc(blockSize int)
	}
)

var (
	ErrCycle    = errors.New("graph contains a cycle")
	ErrDangling = errors.New("dangling connection")
)

func NewGraph() *Graph {
	return &Graph{}
}

// Add appends a node to the table and returns its index.
func (g *Graph) Add(name string, n Node) NodeID {
	g.nodes = append(g.nodes, namedNode{name: name, node: n})
	return NodeID(len(g.nodes) - 1)
}

// Connect routes output port out of from into input port in of to. Several
// connections into the same input are summed.
func (g *Graph) Connect(from NodeID, out int, to NodeID, in int) {
	g.conns = append(g.conns, Connection{From: Port{from, out}, To: Port{to, in}})
}

// AddFeedback adds a send/return pair carrying a signal back to an earlier
// point of the graph with one block of delay. The return node is always
// evaluated before the send node.
func (g *Graph) AddFeedback(name string) (send, ret NodeID) {
	line := &feedbackLine{}
	ret = g.Add(name+"Return", &feedbackReturn{line: line})
	send = g.Add(name+"Send", &feedbackSend{line: line})
	g.feedbacks = append(g.feedbacks, [2]NodeID{ret, send})
	return send, ret
}

// Find returns the node with the given name.
func (g *Graph) Find(name string) (NodeID, bool) {
	for i, n := range g.nodes {
		if n.name == name {
			return NodeID(i), true
		}
	}
	return -1, false
}

func (g *Graph) Node(id NodeID) Node {
	return g.nodes[id].node
}

func (g *Graph) Nodes() []NodeInfo {
	ret := make([]NodeInfo, len(g.nodes))
	for i, n := range g.nodes {
		ret[i] = NodeInfo{ID: NodeID(i), Name: n.name, Kind: n.node.Kind(), Inputs: n.node.Inputs(), Outputs: n.node.Outputs()}
	}
	return ret
}

func (g *Graph) Connections() []Connection {
	return append([]Connection(nil), g.conns...)
}

// Feedbacks returns each feedback pair as a connection from its send to its
// return.
func (g *Graph) Feedbacks() []Connection {
	ret := make([]Connection, len(g.feedbacks))
	for i, f := range g.feedbacks {
		ret[i] = Connection{From: Port{f[1], 0}, To: Port{f[0], 0}}
	}
	return ret
}

func (g *Graph) Name(id NodeID) string {
	if id < 0 || int(id) >= len(g.nodes) {
		return fmt.Sprintf("#%d", id)
	}
	return g.nodes[id].name
}

func (g *Graph) validate() error {
	names := map[string]bool{}
	for _, n := range g.nodes {
		if names[n.name] {
			return fmt.Errorf("duplicate node name %q", n.name)
		}
		names[n.name] = true
	}
	connected := make([][]bool, len(g.nodes))
	for i, n := range g.nodes {
		connected[i] = make([]bool, len(n.node.Inputs()))
	}
	for _, c := range g.conns {
		if c.From.Node < 0 || int(c.From.Node) >= len(g.nodes) || c.To.Node < 0 || int(c.To.Node) >= len(g.nodes) {
			return fmt.Errorf("%w: %v -> %v references a missing node", ErrDangling, c.From, c.To)
		}
		if c.From.Index < 0 || c.From.Index >= g.nodes[c.From.Node].node.Outputs() {
			return fmt.Errorf("%w: %v has no output %d", ErrDangling, g.Name(c.From.Node), c.From.Index)
		}
		if c.To.Index < 0 || c.To.Index >= len(connected[c.To.Node]) {
			return fmt.Errorf("%w: %v has no input %d", ErrDangling, g.Name(c.To.Node), c.To.Index)
		}
		connected[c.To.Node][c.To.Index] = true
	}
	for i, n := range g.nodes {
		for j, in := range n.node.Inputs() {
			if !in.Optional && !connected[i][j] {
				return fmt.Errorf("%w: input %q of %v is not connected", ErrDangling, in.Name, n.name)
			}
		}
	}
	return nil
}

// sort returns the evaluation order using Kahn's algorithm. Among ready
// nodes the lowest index goes first, so the order is deterministic.
func (g *Graph) sort() ([]NodeID, error) {
	n := len(g.nodes)
	edges := make([][]bool, n)
	for i := range edges {
		edges[i] = make([]bool, n)
	}
	indegree := make([]int, n)
	addEdge := func(from, to NodeID) {
		if !edges[from][to] {
			edges[from][to] = true
			indegree[to]++
		}
	}
	for _, c := range g.conns {
		addEdge(c.From.Node, c.To.Node)
	}
	for _, f := range g.feedbacks {
		addEdge(f[0], f[1])
	}
	order := make([]NodeID, 0, n)
	done := make([]bool, n)
	for len(order) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i := 0; i < n; i++ {
				if !done[i] {
					stuck = append(stuck, g.nodes[i].name)
				}
			}
			return nil, fmt.Errorf("%w through %v", ErrCycle, strings.Join(stuck, ", "))
		}
		done[next] = true
		order = append(order, NodeID(next))
		for j := 0; j < n; j++ {
			if edges[next][j] {
				indegree[j]--
			}
		}
	}
	return order, nil
}

// Compile validates the graph, sorts it and allocates all buffers for the
// given block size.
func (g *Graph) Compile(blockSize int) (*Schedule, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("invalid block size %d", blockSize)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	order, err := g.sort()
	if err != nil {
		return nil, err
	}
	s := &Schedule{
		graph:     g,
		blockSize: blockSize,
		order:     order,
		outs:      make([][]Block, len(g.nodes)),
		ins:       make([][]Block, len(g.nodes)),
		fanIns:    make([][]fanIn, len(g.nodes)),
	}
	zero := make(Block, blockSize)
	for i, n := range g.nodes {
		s.outs[i] = make([]Block, n.node.Outputs())
		for j := range s.outs[i] {
			s.outs[i][j] = make(Block, blockSize)
		}
		if a, ok := n.node.(allocator); ok {
			a.alloc(blockSize)
		}
		if o, ok := n.node.(*outputNode); ok {
			s.outputs = append(s.outputs, o)
		}
	}
	for i, n := range g.nodes {
		inputs := n.node.Inputs()
		s.ins[i] = make([]Block, len(inputs))
		for j := range inputs {
			var srcs []Block
			for _, c := range g.conns {
				if c.To == (Port{NodeID(i), j}) {
					srcs = append(srcs, s.outs[c.From.Node][c.From.Index])
				}
			}
			switch len(srcs) {
			case 0:
				s.ins[i][j] = zero
			case 1:
				s.ins[i][j] = srcs[0]
			default:
				sum := make(Block, blockSize)
				s.ins[i][j] = sum
				s.fanIns[i] = append(s.fanIns[i], fanIn{dst: sum, srcs: srcs})
			}
		}
	}
	return s, nil
}

// Tick evaluates every node once in order. The output nodes write into out,
// which must hold exactly one block.
func (s *Schedule) Tick(out moog.AudioBuffer) {
	for _, o := range s.outputs {
		o.dst = out
	}
	for _, id := range s.order {
		for _, f := range s.fanIns[id] {
			copy(f.dst, f.srcs[0])
			for _, src := range f.srcs[1:] {
				vek32.Add_Inplace(f.dst, src)
			}
		}
		s.graph.nodes[id].node.process(s.ins[id], s.outs[id])
	}
}

// Order returns the cached evaluation order.
func (s *Schedule) Order() []NodeID {
	return append([]NodeID(nil), s.order...)
}

// Output returns the buffer of an output port as of the last tick.
func (s *Schedule) Output(id NodeID, port int) Block {
	return s.outs[id][port]
}

func (s *Schedule) BlockSize() int { return s.blockSize }

func (s *Schedule) Graph() *Graph { return s.graph }
