package engine_test

import (
	"errors"
	"testing"

	"github.com/vsariola/moog"
	"github.com/vsariola/moog/engine"
)

const blockSize = 64

func tick(t *testing.T, s *engine.Schedule) moog.AudioBuffer {
	t.Helper()
	buf := make(moog.AudioBuffer, s.BlockSize())
	s.Tick(buf)
	return buf
}

func checkOrder(t *testing.T, g *engine.Graph, order []engine.NodeID) {
	t.Helper()
	if len(order) != len(g.Nodes()) {
		t.Fatalf("order has %d nodes, graph has %d", len(order), len(g.Nodes()))
	}
	pos := map[engine.NodeID]int{}
	for i, id := range order {
		pos[id] = i
	}
	for _, c := range g.Connections() {
		if pos[c.From.Node] >= pos[c.To.Node] {
			t.Fatalf("%v is evaluated after its consumer %v", g.Name(c.From.Node), g.Name(c.To.Node))
		}
	}
}

func TestGraphOrderFollowsConnections(t *testing.T) {
	g := engine.NewGraph()
	out := g.Add("out", engine.NewOutput())
	mix := g.Add("mix", engine.NewMixer(engine.Const(1), engine.Const(1)))
	amp := g.Add("amp", engine.NewAmp(engine.Const(0.5)))
	a := g.Add("a", engine.NewDC(engine.Const(0.25), nil, sampleRate))
	b := g.Add("b", engine.NewDC(engine.Const(0.5), nil, sampleRate))
	g.Connect(a, 0, amp, 0)
	g.Connect(amp, 0, mix, 0)
	g.Connect(b, 0, mix, 1)
	g.Connect(mix, 0, out, 0)
	g.Connect(mix, 0, out, 1)
	s, err := g.Compile(blockSize)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	checkOrder(t, g, s.Order())
	buf := tick(t, s)
	for i, v := range buf {
		if v != [2]float32{0.625, 0.625} {
			t.Fatalf("sample %d: got %v, expected 0.625 on both channels", i, v)
		}
	}
}

func TestGraphOrderIsDeterministic(t *testing.T) {
	build := func() []engine.NodeID {
		g := engine.NewGraph()
		var ids []engine.NodeID
		for i := 0; i < 6; i++ {
			ids = append(ids, g.Add(string(rune('a'+i)), engine.NewMixer(engine.Const(1))))
		}
		g.Connect(ids[5], 0, ids[0], 0)
		g.Connect(ids[3], 0, ids[1], 0)
		s, err := g.Compile(blockSize)
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		return s.Order()
	}
	first := build()
	for i := 0; i < 5; i++ {
		again := build()
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("order differs between builds: %v vs %v", first, again)
			}
		}
	}
}

func TestGraphRejectsCycle(t *testing.T) {
	g := engine.NewGraph()
	a := g.Add("a", engine.NewMixer(engine.Const(1)))
	b := g.Add("b", engine.NewAmp(engine.Const(1)))
	c := g.Add("c", engine.NewAmp(engine.Const(1)))
	g.Connect(a, 0, b, 0)
	g.Connect(b, 0, c, 0)
	g.Connect(c, 0, a, 0)
	if _, err := g.Compile(blockSize); !errors.Is(err, engine.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

// selfModulation wires an oscillator that modulates its own pitch bus,
// directly or through a feedback pair.
func selfModulation(delayed bool) *engine.Graph {
	g := engine.NewGraph()
	tune := g.Add("tune", engine.NewDC(engine.Const(0), nil, sampleRate))
	pitch := g.Add("pitch", engine.NewMixer(engine.Const(1), engine.Const(1)))
	osc := g.Add("osc", engine.NewOscillator(func() engine.Waveform { return engine.Triangle }, engine.Const(0), sampleRate))
	depth := g.Add("depth", engine.NewAmp(engine.Const(0.5)))
	g.Connect(tune, 0, pitch, 0)
	g.Connect(pitch, 0, osc, 0)
	if delayed {
		send, ret := g.AddFeedback("oscMod")
		g.Connect(osc, 0, send, 0)
		g.Connect(ret, 0, depth, 0)
	} else {
		g.Connect(osc, 0, depth, 0)
	}
	g.Connect(depth, 0, pitch, 1)
	return g
}

func TestGraphSelfModulation(t *testing.T) {
	if _, err := selfModulation(false).Compile(blockSize); !errors.Is(err, engine.ErrCycle) {
		t.Fatalf("expected ErrCycle for an undelayed pitch loop, got %v", err)
	}
	g := selfModulation(true)
	s, err := g.Compile(blockSize)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	checkOrder(t, g, s.Order())
	depth, _ := g.Find("depth")
	tick(t, s)
	for i, v := range s.Output(depth, 0) {
		if v != 0 {
			t.Fatalf("sample %d: first block should see an empty return, got %v", i, v)
		}
	}
	tick(t, s)
	nonzero := false
	for _, v := range s.Output(depth, 0) {
		nonzero = nonzero || v != 0
	}
	if !nonzero {
		t.Fatalf("second block did not carry the oscillator back")
	}
}

func TestGraphRejectsDangling(t *testing.T) {
	cases := map[string]func(g *engine.Graph){
		"missing node": func(g *engine.Graph) {
			a := g.Add("a", engine.NewDC(engine.Const(1), nil, sampleRate))
			g.Connect(a, 0, 7, 0)
		},
		"missing output": func(g *engine.Graph) {
			a := g.Add("a", engine.NewDC(engine.Const(1), nil, sampleRate))
			m := g.Add("m", engine.NewMixer(engine.Const(1)))
			g.Connect(a, 1, m, 0)
		},
		"missing input": func(g *engine.Graph) {
			a := g.Add("a", engine.NewDC(engine.Const(1), nil, sampleRate))
			m := g.Add("m", engine.NewMixer(engine.Const(1)))
			g.Connect(a, 0, m, 4)
		},
		"unconnected required input": func(g *engine.Graph) {
			a := g.Add("a", engine.NewDC(engine.Const(1), nil, sampleRate))
			m := g.Add("m", engine.NewMultiply())
			g.Connect(a, 0, m, 0)
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			g := engine.NewGraph()
			build(g)
			if _, err := g.Compile(blockSize); !errors.Is(err, engine.ErrDangling) {
				t.Fatalf("expected ErrDangling, got %v", err)
			}
		})
	}
}

func TestGraphFanInSums(t *testing.T) {
	g := engine.NewGraph()
	a := g.Add("a", engine.NewDC(engine.Const(0.25), nil, sampleRate))
	b := g.Add("b", engine.NewDC(engine.Const(0.5), nil, sampleRate))
	amp := g.Add("amp", engine.NewAmp(engine.Const(2)))
	g.Connect(a, 0, amp, 0)
	g.Connect(b, 0, amp, 0)
	s, err := g.Compile(blockSize)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	tick(t, s)
	for i, v := range s.Output(amp, 0) {
		if v != 1.5 {
			t.Fatalf("sample %d: got %v, expected 1.5", i, v)
		}
	}
}

func TestGraphFeedbackIsDelayedOneBlock(t *testing.T) {
	level := float32(1)
	g := engine.NewGraph()
	send, ret := g.AddFeedback("fb")
	src := g.Add("src", engine.NewDC(func() float32 { return level }, nil, sampleRate))
	mix := g.Add("mix", engine.NewMixer(engine.Const(1), engine.Const(1)))
	g.Connect(src, 0, mix, 0)
	g.Connect(ret, 0, mix, 1)
	g.Connect(src, 0, send, 0)
	s, err := g.Compile(blockSize)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	checkOrder(t, g, s.Order())
	tick(t, s)
	if v := s.Output(mix, 0)[0]; v != 1 {
		t.Fatalf("first block should see an empty return, got %v", v)
	}
	level = 0
	tick(t, s)
	if v := s.Output(ret, 0)[0]; v != 1 {
		t.Fatalf("return should carry the previous block, got %v", v)
	}
}

func TestGraphPureNodesAreRepeatable(t *testing.T) {
	g := engine.NewGraph()
	a := g.Add("a", engine.NewDC(engine.Const(0.3), nil, sampleRate))
	b := g.Add("b", engine.NewDC(engine.Const(-0.7), nil, sampleRate))
	mix := g.Add("mix", engine.NewMixer(engine.Const(0.5), engine.Const(0.25)))
	mul := g.Add("mul", engine.NewMultiply())
	crush := g.Add("crush", engine.NewCrusher(engine.Const(4)))
	g.Connect(a, 0, mix, 0)
	g.Connect(b, 0, mix, 1)
	g.Connect(mix, 0, mul, 0)
	g.Connect(a, 0, mul, 1)
	g.Connect(mul, 0, crush, 0)
	s, err := g.Compile(blockSize)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	tick(t, s)
	first := append(engine.Block(nil), s.Output(crush, 0)...)
	tick(t, s)
	for i, v := range s.Output(crush, 0) {
		if v != first[i] {
			t.Fatalf("sample %d differs between ticks: %v != %v", i, v, first[i])
		}
	}
}
