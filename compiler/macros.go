package compiler

import (
	"github.com/vsariola/moog"
	"github.com/vsariola/moog/engine"
)

type (
	Macros struct {
		Name        string
		Config      moog.Config
		Nodes       []NodeMacro
		Connections []ConnectionMacro
		Order       []string
		Params      []ParamMacro
	}

	NodeMacro struct {
		ID      int
		Name    string
		Kind    string
		Inputs  []string
		Outputs int
	}

	ConnectionMacro struct {
		From, To int
		Out      int
		In       string
		FromName string
		ToName   string
		Feedback bool
	}

	ParamMacro struct {
		Name        string
		DisplayName string
		Controller  int
		Bits        int
		Default     int
		Smoothed    bool
		Required    bool
		Choices     []string
		Raw         int
		Value       string
	}
)

func NewMacros(synth *engine.Synth, name string) *Macros {
	g := synth.Topology().Graph
	ret := &Macros{Name: name, Config: synth.Config()}
	nodes := g.Nodes()
	for _, n := range nodes {
		nm := NodeMacro{ID: int(n.ID), Name: n.Name, Kind: n.Kind.String(), Outputs: n.Outputs}
		for _, in := range n.Inputs {
			nm.Inputs = append(nm.Inputs, in.Name)
		}
		ret.Nodes = append(ret.Nodes, nm)
	}
	conn := func(c engine.Connection, feedback bool) ConnectionMacro {
		in := ""
		if ins := nodes[c.To.Node].Inputs; c.To.Index < len(ins) {
			in = ins[c.To.Index].Name
		}
		return ConnectionMacro{
			From:     int(c.From.Node),
			To:       int(c.To.Node),
			Out:      c.From.Index,
			In:       in,
			FromName: g.Name(c.From.Node),
			ToName:   g.Name(c.To.Node),
			Feedback: feedback,
		}
	}
	for _, c := range g.Connections() {
		ret.Connections = append(ret.Connections, conn(c, false))
	}
	for _, c := range g.Feedbacks() {
		ret.Connections = append(ret.Connections, conn(c, true))
	}
	for _, id := range synth.Schedule().Order() {
		ret.Order = append(ret.Order, g.Name(id))
	}
	store := synth.Store()
	for i, p := range moog.Params {
		id := moog.ParamID(i)
		ret.Params = append(ret.Params, ParamMacro{
			Name:        p.Name,
			DisplayName: p.DisplayName(),
			Controller:  p.Controller,
			Bits:        p.Bits,
			Default:     p.Default,
			Smoothed:    p.Policy == moog.Smoothed,
			Required:    p.Required,
			Choices:     p.Choices,
			Raw:         store.Raw(id),
			Value:       p.Format(store.Raw(id)),
		})
	}
	return ret
}
