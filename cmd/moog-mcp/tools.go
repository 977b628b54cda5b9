package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/vsariola/moog"
	"github.com/vsariola/moog/compiler"
	"github.com/vsariola/moog/engine"
)

type tools struct {
	synth   *engine.Synth
	patches moog.PatchStore
	comp    *compiler.Compiler
}

func newServer(t *tools) *server.MCPServer {
	s := server.NewMCPServer(
		"moog",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	s.AddTool(mcp.NewTool("moog_list-parameters",
		mcp.WithDescription("Lists every synth parameter with its patch key, controller number, raw value and formatted value."),
	), t.listParameters)
	s.AddTool(mcp.NewTool("moog_get-parameter",
		mcp.WithDescription("Shows one synth parameter."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Patch key of the parameter, e.g. filter_cutoff.")),
	), t.getParameter)
	s.AddTool(mcp.NewTool("moog_set-parameter",
		mcp.WithDescription("Sets the raw value of a synth parameter: 0-127 for 7-bit and 0-16383 for 14-bit parameters."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Patch key of the parameter, e.g. filter_cutoff.")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Raw value.")),
	), t.setParameter)
	s.AddTool(mcp.NewTool("moog_control-change",
		mcp.WithDescription("Sends a MIDI control change. 14-bit parameters take effect when both the MSB and the LSB (controller + 32) have been sent."),
		mcp.WithNumber("controller", mcp.Required(), mcp.Description("Controller number (0-127).")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Value (0-127).")),
	), t.controlChange)
	s.AddTool(mcp.NewTool("moog_note-on",
		mcp.WithDescription("Presses a key. The synth is monophonic with last note priority."),
		mcp.WithNumber("note", mcp.Required(), mcp.Description("MIDI note number (0-127), 69 is A4.")),
		mcp.WithNumber("velocity", mcp.Description("Velocity (1-127), 100 by default.")),
	), t.noteOn)
	s.AddTool(mcp.NewTool("moog_note-off",
		mcp.WithDescription("Releases a key."),
		mcp.WithNumber("note", mcp.Required(), mcp.Description("MIDI note number (0-127).")),
	), t.noteOff)
	s.AddTool(mcp.NewTool("moog_pitch-bend",
		mcp.WithDescription("Moves the pitch wheel."),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Wheel position (0-16383), 8192 is centre.")),
	), t.pitchBend)
	s.AddTool(mcp.NewTool("moog_save-patch",
		mcp.WithDescription("Saves the current parameters as a named patch."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Patch name.")),
	), t.savePatch)
	s.AddTool(mcp.NewTool("moog_load-patch",
		mcp.WithDescription("Loads a named patch."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Patch name.")),
	), t.loadPatch)
	s.AddTool(mcp.NewTool("moog_list-patches",
		mcp.WithDescription("Lists saved patches."),
	), t.listPatches)
	s.AddTool(mcp.NewTool("moog_describe-graph",
		mcp.WithDescription("Describes the voice graph: nodes in evaluation order and their connections."),
	), t.describeGraph)
	s.AddTool(mcp.NewTool("moog_status",
		mcp.WithDescription("Shows render statistics and the output level."),
	), t.status)
	return s
}

func requireRaw(request mcp.CallToolRequest, key string, max int) (int, error) {
	v, err := request.RequireInt(key)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("%s %d out of range 0..%d", key, v, max)
	}
	return v, nil
}

func (t *tools) send(ev moog.Event) (*mcp.CallToolResult, error) {
	log.Printf("[mcp] sending %v", ev)
	if !t.synth.Send(ev) {
		return mcp.NewToolResultError("event queue full, event dropped"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("sent %v", ev)), nil
}

func (t *tools) describe(id moog.ParamID) string {
	spec := id.Spec()
	raw := t.synth.Store().Raw(id)
	cc := "none"
	if spec.Controller >= 0 {
		cc = fmt.Sprint(spec.Controller)
		if spec.Bits == 14 {
			cc += fmt.Sprintf("/%d", spec.Controller+moog.LSBOffset)
		}
	}
	return fmt.Sprintf("%s (%s): cc %s, raw %d of %d, %s", spec.Name, spec.DisplayName(), cc, raw, spec.MaxRaw(), spec.Format(raw))
}

func (t *tools) param(request mcp.CallToolRequest) (moog.ParamID, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return 0, err
	}
	id, ok := moog.ParamByName(name)
	if !ok {
		return 0, fmt.Errorf("unknown parameter %q", name)
	}
	return id, nil
}

func (t *tools) listParameters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lines := make([]string, 0, moog.NumParams)
	for i := range moog.Params {
		lines = append(lines, t.describe(moog.ParamID(i)))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (t *tools) getParameter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := t.param(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(t.describe(id)), nil
}

func (t *tools) setParameter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := t.param(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := requireRaw(request, "value", id.Spec().MaxRaw())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t.synth.Store().Set(id, v)
	return mcp.NewToolResultText(t.describe(id)), nil
}

func (t *tools) controlChange(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cc, err := requireRaw(request, "controller", moog.MaxController7)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := requireRaw(request, "value", moog.MaxController7)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.send(moog.ControlChange(byte(cc), v))
}

func (t *tools) noteOn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := requireRaw(request, "note", moog.MaxController7)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	vel := request.GetInt("velocity", 100)
	if vel < 1 || vel > moog.MaxController7 {
		return mcp.NewToolResultError(fmt.Sprintf("velocity %d out of range 1..127", vel)), nil
	}
	return t.send(moog.NoteOn(byte(note), byte(vel)))
}

func (t *tools) noteOff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := requireRaw(request, "note", moog.MaxController7)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.send(moog.NoteOff(byte(note)))
}

func (t *tools) pitchBend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := requireRaw(request, "value", moog.MaxController14)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return t.send(moog.PitchBend(v))
}

func (t *tools) savePatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.patches.Save(name, t.synth.SavePatch()); err != nil {
		return nil, fmt.Errorf("failed to save patch: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("patch %v saved", name)), nil
}

func (t *tools) loadPatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := t.patches.Load(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.synth.LoadPatch(p); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("patch %v loaded, %d parameters", name, len(p))), nil
}

func (t *tools) listPatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := t.patches.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list patches: %v", err)
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no saved patches"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (t *tools) describeGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := t.comp.Synth(t.synth, "moog")
	if err != nil {
		return nil, fmt.Errorf("failed to describe graph: %v", err)
	}
	return mcp.NewToolResultText(files[".txt"]), nil
}

func (t *tools) status(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := t.synth.Stats()
	return mcp.NewToolResultText(fmt.Sprintf("blocks %d, overruns %d, dropped events %d, peak %.3f, rms %.3f",
		st.Blocks, st.Overruns, st.Dropped, st.Peak, st.RMS)), nil
}
