package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/vsariola/moog"
	"github.com/vsariola/moog/cmd"
	"github.com/vsariola/moog/engine"
	"github.com/vsariola/moog/gomidi"
)

type env struct {
	synth    *engine.Synth
	patches  moog.PatchStore
	listener *gomidi.Listener
}

type command struct {
	name  string
	help  string
	run   func(*env, []string) (string, error)
	arity int // -n means len(args) must be >= n
}

var commands []command

func init() {
	commands = []command{
		{"on", "on <note> [velocity]: press a key", onCommand, -1},
		{"off", "off <note>: release a key", offCommand, 1},
		{"cc", "cc <controller> <value>: send a control change", ccCommand, 2},
		{"bend", "bend <0-16383>: send a pitch bend", bendCommand, 1},
		{"get", "get <param>: show a parameter", getCommand, 1},
		{"set", "set <param> <raw>: set a parameter", setCommand, 2},
		{"params", "params: list parameters", paramsCommand, 0},
		{"save", "save <name>: save the current patch", saveCommand, 1},
		{"load", "load <name>: load a saved patch", loadCommand, 1},
		{"patches", "patches: list saved patches", patchesCommand, 0},
		{"inputs", "inputs: list MIDI inputs", inputsCommand, 0},
		{"stats", "stats: show render statistics", statsCommand, 0},
		{"help", "help: show this help", helpCommand, 0},
	}
}

func (e *env) eval(input string) (string, error) {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]
	for _, c := range commands {
		if name != c.name {
			continue
		}
		if c.arity < 0 {
			arity := -c.arity
			if len(args) < arity {
				return "", fmt.Errorf("%s: wrong number of arguments: need at least %v, got %v", c.name, arity, len(args))
			}
		} else if len(args) != c.arity {
			return "", fmt.Errorf("%s: wrong number of arguments: want %v, got %v", c.name, c.arity, len(args))
		}
		result, err := c.run(e, args)
		if err != nil {
			return result, fmt.Errorf("%s error: %w", c.name, err)
		}
		return result, nil
	}
	return "", fmt.Errorf("unknown command: %s", name)
}

func repl(env *env) error {
	rl, err := readline.New("moog> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if result, err := env.eval(line); err != nil {
			fmt.Println(err)
		} else if result != "" {
			fmt.Println(result)
		}
	}
}

func readInts(args []string, max int) ([]int, error) {
	ret := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, err
		}
		if v < 0 || v > max {
			return nil, fmt.Errorf("%d out of range 0..%d", v, max)
		}
		ret[i] = v
	}
	return ret, nil
}

func (e *env) send(ev moog.Event) (string, error) {
	if !e.synth.Send(ev) {
		return "", errors.New("event queue full, event dropped")
	}
	return "", nil
}

func onCommand(e *env, args []string) (string, error) {
	v, err := readInts(args, moog.MaxController7)
	if err != nil {
		return "", err
	}
	vel := 100
	if len(v) > 1 {
		vel = v[1]
	}
	return e.send(moog.NoteOn(byte(v[0]), byte(vel)))
}

func offCommand(e *env, args []string) (string, error) {
	v, err := readInts(args, moog.MaxController7)
	if err != nil {
		return "", err
	}
	return e.send(moog.NoteOff(byte(v[0])))
}

func ccCommand(e *env, args []string) (string, error) {
	v, err := readInts(args, moog.MaxController7)
	if err != nil {
		return "", err
	}
	return e.send(moog.ControlChange(byte(v[0]), v[1]))
}

func bendCommand(e *env, args []string) (string, error) {
	v, err := readInts(args, moog.MaxController14)
	if err != nil {
		return "", err
	}
	return e.send(moog.PitchBend(v[0]))
}

func param(name string) (moog.ParamID, error) {
	id, ok := moog.ParamByName(name)
	if !ok {
		return 0, fmt.Errorf("unknown parameter: %s", name)
	}
	return id, nil
}

func describe(store *engine.Store, id moog.ParamID) string {
	raw := store.Raw(id)
	return fmt.Sprintf("%-20s %-22s %6d  %s", id, id.Spec().DisplayName(), raw, id.Spec().Format(raw))
}

func getCommand(e *env, args []string) (string, error) {
	id, err := param(args[0])
	if err != nil {
		return "", err
	}
	return describe(e.synth.Store(), id), nil
}

func setCommand(e *env, args []string) (string, error) {
	id, err := param(args[0])
	if err != nil {
		return "", err
	}
	v, err := readInts(args[1:], id.Spec().MaxRaw())
	if err != nil {
		return "", err
	}
	e.synth.Store().Set(id, v[0])
	return describe(e.synth.Store(), id), nil
}

func paramsCommand(e *env, _ []string) (string, error) {
	lines := make([]string, 0, moog.NumParams)
	for i := range moog.Params {
		lines = append(lines, describe(e.synth.Store(), moog.ParamID(i)))
	}
	return strings.Join(lines, "\n"), nil
}

func saveCommand(e *env, args []string) (string, error) {
	return "", e.patches.Save(args[0], e.synth.SavePatch())
}

func loadCommand(e *env, args []string) (string, error) {
	p, err := e.patches.Load(args[0])
	if err != nil {
		return "", err
	}
	return "", e.synth.LoadPatch(p)
}

func patchesCommand(e *env, _ []string) (string, error) {
	names, err := e.patches.List()
	return strings.Join(names, "\n"), err
}

func inputsCommand(e *env, _ []string) (string, error) {
	ret := strings.Join(cmd.MIDIInputs(), "\n")
	if e.listener != nil {
		received, dropped := e.listener.Stats()
		ret += fmt.Sprintf("\nlistening to %v: %d events, %d dropped", e.listener, received, dropped)
	}
	return ret, nil
}

func statsCommand(e *env, _ []string) (string, error) {
	st := e.synth.Stats()
	return fmt.Sprintf("blocks %d, overruns %d, dropped %d, peak %.3f, rms %.3f",
		st.Blocks, st.Overruns, st.Dropped, st.Peak, st.RMS), nil
}

func helpCommand(e *env, _ []string) (string, error) {
	lines := make([]string, 0, len(commands))
	for _, c := range commands {
		lines = append(lines, c.help)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}
