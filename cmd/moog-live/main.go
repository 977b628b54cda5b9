package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/vsariola/moog"
	"github.com/vsariola/moog/cmd"
	"github.com/vsariola/moog/engine"
	"github.com/vsariola/moog/gomidi"
	"github.com/vsariola/moog/oto"
	"github.com/vsariola/moog/rpc"
	"github.com/vsariola/moog/version"
)

var configFile = flag.String("config", "", "config file; by default the one in the user config directory is used if it exists")
var midiInput = flag.String("midi-input", "", "connect MIDI input to matching device name prefix")
var midiChannel = flag.Int("channel", gomidi.Omni, "MIDI channel to listen to, 0-15; -1 listens to all")
var record = flag.String("record", "", "render into a .wav `file` instead of the audio device")
var patchName = flag.String("patch", "", "patch to load at startup")
var patchDir = flag.String("patch-dir", "", "directory of saved patches; defaults to patches in the user config directory")
var listen = flag.String("listen", "", "accept events from remote senders on `address`, e.g. "+rpc.DefaultAddress)
var noRepl = flag.Bool("no-repl", false, "do not read commands from the terminal; run until interrupted")
var versionFlag = flag.Bool("v", false, "print version")

func main() {
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	cfg, err := moog.LoadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	synth, err := engine.NewSynth(cfg)
	if err != nil {
		log.Fatal(err)
	}
	store := moog.DirStore{Dir: *patchDir}
	if store.Dir == "" {
		store.Dir = "patches"
		if configDir, err := os.UserConfigDir(); err == nil {
			store.Dir = filepath.Join(configDir, "moog", "patches")
		}
	}
	if *patchName != "" {
		p, err := store.Load(*patchName)
		if err != nil {
			log.Fatal(err)
		}
		if err := synth.LoadPatch(p); err != nil {
			log.Fatal(err)
		}
	}
	var listener *gomidi.Listener
	if isFlagPassed("midi-input") {
		listener, err = cmd.OpenMIDI(synth, *midiInput, *midiChannel)
		if err != nil {
			log.Printf("failed to open MIDI input '%s': %v", *midiInput, err)
		} else {
			defer listener.Close()
			log.Printf("listening to MIDI input '%v'", listener)
		}
	}
	if *listen != "" {
		l, err := rpc.Receiver(*listen, synth)
		if err != nil {
			log.Fatal(err)
		}
		defer l.Close()
		log.Printf("accepting remote events on %v", l.Addr())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	done := make(chan error, 1)
	if *record != "" {
		f, err := os.Create(*record)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		go func() { done <- moog.Run(ctx, synth, moog.NewWavSink(f, cfg.SampleRate), cfg) }()
	} else {
		audioContext, err := oto.NewContext(cfg.SampleRate, cfg.BlockSize)
		if err != nil {
			log.Fatal(err)
		}
		defer audioContext.Close()
		player := audioContext.Play(synth.Render)
		go func() {
			<-ctx.Done()
			player.Close()
		}()
		go func() { done <- player.Wait() }()
	}

	if !*noRepl {
		e := &env{synth: synth, patches: store, listener: listener}
		go func() {
			if err := repl(e); err != nil {
				log.Println(err)
			}
			stop()
		}()
	}
	if err := <-done; err != nil {
		log.Println(err)
	}
	st := synth.Stats()
	log.Printf("rendered %d blocks, %d overruns, %d dropped events", st.Blocks, st.Overruns, st.Dropped)
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
