package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/vsariola/moog"
	"github.com/vsariola/moog/compiler"
	"github.com/vsariola/moog/engine"
	"github.com/vsariola/moog/oto"
	"github.com/vsariola/moog/version"
)

func main() {
	configFile := flag.String("config", "", "config file; by default the one in the user config directory is used if it exists")
	patchDir := flag.String("patch-dir", "", "directory of saved patches; defaults to patches in the user config directory")
	versionFlag := flag.Bool("v", false, "print version")
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
	comp, err := compiler.New()
	if err != nil {
		log.Fatal(err)
	}
	dir := *patchDir
	if dir == "" {
		dir = "patches"
		if configDir, err := os.UserConfigDir(); err == nil {
			dir = filepath.Join(configDir, "moog", "patches")
		}
	}
	audioContext, err := oto.NewContext(cfg.SampleRate, cfg.BlockSize)
	if err != nil {
		log.Fatalf("could not acquire oto AudioContext: %v", err)
	}
	defer audioContext.Close()
	player := audioContext.Play(synth.Render)
	defer player.Close()

	s := newServer(&tools{synth: synth, patches: moog.DirStore{Dir: dir}, comp: comp})
	log.Println("Starting moog MCP server...")
	if err := server.ServeStdio(s); err != nil {
		log.Printf("Server error: %v", err)
	}
}
