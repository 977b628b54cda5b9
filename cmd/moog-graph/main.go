package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vsariola/moog"
	"github.com/vsariola/moog/compiler"
	"github.com/vsariola/moog/engine"
	"github.com/vsariola/moog/version"
)

func filterExtensions(input map[string]string, extensions []string) map[string]string {
	ret := map[string]string{}
	for _, ext := range extensions {
		extWithDot := "." + ext
		if inputVal, ok := input[extWithDot]; ok {
			ret[extWithDot] = inputVal
		}
	}
	return ret
}

func main() {
	safe := flag.Bool("n", false, "Never overwrite files; if file already exists and would be overwritten, give an error.")
	list := flag.Bool("l", false, "Do not write files; just list files that would change instead.")
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	tmplDir := flag.String("t", "", "Use the templates in this directory instead of the standard templates.")
	outPath := flag.String("o", "", "Directory where to write the descriptions. Directory and its parents are created if needed. By default, everything is placed in the working directory.")
	extensionsOut := flag.String("e", "", "Output only the files with these comma separated extensions. For example: dot,md")
	patchName := flag.String("patch", "", "Describe the parameter values of this saved patch instead of the defaults.")
	patchDir := flag.String("patch-dir", "", "Directory of saved patches. Defaults to patches in the user config directory.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	var comp *compiler.Compiler
	var err error
	if *tmplDir != "" {
		comp, err = compiler.NewFromTemplates(*tmplDir)
	} else {
		comp, err = compiler.New()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating compiler: %v\n", err)
		os.Exit(1)
	}
	var patch moog.Patch
	if *patchName != "" {
		dir := *patchDir
		if dir == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not find the user config directory, give -patch-dir: %v\n", err)
				os.Exit(1)
			}
			dir = filepath.Join(configDir, "moog", "patches")
		}
		if patch, err = (moog.DirStore{Dir: dir}).Load(*patchName); err != nil {
			fmt.Fprintf(os.Stderr, "could not load patch: %v\n", err)
			os.Exit(1)
		}
	}
	output := func(name string, extension string, contents []byte) error {
		if *stdout {
			fmt.Print(string(contents))
			return nil
		}
		dir := *outPath
		if dir == "" {
			var err error
			dir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
			}
		}
		f := filepath.Join(dir, name+extension)
		original, err := os.ReadFile(f)
		if err == nil {
			if bytes.Equal(original, contents) {
				return nil // no need to update
			}
			if !*list && *safe {
				return fmt.Errorf("file %v would be overwritten", f)
			}
		}
		if *list {
			fmt.Println(f)
			return nil
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
		if err := os.WriteFile(f, contents, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %v", f, err)
		}
		return nil
	}
	process := func(configFile string) error {
		cfg := moog.DefaultConfig()
		name := "moog"
		if configFile != "" {
			if cfg, err = moog.LoadConfig(configFile); err != nil {
				return err
			}
			_, base := filepath.Split(configFile)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		synth, err := engine.NewSynth(cfg)
		if err != nil {
			return fmt.Errorf("could not build the synth: %v", err)
		}
		if err := synth.LoadPatch(patch); err != nil {
			return err
		}
		files, err := comp.Synth(synth, name)
		if err != nil {
			return fmt.Errorf("compiling failed: %v", err)
		}
		if *extensionsOut != "" {
			files = filterExtensions(files, strings.Split(*extensionsOut, ","))
		}
		extensions := make([]string, 0, len(files))
		for ext := range files {
			extensions = append(extensions, ext)
		}
		sort.Strings(extensions)
		for _, ext := range extensions {
			if err := output(name, ext, []byte(files[ext])); err != nil {
				return fmt.Errorf("error outputting %v file: %v", ext, err)
			}
		}
		return nil
	}
	retval := 0
	configs := flag.Args()
	if len(configs) == 0 {
		configs = []string{""}
	}
	for _, c := range configs {
		if err := process(c); err != nil {
			fmt.Fprintf(os.Stderr, "could not describe config %q: %v\n", c, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "moog command line utility for describing the voice graph as Graphviz, text and markdown.\nUsage: %s [flags] [config.yml ...]\nWithout config files, the default config is described.\n", os.Args[0])
	flag.PrintDefaults()
}
