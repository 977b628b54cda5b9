package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vsariola/moog"
	"github.com/vsariola/moog/engine"
	"github.com/vsariola/moog/oto"
	"github.com/vsariola/moog/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead. Only .raw output can be written to standard output.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	play := flag.Bool("p", false, "Play the input scores (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered score as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered score as 16-bit .wav file.")
	pcm := flag.Bool("c", false, "Convert .raw audio to 16-bit signed PCM.")
	configFile := flag.String("config", "", "Config file. By default, the config in the user config directory is used if it exists.")
	patchName := flag.String("patch", "", "Load a patch from the patch directory before applying the patch of the score.")
	patchDir := flag.String("patch-dir", defaultPatchDir(), "Directory of saved patches.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	if *stdout && *wavOut {
		fmt.Fprintln(os.Stderr, "a .wav file cannot be written to standard output")
		os.Exit(1)
	}
	cfg, err := moog.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	var basePatch moog.Patch
	if *patchName != "" {
		basePatch, err = moog.DirStore{Dir: *patchDir}.Load(*patchName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not load patch: %v\n", err)
			os.Exit(1)
		}
	}
	var audioContext *oto.OtoContext
	if *play {
		audioContext, err = oto.NewContext(cfg.SampleRate, cfg.BlockSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
			os.Exit(1)
		}
	}
	process := func(filename string) error {
		outputPath := func(extension string) (string, error) {
			_, name := filepath.Split(filename)
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return "", fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return "", fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			return filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+extension), nil
		}
		f, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		score, err := moog.ReadScore(f)
		f.Close()
		if err != nil {
			return err
		}
		synth, err := engine.NewSynth(cfg)
		if err != nil {
			return fmt.Errorf("could not create synth: %v", err)
		}
		for _, p := range []moog.Patch{basePatch, score.Patch} {
			if err := synth.LoadPatch(p); err != nil {
				return err
			}
		}
		buffer, err := moog.Play(synth, score, cfg)
		if err != nil {
			return fmt.Errorf("moog.Play failed: %v", err)
		}
		if st := synth.Stats(); st.Overruns > 0 {
			fmt.Fprintf(os.Stderr, "%v: %d of %d blocks rendered slower than real time\n", filename, st.Overruns, st.Blocks)
		}
		if *rawOut {
			raw, err := buffer.Raw(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if *stdout {
				if _, err := os.Stdout.Write(raw); err != nil {
					return err
				}
			} else {
				path, err := outputPath(".raw")
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, raw, 0644); err != nil {
					return fmt.Errorf("could not write file %v: %v", path, err)
				}
			}
		}
		if *wavOut {
			path, err := outputPath(".wav")
			if err != nil {
				return err
			}
			out, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("could not create file %v: %v", path, err)
			}
			err = buffer.WriteWav(out, cfg.SampleRate)
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		if *play {
			if err := audioContext.PlayBuffer(buffer); err != nil {
				return fmt.Errorf("playback failed: %v", err)
			}
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		files := []string{param}
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			files, err = filepath.Glob(filepath.Join(param, "*.yml"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
		}
		for _, file := range files {
			if err := process(file); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
				retval = 1
			}
		}
	}
	if audioContext != nil {
		audioContext.Close()
	}
	os.Exit(retval)
}

func defaultPatchDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "patches"
	}
	return filepath.Join(configDir, "moog", "patches")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "moog command line utility for rendering .yml score files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
