package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/loopaudio/loopaudio"
	"github.com/loopaudio/loopaudio/oto"
	"github.com/loopaudio/loopaudio/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the same directory where the original song file is.")
	play := flag.Bool("p", false, "Play the input songs (default behaviour when no other output is defined).")
	list := flag.Bool("l", false, "List the parts and tracks of the input songs; do not play or render.")
	partKey := flag.String("part", "", "Part to play, by number or by name. Defaults to the first part.")
	variant := flag.String("variant", "", "Variant track to activate, by number or by name. Defaults to the first variant.")
	layers := flag.String("layers", "", "Layer tracks to activate, as a bitmask over the part's layers (least significant bit first).")
	start := flag.Int64("start", 0, "Start playing from the given frame.")
	depth := flag.Int("depth", 0, "Stream buffer depth in blocks. 0 uses the default.")
	volume := flag.Float64("volume", 1, "Master volume multiplier.")
	rawOut := flag.Bool("r", false, "Output the rendered part as .raw file. By default, saves interleaved float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered part as .wav file. By default, saves interleaved float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	verbose := flag.Bool("d", false, "Log the stream lifecycle to standard error.")
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
	if !*rawOut && !*wavOut && !*list {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	// the device context can only be opened once per process, so it is
	// shared across input files
	var audioContext *oto.Context
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				os.Stdout.Write(contents)
				return nil
			}
			_, name := filepath.Split(filename)
			dir := *directory
			if dir == "" {
				dir = filepath.Dir(filename)
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f := filepath.Join(dir, name)
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		music, err := loopaudio.OpenBuffered(filename, *depth)
		if err != nil {
			return fmt.Errorf("could not open song: %v", err)
		}
		defer music.Close()
		if *verbose {
			music.SetLogger(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger())
		}
		if *list {
			for i, p := range music.Parts() {
				fmt.Printf("%v: %v\n", i, p.Name)
				if !p.Tags.Empty() {
					fmt.Printf("   %v\n", p.Tags)
				}
				fmt.Printf("   variants: %v\n", p.Variants())
				fmt.Printf("   layers:   %v\n", p.Layers())
			}
			return nil
		}
		key := trackKey(*partKey)
		if key == nil {
			key = 0
		}
		part, err := music.Find(key)
		if err != nil {
			return err
		}
		if id := trackKey(*variant); id != nil {
			if err := part.SetVariant(id); err != nil {
				return err
			}
		}
		if *layers != "" {
			mask, err := strconv.ParseUint(*layers, 0, 64)
			if err != nil {
				return fmt.Errorf("could not parse the layer bitmask %q: %v", *layers, err)
			}
			if err := part.SetLayerBits(mask); err != nil {
				return err
			}
		} else if len(part.Variants()) == 0 {
			if err := part.SetLayerBits(1); err != nil {
				return err
			}
		}
		music.SetVolume(float32(*volume))
		if *rawOut || *wavOut {
			buffer, err := loopaudio.Render(part, 0)
			if err != nil {
				return fmt.Errorf("could not render the part: %v", err)
			}
			if *rawOut {
				raw, err := loopaudio.Raw(buffer, *pcm)
				if err != nil {
					return fmt.Errorf("could not generate .raw file: %v", err)
				}
				if err := output(".raw", raw); err != nil {
					return fmt.Errorf("error outputting .raw file: %v", err)
				}
			}
			if *wavOut {
				wav, err := loopaudio.Wav(buffer, part.Channels(), part.SampleRate(), *pcm)
				if err != nil {
					return fmt.Errorf("could not generate .wav file: %v", err)
				}
				if err := output(".wav", wav); err != nil {
					return fmt.Errorf("error outputting .wav file: %v", err)
				}
			}
		}
		if *play {
			if audioContext == nil {
				audioContext, err = oto.NewContext(part.SampleRate(), part.Channels())
				if err != nil {
					return fmt.Errorf("could not acquire oto AudioContext: %v", err)
				}
			}
			if audioContext.Channels() != part.Channels() {
				return fmt.Errorf("part mixes to %v channels but the output device has %v", part.Channels(), audioContext.Channels())
			}
			if !part.Tags.Empty() {
				fmt.Println(part.Tags)
			}
			return music.Play(audioContext, key, *start, nil)
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		err := process(param)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

// trackKey turns a flag value into a lookup key: a number becomes an
// ordinal, anything else is a name, and an empty value is nil.
func trackKey(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Loopaudio command line utility for playing looping game music files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
