package loopaudio

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/loopaudio/loopaudio/internal/sndfile"
)

type (
	// Descriptor is one entry of a song's sidecar file: either a single
	// object or a list of them, in JSON or YAML. Version 1 is the
	// classic layout with one file per track named
	// "<base>-<track>.<filetype>"; version 2 is a single interleaved
	// file holding one channel pair per track.
	Descriptor struct {
		Version   int        `json:"version" yaml:"version"`
		Name      string     `json:"name" yaml:"name"`
		Filename  string     `json:"filename" yaml:"filename"`
		Filetype  string     `json:"filetype" yaml:"filetype"`
		Variants  TrackList  `json:"variants" yaml:"variants"`
		Layers    *TrackList `json:"layers" yaml:"layers"`
		LoopStart *int64     `json:"loopstart" yaml:"loopstart"`
		LoopEnd   *int64     `json:"loopend" yaml:"loopend"`
	}

	// TrackList holds a descriptor's track references: file name
	// suffixes (strings) for version 1, channel pair ordinals (ints)
	// for version 2.
	TrackList []TrackID
)

func (l *TrackList) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return l.fromRaw(raw)
}

func (l *TrackList) UnmarshalYAML(node *yaml.Node) error {
	var raw []any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return l.fromRaw(raw)
}

func (l *TrackList) fromRaw(raw []any) error {
	list := make(TrackList, len(raw))
	for i, v := range raw {
		switch entry := v.(type) {
		case string:
			list[i] = entry
		case int:
			list[i] = entry
		case float64:
			if entry != math.Trunc(entry) {
				return fmt.Errorf("track ordinal %v is not an integer", entry)
			}
			list[i] = int(entry)
		default:
			return fmt.Errorf("track list entries must be names or ordinals, got %T", v)
		}
	}
	*l = list
	return nil
}

// Open opens a song: either a sidecar descriptor file (.json, .yml,
// .yaml) or a bare audio file, which is treated as a single version-2
// part with no variants and every channel pair as a layer.
func Open(path string) (*Music, error) {
	return OpenBuffered(path, 0)
}

// OpenBuffered is Open with an explicit queue capacity in blocks.
func OpenBuffered(path string, bufferDepth int) (*Music, error) {
	descriptors, err := loadDescriptors(path)
	if err != nil {
		return nil, err
	}
	parts := make([]*Part, 0, len(descriptors))
	for _, d := range descriptors {
		part, err := buildPart(path, d)
		if err != nil {
			for _, p := range parts {
				p.Close()
			}
			return nil, err
		}
		parts = append(parts, part)
	}
	return New(parts, bufferDepth), nil
}

func loadDescriptors(path string) ([]Descriptor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yml", ".yaml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return parseDescriptors(data)
	}
	return []Descriptor{{Version: 2, Name: "Play", Filename: filepath.Base(path)}}, nil
}

// parseDescriptors accepts a single descriptor object or a list of
// them, trying JSON first and YAML on fallback.
func parseDescriptors(data []byte) ([]Descriptor, error) {
	var list []Descriptor
	errJSONList := json.Unmarshal(data, &list)
	if errJSONList == nil {
		return list, nil
	}
	var single Descriptor
	if err := json.Unmarshal(data, &single); err == nil {
		return []Descriptor{single}, nil
	}
	errYamlList := yaml.Unmarshal(data, &list)
	if errYamlList == nil {
		return list, nil
	}
	if err := yaml.Unmarshal(data, &single); err == nil {
		return []Descriptor{single}, nil
	}
	return nil, fmt.Errorf("the sidecar could not be parsed as .json (%v) or .yml (%v)", errJSONList, errYamlList)
}

func buildPart(path string, d Descriptor) (*Part, error) {
	version := d.Version
	if version == 0 {
		version = 1
	}
	switch version {
	case 1:
		return buildClassicPart(path, d)
	case 2:
		return buildInterleavedPart(path, d)
	}
	return nil, fmt.Errorf("part %q: unsupported descriptor version %v", d.Name, version)
}

// buildClassicPart opens one file per track, variants first, then
// layers, and plays them in lockstep.
func buildClassicPart(path string, d Descriptor) (*Part, error) {
	variantNames, err := trackNames("variant", d.Variants)
	if err != nil {
		return nil, err
	}
	var layerNames []string
	if d.Layers != nil {
		if layerNames, err = trackNames("layer", *d.Layers); err != nil {
			return nil, err
		}
	}
	if len(variantNames)+len(layerNames) == 0 {
		return nil, fmt.Errorf("part %q has no tracks", d.Name)
	}
	var files []sndfile.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	for _, name := range append(append([]string{}, variantNames...), layerNames...) {
		f, err := sndfile.Open(trackFilename(path, d, name))
		if err != nil {
			closeAll()
			return nil, err
		}
		files = append(files, f)
	}
	src, err := NewMultiFileSource(files)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("part %q: %w", d.Name, err)
	}
	variants := TrackSet{Names: variantNames, Sources: ordinals(0, len(variantNames))}
	layers := TrackSet{Names: layerNames, Sources: ordinals(len(variantNames), len(layerNames))}
	part, err := NewPart(d.Name, tagsFromComments(files[0].Tags()), src, variants, layers, loopPoints(d, files[0].Tags()))
	if err != nil {
		src.Close()
		return nil, err
	}
	return part, nil
}

// buildInterleavedPart opens the one file whose channel pairs back all
// of the part's tracks.
func buildInterleavedPart(path string, d Descriptor) (*Part, error) {
	file, err := sndfile.Open(mainFilename(path, d))
	if err != nil {
		return nil, err
	}
	src, err := NewInterleavedSource(file, 2)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("part %q: %w", d.Name, err)
	}
	pairs := src.(*interleavedSource).TrackCount()
	variantSources, err := trackOrdinals("variant", d.Variants, pairs)
	if err != nil {
		src.Close()
		return nil, err
	}
	var layerSources []int
	if d.Layers == nil {
		// every channel pair beyond the variants is a layer
		layerSources = ordinals(len(variantSources), pairs-len(variantSources))
	} else if layerSources, err = trackOrdinals("layer", *d.Layers, pairs); err != nil {
		src.Close()
		return nil, err
	}
	part, err := NewPart(d.Name, tagsFromComments(file.Tags()), src,
		TrackSet{Sources: variantSources}, TrackSet{Sources: layerSources}, loopPoints(d, file.Tags()))
	if err != nil {
		src.Close()
		return nil, err
	}
	return part, nil
}

// loopPoints resolves a part's loop: explicit sidecar values win, then
// the loopstart/looplength tags embedded in the audio file, and with
// neither the part plays one-shot.
func loopPoints(d Descriptor, tags map[string]string) *LoopPoints {
	if d.LoopStart != nil && d.LoopEnd != nil {
		return &LoopPoints{Start: *d.LoopStart, End: *d.LoopEnd}
	}
	start, errStart := strconv.ParseInt(tags["loopstart"], 10, 64)
	length, errLength := strconv.ParseInt(tags["looplength"], 10, 64)
	if errStart != nil || errLength != nil {
		return nil
	}
	return &LoopPoints{Start: start, End: start + length}
}

// mainFilename returns the part's primary file: the explicit filename,
// or the first variant's file derived from the sidecar's own base name.
func mainFilename(path string, d Descriptor) string {
	if d.Filename != "" {
		return filepath.Join(filepath.Dir(path), d.Filename)
	}
	name := ""
	if len(d.Variants) > 0 {
		if s, ok := d.Variants[0].(string); ok {
			name = s
		}
	}
	return trackFilename(path, d, name)
}

// trackFilename derives a version-1 track file name from the sidecar's
// base name: "<base>-<track>.<filetype>", with an empty track name
// dropping the infix.
func trackFilename(path string, d Descriptor, name string) string {
	filetype := d.Filetype
	if filetype == "" {
		filetype = "wav"
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if name != "" {
		base += "-" + name
	}
	return base + "." + filetype
}

func trackNames(kind string, list TrackList) ([]string, error) {
	names := make([]string, len(list))
	for i, id := range list {
		name, ok := id.(string)
		if !ok {
			return nil, fmt.Errorf("version 1 %ss are file name suffixes, got %v", kind, id)
		}
		names[i] = name
	}
	return names, nil
}

func trackOrdinals(kind string, list TrackList, pairs int) ([]int, error) {
	sources := make([]int, len(list))
	for i, id := range list {
		ordinal, ok := id.(int)
		if !ok {
			return nil, fmt.Errorf("version 2 %ss are channel pair ordinals, got %v", kind, id)
		}
		if ordinal < 0 || ordinal >= pairs {
			return nil, fmt.Errorf("%s channel pair %v outside the file's %v pairs", kind, ordinal, pairs)
		}
		sources[i] = ordinal
	}
	return sources, nil
}

func ordinals(from, n int) []int {
	if n < 0 {
		n = 0
	}
	list := make([]int, n)
	for i := range list {
		list[i] = from + i
	}
	return list
}
