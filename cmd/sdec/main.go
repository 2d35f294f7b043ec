// Copyright 2026 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Command sdec decodes JSON or CBOR from files or stdin and re-renders
// it as JSON on stdout.
//
// Usage:
//
//	sdec [options] [file ...]
//
// With no file arguments (or the argument "-") sdec reads stdin. Inputs
// ending in .zst, .gz or .s2 are decompressed transparently.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/SnellerInc/streamdec/decode"
	"github.com/SnellerInc/streamdec/jsontok"
	"github.com/SnellerInc/streamdec/render"
	"github.com/SnellerInc/streamdec/source"
	"github.com/SnellerInc/streamdec/stream"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

var (
	dashf    string
	dashp    string
	dashq    quirkList
	dashc    string
	dasho    string
	dashm    bool
	indent   string
	metaDir  string
	exitCode int

	dst io.WriteCloser
)

func init() {
	flag.StringVar(&dashf, "f", "auto", "input format: json, cbor or auto")
	flag.StringVar(&dashp, "p", "", "JSON Pointer; decode only the value it identifies")
	flag.Var(&dashq, "q", "enable a named quirk (repeatable); one of "+quirkUsage())
	flag.StringVar(&dashc, "c", "", "YAML config file; flags override its settings")
	flag.StringVar(&dasho, "o", "", "file for output (default is stdout)")
	flag.BoolVar(&dashm, "m", false, "mmap regular files instead of reading them")
	flag.StringVar(&indent, "indent", "", "indent unit for pretty-printed output")
	flag.StringVar(&metaDir, "meta-dir", "", "extract raw metadata blobs into this directory")
	// mmap(2) is often slower than a few calls to pread(2), so
	// make mmap opt-in rather than opt-out
}

// quirkNames maps the -q spellings to jsontok quirk values.
var quirkNames = map[string]uint32{
	"comment-block":  jsontok.QuirkAllowCommentBlock,
	"comment-line":   jsontok.QuirkAllowCommentLine,
	"trailing-comma": jsontok.QuirkAllowTrailingComma,
	"inf-nan":        jsontok.QuirkAllowInfNaNNumbers,
	"multi-value":    jsontok.QuirkExpectMultipleTopLevelValues,
}

func quirkUsage() string {
	names := maps.Keys(quirkNames)
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// quirkList collects repeated -q flags; each value may itself be a
// comma-separated list.
type quirkList []string

func (q *quirkList) String() string { return strings.Join(*q, ",") }

func (q *quirkList) Set(s string) error {
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := quirkNames[name]; !ok {
			return fmt.Errorf("unknown quirk %q; expected one of %s", name, quirkUsage())
		}
		*q = append(*q, name)
	}
	return nil
}

// config mirrors the flag set; sdec reads it from the -c YAML file and
// then lets explicitly-set flags override individual fields.
type config struct {
	Format  string   `json:"format,omitempty"`
	Pointer string   `json:"pointer,omitempty"`
	Quirks  []string `json:"quirks,omitempty"`
	Indent  string   `json:"indent,omitempty"`
	MetaDir string   `json:"metaDir,omitempty"`
}

func loadConfig(path string) (*config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	conf := new(config)
	if err := yaml.UnmarshalStrict(buf, conf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, name := range conf.Quirks {
		if _, ok := quirkNames[name]; !ok {
			return nil, fmt.Errorf("%s: unknown quirk %q", path, name)
		}
	}
	return conf, nil
}

// mergeConfig folds conf into the flag variables; a flag the user set on
// the command line wins over the file.
func mergeConfig(conf *config) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["f"] && conf.Format != "" {
		dashf = conf.Format
	}
	if !set["p"] && conf.Pointer != "" {
		dashp = conf.Pointer
	}
	if !set["indent"] && conf.Indent != "" {
		indent = conf.Indent
	}
	if !set["meta-dir"] && conf.MetaDir != "" {
		metaDir = conf.MetaDir
	}
	dashq = append(dashq, conf.Quirks...)
}

func quirkValues() []uint32 {
	slices.Sort(dashq)
	dashq = slices.Compact(dashq)
	vals := make([]uint32, 0, len(dashq))
	for _, name := range dashq {
		vals = append(vals, quirkNames[name])
	}
	return vals
}

// sink renders decoded values and, when -meta-dir is set, extracts raw
// metadata blobs into uuid-named files.
type sink struct {
	*render.JSON
	dir string
}

func (s *sink) HandleMetadata(minfo *stream.MoreInformation, data []byte) error {
	if data == nil || s.dir == "" {
		return nil
	}
	name := uuid.NewString() + ".bin"
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	sum := blake2b.Sum256(data)
	log.Printf("metadata %08x: %d bytes, blake2b %x, saved as %s",
		minfo.FourCC, len(data), sum[:8], name)
	return nil
}

// formatFor picks json or cbor for one input path, honoring -f and
// falling back to the file extension under the compression suffix.
func formatFor(path string) string {
	if dashf != "auto" {
		return dashf
	}
	if c := source.CompressionForPath(path); c != "" {
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return "cbor"
	}
	return "json"
}

// inputFor builds the stream.Input for one argument, plus a cleanup
// function.
func inputFor(arg string) (stream.Input, func(), error) {
	if arg == "-" {
		return source.NewReaderInput(os.Stdin), func() {}, nil
	}
	f, err := os.Open(arg)
	if err != nil {
		return nil, nil, err
	}
	if c := source.CompressionForPath(arg); c != "" {
		in, err := source.NewDecompressInput(c, f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("%s: %w", arg, err)
		}
		return in, func() { f.Close() }, nil
	}
	if dashm {
		in, err := source.NewMmapInput(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", arg, err)
		}
		return in, func() { in.Close() }, nil
	}
	return source.NewReaderInput(f), func() { f.Close() }, nil
}

func do(arg string) {
	input, cleanup, err := inputFor(arg)
	if err != nil {
		fail(arg, err.Error())
		return
	}
	defer cleanup()

	out := render.NewJSON()
	out.SetIndent(indent)
	cb := &sink{JSON: out, dir: metaDir}
	opts := decode.Options{
		Quirks:  quirkValues(),
		Pointer: dashp,
	}
	var res decode.Result
	switch formatFor(arg) {
	case "json":
		res = decode.DecodeJSON(cb, input, opts)
	case "cbor":
		res = decode.DecodeCBOR(cb, input, opts)
	default:
		fail(arg, fmt.Sprintf("unknown format %q", dashf))
		return
	}
	if res.ErrorMessage != "" {
		fail(arg, fmt.Sprintf("%s (at byte %d)", res.ErrorMessage, res.CursorPosition))
		return
	}
	dst.Write(out.Bytes())
	io.WriteString(dst, "\n")
}

// fail reports one input's failure and raises the process exit code:
// 1 for ordinary input errors, 2 when the message indicates a bug.
func fail(arg, msg string) {
	log.Printf("%s: %s", arg, msg)
	code := 1
	if strings.Contains(msg, "internal error") {
		code = 2
	}
	if code > exitCode {
		exitCode = code
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("sdec: ")
	flag.Parse()

	if dashc != "" {
		conf, err := loadConfig(dashc)
		if err != nil {
			log.Fatal(err)
		}
		mergeConfig(conf)
	}
	switch dashf {
	case "json", "cbor", "auto":
	default:
		log.Fatalf("unknown format %q; expected json, cbor or auto", dashf)
	}
	if metaDir != "" {
		if err := os.MkdirAll(metaDir, 0755); err != nil {
			log.Fatal(err)
		}
	}

	dst = os.Stdout
	if dasho != "" {
		f, err := os.Create(dasho)
		if err != nil {
			log.Fatal(err)
		}
		dst = f
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}
	for i := range args {
		do(args[i])
	}
	if dst != os.Stdout {
		if err := dst.Close(); err != nil {
			log.Fatal(err)
		}
	}
	os.Exit(exitCode)
}
