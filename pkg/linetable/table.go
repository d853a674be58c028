// Package linetable holds the mapping from binary addresses to source lines
// supplied alongside a binary, and the source directories it refers to.
//
// The input is line oriented and space delimited:
//
//	Directory <filename> <directory>
//	<filename> <decimal line> <hex address>
package linetable

import (
	"bufio"
	"cmp"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/grafana/dbgloc/pkg/debuginfo"
)

const directoryKeyword = "Directory"

type Config struct {
	Producer string `yaml:"producer"`
	Language uint16 `yaml:"language" category:"advanced"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&cfg.Producer, "linetable.producer", "dbgloc", "Producer recorded on the compile unit created for the first directory.")
	cfg.Language = uint16(debuginfo.LangC)
	f.Var((*languageValue)(&cfg.Language), "linetable.language", "DWARF source language code of the compile unit.")
}

func (cfg *Config) Validate() error {
	if cfg.Language == 0 {
		return fmt.Errorf("invalid linetable.language value, must be a positive DWARF language code")
	}
	return nil
}

// Directory is one registered source directory.
type Directory struct {
	Filename string
	Name     string
	File     *debuginfo.File
}

// Entry is one address to line record.
type Entry struct {
	Addr uint64
	Line uint32
}

type Table struct {
	cfg    Config
	logger log.Logger
	dib    debuginfo.Builder

	lines map[uint64]uint32
	dirs  []Directory
	files map[string]*debuginfo.File
	cu    *debuginfo.CompileUnit
}

func New(cfg Config, dib debuginfo.Builder, logger log.Logger) *Table {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.Language == 0 {
		cfg.Language = uint16(debuginfo.LangC)
	}
	return &Table{
		cfg:    cfg,
		logger: logger,
		dib:    dib,
		lines:  make(map[uint64]uint32),
		files:  make(map[string]*debuginfo.File),
	}
}

// Parse reads the table stored at source in fs. An empty source is a no-op.
// A malformed line fails the whole pass and leaves the table unchanged.
func (t *Table) Parse(fs afero.Fs, source string) error {
	if source == "" {
		return nil
	}
	f, err := fs.Open(source)
	if err != nil {
		return errors.Wrapf(err, "opening line table %s", source)
	}
	defer f.Close()
	return t.ParseReader(source, f)
}

type pendingDir struct {
	filename string
	name     string
}

// ParseReader is Parse over an already opened source. name identifies the
// source in errors.
func (t *Table) ParseReader(name string, r io.Reader) error {
	var (
		lines = make(map[uint64]uint32)
		dirs  []pendingDir
		lineN int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineN++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		words := strings.Split(text, " ")

		if words[0] == directoryKeyword {
			if len(words) < 3 {
				return &FormatError{Source: name, Line: lineN, Text: text, Reason: "directory entry needs a filename and a directory"}
			}
			dirs = append(dirs, pendingDir{filename: words[1], name: words[2]})
			continue
		}

		if len(words) < 3 {
			return &FormatError{Source: name, Line: lineN, Text: text, Reason: "expected <filename> <line> <address>"}
		}
		line, err := strconv.ParseUint(words[1], 10, 32)
		if err != nil {
			return &FormatError{Source: name, Line: lineN, Text: text, Reason: "invalid line number", Err: err}
		}
		addr, err := parseAddress(words[2])
		if err != nil {
			return &FormatError{Source: name, Line: lineN, Text: text, Reason: "invalid address", Err: err}
		}
		if _, ok := lines[addr]; !ok {
			lines[addr] = uint32(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "reading line table %s", name)
	}

	for _, d := range dirs {
		t.addDir(d.filename, d.name)
	}
	var added int
	for addr, line := range lines {
		if _, ok := t.lines[addr]; !ok {
			t.lines[addr] = line
			added++
		}
	}
	level.Debug(t.logger).Log("msg", "line table parsed", "source", name, "records", added, "directories", len(dirs))
	return nil
}

func parseAddress(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func (t *Table) addDir(filename, name string) {
	node := t.dib.CreateFile(filename, name)
	if _, ok := t.files[filename]; !ok {
		t.files[filename] = node
		t.dirs = append(t.dirs, Directory{Filename: filename, Name: name, File: node})
	}
	if t.cu == nil {
		t.cu = t.dib.CreateCompileUnit(debuginfo.Language(t.cfg.Language), node, t.cfg.Producer, false, "", 0)
	}
}

// Is reports whether any address has a known line.
func (t *Table) Is() bool {
	return len(t.lines) > 0
}

func (t *Table) Len() int {
	return len(t.lines)
}

func (t *Table) Line(addr uint64) (uint32, bool) {
	line, ok := t.lines[addr]
	return line, ok
}

// Entries returns every record sorted by address.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.lines))
	for addr, line := range t.lines {
		entries = append(entries, Entry{Addr: addr, Line: line})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Addr, b.Addr) })
	return entries
}

// Directories returns the registered directories in registration order.
func (t *Table) Directories() []Directory {
	return t.dirs
}

func (t *Table) File(filename string) *debuginfo.File {
	return t.files[filename]
}

// FirstFile returns the file of the first directory ever registered.
func (t *Table) FirstFile() *debuginfo.File {
	if len(t.dirs) == 0 {
		return nil
	}
	return t.dirs[0].File
}

func (t *Table) CompileUnit() *debuginfo.CompileUnit {
	return t.cu
}

type languageValue uint16

func (v *languageValue) String() string {
	return debuginfo.Language(*v).String()
}

func (v *languageValue) Set(s string) error {
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return err
	}
	*v = languageValue(n)
	return nil
}
