// The elf_view executable is yet-another-ELF-viewer program joining the likes
// of objdump and readelf, but is probably less complete. It exists primarily
// to facilitate testing of the elf_decoder package.
//
// Example usage: ./elf_view --sections --symbols <elf_file> [<elf_file>...]
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/yalue/elf_decoder"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type viewConfig struct {
	showSections    bool
	showSegments    bool
	showSymbols     bool
	showStrings     bool
	showRelocations bool
	showDynamic     bool
	showNotes       bool
	showDigests     bool
	dumpSection     int
	logLevel        string
}

// One input file and the result of parsing it.
type parsedFile struct {
	path string
	elf  *elf_decoder.File
	err  error
}

func newLogger(w io.Writer, logLevel string) (log.Logger, error) {
	var allow level.Option
	switch strings.ToLower(logLevel) {
	case "debug":
		allow = level.AllowDebug()
	case "info":
		allow = level.AllowInfo()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, errors.Errorf("unknown log level %q", logLevel)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, allow), nil
}

func parseFile(path string, logger log.Logger) (*elf_decoder.File, error) {
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return elf_decoder.Parse(f, elf_decoder.WithLogger(log.With(logger,
		"file", path)))
}

// Parses every path concurrently. Each file gets its own source, so results
// don't depend on scheduling.
func parseFiles(paths []string, logger log.Logger) []parsedFile {
	results := make([]parsedFile, len(paths))
	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			elf, e := parseFile(path, logger)
			results[i] = parsedFile{path: path, elf: elf, err: e}
			return nil
		})
	}
	group.Wait()
	return results
}

func sectionName(s elf_decoder.Section) string {
	h := s.Header()
	if h.Index == 0 {
		return "<null section>"
	}
	if h.Name == "" {
		return fmt.Sprintf("<section %d>", h.Index)
	}
	return h.Name
}

func printSections(w io.Writer, f *elf_decoder.File) error {
	for i, s := range f.Sections {
		fmt.Fprintf(w, "%d. %s: %s\n", i, sectionName(s), s)
	}
	return nil
}

func printSegments(w io.Writer, f *elf_decoder.File) error {
	for i := range f.Segments {
		fmt.Fprintf(w, "%d. %s\n", i, &(f.Segments[i]))
		contained, e := f.SegmentSections(i)
		if e != nil {
			return e
		}
		for _, s := range contained {
			fmt.Fprintf(w, "  contains section %d (%s)\n", s.Header().Index,
				sectionName(s))
		}
	}
	return nil
}

func printSymbols(w io.Writer, f *elf_decoder.File) error {
	for _, table := range elf_decoder.SectionsOfType[*elf_decoder.SymbolTable](f) {
		fmt.Fprintf(w, "%d symbols in section %s:\n", len(table.Entries),
			sectionName(table))
		for j := range table.Entries {
			symbol := &(table.Entries[j])
			fmt.Fprintf(w, "  %d. %s: %s\n", j, symbol.Name, symbol)
		}
	}
	return nil
}

func printStrings(w io.Writer, f *elf_decoder.File) error {
	for _, table := range elf_decoder.SectionsOfType[*elf_decoder.StringTable](f) {
		fmt.Fprintf(w, "%d strings in section %s:\n", len(table.Entries),
			sectionName(table))
		for _, entry := range table.Entries {
			fmt.Fprintf(w, "  0x%x. %s\n", entry.Index, entry.Value)
		}
	}
	return nil
}

func printRelocations(w io.Writer, f *elf_decoder.File) error {
	isX86_64 := f.Header.Machine == elf_decoder.MachineTypeAMD64
	for _, table := range elf_decoder.SectionsOfType[*elf_decoder.RelocationSection](f) {
		fmt.Fprintf(w, "%d relocations in section %s:\n", len(table.Entries),
			sectionName(table))
		for j := range table.Entries {
			r := &(table.Entries[j])
			if isX86_64 {
				fmt.Fprintf(w, "  %d. %s: %s\n", j, r.X86_64Type(), r)
				continue
			}
			fmt.Fprintf(w, "  %d. %s\n", j, r)
		}
	}
	return nil
}

func printDynamic(w io.Writer, f *elf_decoder.File) error {
	tables := elf_decoder.SectionsOfType[*elf_decoder.DynamicSection](f)
	if len(tables) == 0 {
		fmt.Fprintf(w, "No dynamic linking table was found.\n")
		return nil
	}
	for _, table := range tables {
		fmt.Fprintf(w, "Dynamic linking table in section %s:\n",
			sectionName(table))
		for j := range table.Entries {
			fmt.Fprintf(w, "  %d. %s\n", j, &(table.Entries[j]))
		}
	}
	return nil
}

func printNotes(w io.Writer, f *elf_decoder.File, source io.ReadSeeker) error {
	found := false
	for i, s := range f.Sections {
		if s.Header().Type != elf_decoder.SectionTypeNote {
			continue
		}
		found = true
		notes, e := f.SectionNotes(source, i)
		if e != nil {
			return e
		}
		all, e := notes.All()
		if e != nil {
			return errors.Wrapf(e, "reading notes in section %s",
				sectionName(s))
		}
		fmt.Fprintf(w, "%d notes in section %s:\n", len(all), sectionName(s))
		for j := range all {
			fmt.Fprintf(w, "  %d. %s\n", j, &(all[j]))
		}
	}
	if found {
		return nil
	}
	// Files without section headers may still have note segments.
	for i := range f.Segments {
		if f.Segments[i].Type != elf_decoder.SegmentTypeNote {
			continue
		}
		found = true
		notes, e := f.SegmentNotes(source, i)
		if e != nil {
			return e
		}
		all, e := notes.All()
		if e != nil {
			return errors.Wrapf(e, "reading notes in segment %d", i)
		}
		fmt.Fprintf(w, "%d notes in segment %d:\n", len(all), i)
		for j := range all {
			fmt.Fprintf(w, "  %d. %s\n", j, &(all[j]))
		}
	}
	if !found {
		fmt.Fprintf(w, "No notes were found.\n")
	}
	return nil
}

func printDigests(w io.Writer, f *elf_decoder.File, source io.ReaderAt) error {
	for i, s := range f.Sections {
		h := xxhash.New()
		if _, e := io.Copy(h, s.Header().Open(source)); e != nil {
			return errors.Wrapf(e, "hashing section %d", i)
		}
		fmt.Fprintf(w, "%d. %016x %s\n", i, h.Sum64(), sectionName(s))
	}
	return nil
}

func dumpSection(w io.Writer, path string, index int) error {
	f, e := os.Open(path)
	if e != nil {
		return e
	}
	defer f.Close()
	elf, e := elf_decoder.Parse(f)
	if e != nil {
		return errors.Wrapf(e, "parsing %s", path)
	}
	if (index < 0) || (index >= len(elf.Sections)) {
		return errors.Errorf("invalid section index %d (%d sections)", index,
			len(elf.Sections))
	}
	_, e = io.Copy(w, elf.Sections[index].Header().Open(f))
	return e
}

// Prints everything requested for a single successfully parsed file.
func printFile(w io.Writer, cfg *viewConfig, result *parsedFile) error {
	source, e := os.Open(result.path)
	if e != nil {
		return e
	}
	defer source.Close()
	f := result.elf
	fmt.Fprintf(w, "Successfully parsed file %s: %s\n", result.path, f)
	type printer struct {
		enabled bool
		title   string
		print   func() error
	}
	printers := []printer{
		{cfg.showSections, "Sections", func() error {
			return printSections(w, f)
		}},
		{cfg.showSegments, "Segments", func() error {
			return printSegments(w, f)
		}},
		{cfg.showSymbols, "Symbols", func() error {
			return printSymbols(w, f)
		}},
		{cfg.showStrings, "Strings", func() error {
			return printStrings(w, f)
		}},
		{cfg.showRelocations, "Relocations", func() error {
			return printRelocations(w, f)
		}},
		{cfg.showDynamic, "Dynamic linking table", func() error {
			return printDynamic(w, f)
		}},
		{cfg.showNotes, "Notes", func() error {
			return printNotes(w, f, source)
		}},
		{cfg.showDigests, "Section digests (xxh64)", func() error {
			return printDigests(w, f, source)
		}},
	}
	for _, p := range printers {
		if !p.enabled {
			continue
		}
		fmt.Fprintf(w, "==== %s ====\n", p.title)
		if e := p.print(); e != nil {
			return errors.Wrapf(e, "printing %s", strings.ToLower(p.title))
		}
	}
	return nil
}

func run(cmd *cobra.Command, cfg *viewConfig, paths []string) error {
	logger, e := newLogger(cmd.ErrOrStderr(), cfg.logLevel)
	if e != nil {
		return e
	}
	w := cmd.OutOrStdout()
	if cfg.dumpSection >= 0 {
		if len(paths) != 1 {
			return errors.New("--dump-section needs exactly one input file")
		}
		return dumpSection(w, paths[0], cfg.dumpSection)
	}
	var combined error
	for _, result := range parseFiles(paths, logger) {
		if result.err != nil {
			level.Error(logger).Log("msg", "failed parsing file", "file",
				result.path, "err", result.err)
			combined = multierr.Append(combined, errors.Wrapf(result.err,
				"parsing %s", result.path))
			continue
		}
		e = printFile(w, cfg, &result)
		if e != nil {
			combined = multierr.Append(combined, errors.Wrapf(e, "%s",
				result.path))
		}
	}
	return combined
}

func newRootCommand() *cobra.Command {
	cfg := &viewConfig{}
	cmd := &cobra.Command{
		Use:   "elf_view [flags] <elf_file> [<elf_file>...]",
		Short: "Prints the contents of ELF files",
		Long: `Decodes each input ELF file and prints the requested structures.
Files are parsed concurrently, and a file that fails to parse doesn't prevent
the others from being printed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, args)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&cfg.showSections, "sections", false,
		"Print a list of sections in the ELF file if set.")
	flags.BoolVar(&cfg.showSegments, "segments", false,
		"Print a list of segments (program headers) and their sections if set.")
	flags.BoolVar(&cfg.showSymbols, "symbols", false,
		"Print a list of symbols if set.")
	flags.BoolVar(&cfg.showStrings, "strings", false,
		"Prints the contents of the string tables if set.")
	flags.BoolVar(&cfg.showRelocations, "relocations", false,
		"Prints a list of relocations if set.")
	flags.BoolVar(&cfg.showDynamic, "dynamic", false,
		"Prints a list of dynamic linking table entries if set.")
	flags.BoolVar(&cfg.showNotes, "notes", false,
		"Prints the notes in note sections (or note segments) if set.")
	flags.BoolVar(&cfg.showDigests, "digests", false,
		"Prints an xxh64 digest of each section's file contents if set.")
	flags.IntVar(&cfg.dumpSection, "dump-section", -1,
		"If a valid section index is provided, binary contents of the section"+
			" will be dumped to stdout and other output will be suppressed.")
	flags.StringVar(&cfg.logLevel, "log.level", "info",
		"Only log messages with the given severity or above. One of: debug, "+
			"info, warn, error.")
	return cmd
}

func main() {
	if e := newRootCommand().Execute(); e != nil {
		fmt.Fprintf(os.Stderr, "%s\n", e)
		os.Exit(1)
	}
}
