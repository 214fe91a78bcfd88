// Package load implements the file driver of spec.md §4.7: it opens an
// ELF object, walks its DWARF compilation units, and runs each one
// through parse → recode → size-cache → steal, in that strict per-CU
// order (spec.md §5's concurrency model: single-threaded, no suspension
// points, cancellation only at CU granularity through the steal hook).
package load

import (
	"debug/dwarf"
	"debug/elf"

	"github.com/Manu343726/dwarfcore/pkg/diag"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/core"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/parse"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/recode"
	"github.com/Manu343726/dwarfcore/pkg/dwarf/sizecache"
	"github.com/Manu343726/dwarfcore/pkg/strpool"
	"github.com/Manu343726/dwarfcore/pkg/utils"
)

// Decision is what a StealFunc returns for one parsed, recoded,
// size-cached CU (spec.md §4.7).
type Decision int

const (
	// KEEP retains the CU in the Result's CU collection.
	KEEP Decision = iota
	// STOLEN means the caller took ownership of the CU (kept a reference to
	// it elsewhere); the loader does not also retain it.
	STOLEN
	// STOP aborts the load: no further CUs in this file are processed.
	STOP
)

// StealFunc is called once per CU, after it has been parsed, recoded, and
// size-cached.
type StealFunc func(cu *core.CU) Decision

// KeepAll is the default StealFunc: retain every CU, never stop early.
func KeepAll(*core.CU) Decision { return KEEP }

// Config is spec.md §4.1's conf.*, as read by the file driver and the
// packages it drives.
type Config struct {
	// ExtraDebugInfo, when true, means callers want the CU's raw
	// DWARF-offset scratch records to remain available after recode for
	// further introspection. pkg/dwarf/recode already clears
	// Header.Scratch unconditionally once a tag is consumed — Go's garbage
	// collector, not an arena, owns that memory — so this flag has no
	// additional effect here; it is carried only so Config mirrors the
	// original conf.* shape callers coming from the spec may expect.
	ExtraDebugInfo bool

	// GetAddrInfo requests that the loader resolve extra address-to-line
	// information while parsing. Not implemented by the core loader (out
	// of scope per spec.md's non-goals); reserved for a future pretty-
	// printing layer.
	GetAddrInfo bool

	// FixupSillyBitfields is forwarded to the size cacher.
	FixupSillyBitfields bool

	// PointerSize is forwarded to the size cacher.
	PointerSize int

	// Strict turns a second compilation-unit root met while parsing a unit
	// (a WRONG_ROOT-class problem) into an error that ends the load,
	// rather than a logged warning. The parse driver reads it from the
	// diag.Sink given to New (diag.New(strict)), not from this field; the
	// CLI builds that sink from it. Empty inline ranges are reported as
	// diagnostics whether or not it is set; see DESIGN.md's Open Question
	// decisions.
	Strict bool
}

// DefaultConfig targets a 64-bit host, the common case for the object
// files this loader is built to read.
func DefaultConfig() Config {
	return Config{PointerSize: 8}
}

// Result aggregates one LoadFile call's outcome.
type Result struct {
	CUs           []*core.CU
	Diagnostics   []string
	ModulesLoaded int
	CUsParsed     int
	CUsKept       int
	CUsStolen     int
	Stopped       bool

	// DIEsProcessed is the total number of DIEs modeled across every CU
	// parsed in this call (SPEC_FULL.md §3).
	DIEsProcessed int
	// SyntheticBitfieldTypes is the total number of fresh bitfield-synthesis
	// types (spec §4.5) allocated across every CU recoded in this call.
	SyntheticBitfieldTypes int
}

// Loader drives one or more files through parse/recode/size-cache/steal,
// sharing a single string pool across every file loaded through it (spec
// §5: the interner is process-wide for the duration of a load).
type Loader struct {
	pool     *strpool.Pool
	diagSink *diag.Sink
	conf     Config
}

// New creates a Loader. sink receives every diagnostic raised while
// parsing, recoding, or size-caching any CU loaded through it.
func New(conf Config, sink *diag.Sink) *Loader {
	return &Loader{pool: strpool.New(), diagSink: sink, conf: conf}
}

// Pool returns the interner shared by every CU this Loader has produced;
// Tag.Name/strpool.ID fields are only meaningful against this pool.
func (l *Loader) Pool() *strpool.Pool {
	return l.pool
}

// LoadFile opens path as an ELF object, obtains its DWARF debug info
// (§6's "opaque provider" boundary — debug/dwarf and debug/elf are
// consumed, not reimplemented), and processes each compilation unit in
// file order.
func (l *Loader) LoadFile(path string, steal StealFunc) (*Result, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, utils.MakeError(err, "load: opening %q", path)
	}
	defer f.Close()

	data, err := f.DWARF()
	if err != nil {
		// NO_DEBUG is fatal per spec.md §7's taxonomy: it propagates as a
		// Go error rather than through the diagnostic sink.
		return nil, utils.MakeError(err, "load: %q has no usable debug info", path)
	}

	if steal == nil {
		steal = KeepAll
	}

	result := &Result{ModulesLoaded: 1}
	r := data.Reader()

	for {
		entry, err := r.Next()
		if err != nil {
			return nil, utils.MakeError(err, "load: reading %q", path)
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit && entry.Tag != dwarf.TagPartialUnit {
			continue
		}

		cu, dies, synthetic, err := l.processOneUnit(data, r, entry)
		if err != nil {
			return nil, err
		}
		result.CUsParsed++
		result.DIEsProcessed += dies
		result.SyntheticBitfieldTypes += synthetic

		switch steal(cu) {
		case STOP:
			result.Stopped = true
			result.Diagnostics = l.diagSink.Dump()
			return result, nil
		case STOLEN:
			result.CUsStolen++
		default:
			result.CUs = append(result.CUs, cu)
			result.CUsKept++
		}
	}

	result.Diagnostics = l.diagSink.Dump()
	return result, nil
}

// processOneUnit runs the strict parse → recode → size-cache sequence for
// one CU (spec.md §5's ordering guarantee), returning the per-unit counters
// that feed Result.DIEsProcessed/SyntheticBitfieldTypes.
func (l *Loader) processOneUnit(data *dwarf.Data, r *dwarf.Reader, root *dwarf.Entry) (*core.CU, int, int, error) {
	driver := parse.New(data, l.pool, l.diagSink)
	cu, err := driver.ProcessUnit(r, root)
	if err != nil {
		return nil, 0, 0, utils.MakeError(err, "load: parsing unit at 0x%x", root.Offset)
	}

	recoder := recode.New(cu, l.pool, l.diagSink)
	recoder.Run()

	sizecache.New(cu, l.pool, sizecache.Config{
		PointerSize:         l.conf.PointerSize,
		FixupSillyBitfields: l.conf.FixupSillyBitfields,
	}, l.diagSink).Run()

	return cu, driver.DIEsProcessed(), recoder.SyntheticTypesCreated(), nil
}
