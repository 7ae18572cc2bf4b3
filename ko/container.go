// Package ko serializes an assembled Object into the binary KO
// ("Kerbal Object") container the downstream linker consumes (spec §4.7,
// §6). Field widths are a frozen external contract (spec §9 open
// question): this package is the single place that contract is allowed
// to change, gated by Version.
package ko

// Magic identifies a KO file. Version is bumped whenever a
// backward-incompatible change is made to the record layouts below;
// Encode always writes the current Version, Decode rejects anything
// newer than it understands (spec §6: "exact field widths must be
// stable across assembler versions of a given KO major").
var Magic = [4]byte{'K', 'O', 'B', 'J'}

const Version uint16 = 1

// Meta carries the two pieces of external metadata the CLI records into
// every KO it writes (spec §6): the source-symbol name (-f, defaulting
// to the input filename) and the linker comment string (-c).
type Meta struct {
	SourceName string
	Comment    string
}
