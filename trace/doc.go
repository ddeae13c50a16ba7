// Package trace records USB transfers exchanged with a recovery-mode device.
//
// Every transfer issued through a traced transport is described by an Event.
// Events can be written to a CBOR file (FileTracer), dumped as hex lines
// (HexTracer), or fanned out to several sinks (Multi). A CBOR trace can be
// read back with NewReader.
package trace
