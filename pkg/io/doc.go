// Package io reads designs and reads and writes routing results.
//
// # Designs
//
// Designs are decoded from TOML, YAML or JSON. [ImportDesign] picks the
// decoder from the file extension; [ReadDesign] takes the [Format]
// explicitly:
//
//	d, err := io.ImportDesign("chip.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// A minimal TOML design:
//
//	name = "demo"
//
//	[grid]
//	pitch = 10
//	nx = 8
//	ny = 8
//
//	[[layers]]
//	name = "M1"
//	direction = "horizontal"
//	capacity = 2
//
//	[[layers]]
//	name = "M2"
//	direction = "vertical"
//	capacity = 2
//
//	[[nets]]
//	name = "n1"
//	pins = [{x = 5, y = 5, layer = "M1"}, {x = 65, y = 45, layer = "M1"}]
//
// Decoded designs are validated before they are returned. Decode failures
// carry errors.ErrCodeInvalidFormat; validation failures carry
// errors.ErrCodeInvalidDesign.
//
// # Results
//
// Results round-trip through indented JSON with [WriteResult] and
// [ReadResult], or the file helpers [ExportResult] and [ImportResult].
package io
