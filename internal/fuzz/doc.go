// Package fuzztests houses Go fuzz harnesses for the input parsers: target
// triples, instruction syntax and both machine-module encodings. They guard
// against panics and hangs on arbitrary bytes.
package fuzztests
