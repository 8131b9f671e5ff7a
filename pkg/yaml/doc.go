// Package yaml implements YAML-level primitives shared by the file helpers:
// codecs that turn values into YAML text and back, a renderer that injects
// caller-provided comments above mapping keys, and helpers to compare
// documents. Higher-level packages use these primitives to operate on files.
package yaml
