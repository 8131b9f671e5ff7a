// Package docs stores several YAML documents in a single file and reads them
// back one at a time.
//
// Files use the usual multi-document layout: the first document has no
// marker, every following one is preceded by a "---" line.
//
//	name: first
//	value: 1
//	---
//	name: second
//	value: 2
//
// AppendOrNew adds a document at the end of a file, creating it when needed.
// Open returns a Docs iterator that decodes the documents lazily, in file
// order. None of the functions lock the file: concurrent writers, or a
// writer and a reader working on the same file, must be coordinated by the
// caller.
package docs
