package docs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"strings"

	yamllib "github.com/inercia/go-yaml-docs/pkg/yaml"
)

const documentEnd = "..."

// Docs decodes the documents of a multi-document YAML stream one at a time.
//
// A common use is a loop:
//
//	it, err := docs.Open[Config]("configs.yaml")
//	if err != nil {
//		return err
//	}
//	defer it.Close()
//	for it.Next() {
//		cfg := it.Value()
//		...
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// Each call to Next reads up to the next document marker and decodes that
// chunk only. Directives ("%YAML", "%TAG") stay with the document they
// precede. Chunks holding nothing but blank lines, comments or markers are
// skipped. A chunk that cannot be decoded stops the iteration: Next returns
// false and Err reports the failure.
//
// Once exhausted a Docs cannot be rewound; open the file again to re-read it.
// A Docs is not safe for concurrent use.
type Docs[T any] struct {
	r       *bufio.Reader
	closer  io.Closer
	options Options

	line        int    // lines consumed so far
	pending     string // marker line starting the next chunk
	pendingLine int
	eof         bool

	index int
	cur   T
	err   error
	done  bool
}

// Open opens the file at path for lazy decoding. Nothing is decoded until
// Next is called. The file is closed when the iteration ends, fails, or Close
// is called.
func Open[T any](path string, opts ...Option) (*Docs[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	d := NewDocs[T](f, opts...)
	d.closer = f
	d.options.Logger.Debug("opened documents file", "path", path)
	return d, nil
}

// OpenFS is like Open but reads name from fsys.
func OpenFS[T any](fsys fs.FS, name string, opts ...Option) (*Docs[T], error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	d := NewDocs[T](f, opts...)
	d.closer = f
	d.options.Logger.Debug("opened documents file", "fs", true, "path", name)
	return d, nil
}

// NewDocs decodes documents read from r. The caller remains responsible for
// closing r.
func NewDocs[T any](r io.Reader, opts ...Option) *Docs[T] {
	return &Docs[T]{
		r:       bufio.NewReader(r),
		options: newOptions(opts...),
	}
}

// Next decodes the next document, reporting whether there was one.
func (d *Docs[T]) Next() bool {
	if d.done {
		return false
	}

	chunk, start, err := d.readChunk()
	if err != nil {
		d.finish(fmt.Errorf("%w: %w", ErrIO, err))
		return false
	}
	if chunk == nil {
		d.finish(nil)
		return false
	}

	var v T
	if err := d.options.Codec.Unmarshal(chunk, &v); err != nil {
		if !errors.Is(err, yamllib.ErrDeserialize) {
			err = fmt.Errorf("%w: %w", yamllib.ErrDeserialize, err)
		}
		d.finish(fmt.Errorf("document %d at line %d: %w", d.index, start, err))
		return false
	}

	d.options.Logger.Debug("decoded document", "index", d.index, "line", start, "bytes", len(chunk))
	d.cur = v
	d.index++
	return true
}

// Value returns the document decoded by the last successful call to Next.
func (d *Docs[T]) Value() T {
	return d.cur
}

// Index returns the position of the current document in the stream,
// starting at 0, or -1 before the first call to Next.
func (d *Docs[T]) Index() int {
	return d.index - 1
}

// Err returns the error that stopped the iteration, if any. Reaching the end
// of the stream is not an error.
func (d *Docs[T]) Err() error {
	return d.err
}

// Close stops the iteration and releases the underlying file. It is safe to
// call Close more than once.
func (d *Docs[T]) Close() error {
	d.done = true
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// All returns an iterator over the remaining documents. A failure is yielded
// once, as the last element, together with the zero value of T. The
// underlying file is closed when the loop ends, including on break.
func (d *Docs[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer d.Close()
		for d.Next() {
			if !yield(d.Value(), nil) {
				return
			}
		}
		if err := d.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

func (d *Docs[T]) finish(err error) {
	var zero T
	d.cur = zero
	d.err = err
	if cerr := d.Close(); cerr != nil && d.err == nil {
		d.err = cerr
	}
}

// readChunk returns the text of the next document with content, and the line
// it starts at. It returns a nil chunk at the end of the stream.
func (d *Docs[T]) readChunk() ([]byte, int, error) {
	var (
		buf     bytes.Buffer
		start   int
		content bool
		// directive is set while "%" lines wait for the marker of their document
		directive bool
	)
	if d.pending != "" {
		buf.WriteString(d.pending)
		start = d.pendingLine
		content = hasInlineContent(d.pending)
		d.pending = ""
	}

	for !d.eof {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, 0, err
			}
			d.eof = true
			if line == "" {
				break
			}
		}
		d.line++

		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case !content && strings.HasPrefix(trimmed, "%"):
			if start == 0 {
				start = d.line
			}
			buf.WriteString(line)
			directive = true
			continue
		case isDocumentStart(trimmed):
			if content {
				d.pending, d.pendingLine = line, d.line
				return buf.Bytes(), start, nil
			}
			if directive {
				buf.WriteString(line)
				content = hasInlineContent(trimmed)
				directive = false
				continue
			}
			d.skip(buf.Len(), start)
			buf.Reset()
			buf.WriteString(line)
			start = d.line
			content = hasInlineContent(trimmed)
			continue
		case trimmed == documentEnd:
			if content {
				return buf.Bytes(), start, nil
			}
			d.skip(buf.Len(), start)
			buf.Reset()
			start = 0
			directive = false
			continue
		}

		if start == 0 {
			start = d.line
		}
		buf.WriteString(line)
		if isContent(trimmed) {
			content = true
		}
	}

	if !content {
		d.skip(buf.Len(), start)
		return nil, 0, nil
	}
	return buf.Bytes(), start, nil
}

func (d *Docs[T]) skip(size, line int) {
	if size > 0 {
		d.options.Logger.Debug("skipping chunk without content", "line", line, "bytes", size)
	}
}

// isDocumentStart reports whether line is a "---" marker, possibly followed
// by content on the same line.
func isDocumentStart(line string) bool {
	if !strings.HasPrefix(line, Separator) {
		return false
	}
	rest := line[len(Separator):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// hasInlineContent reports whether a marker line carries part of the
// document, as in "--- value".
func hasInlineContent(marker string) bool {
	marker = strings.TrimRight(marker, "\r\n")
	return isContent(strings.TrimPrefix(marker, Separator))
}

func isContent(line string) bool {
	s := strings.TrimSpace(line)
	return s != "" && !strings.HasPrefix(s, "#")
}
