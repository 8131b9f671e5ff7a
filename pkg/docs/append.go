package docs

import (
	"errors"
	"fmt"
	"os"

	yamllib "github.com/inercia/go-yaml-docs/pkg/yaml"
)

// Separator is the line written between two documents.
const Separator = "---"

// AppendOrNew serializes v and adds it as a new document at the end of the
// file at path, creating the file when it does not exist.
//
// A non-empty file gets a "---" line before the new document, so reading the
// file back yields every document appended so far, in order. Existing content
// is never rewritten.
//
// v is serialized before the file is touched: a value that cannot be encoded
// leaves the file (or its absence) as it was. If writing fails the file is
// truncated back to its previous size.
func AppendOrNew(path string, v any, opts ...Option) (err error) {
	options := newOptions(opts...)

	doc, err := marshal(options.Codec, v)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, options.Perm)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrIO, cerr)
		}
	}()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	size := st.Size()

	payload := make([]byte, 0, len(doc)+len(Separator)+2)
	if size > 0 {
		if !endsWithNewline(path, size) {
			payload = append(payload, '\n')
		}
		payload = append(payload, Separator+"\n"...)
	}
	payload = append(payload, doc...)

	if _, err := f.Write(payload); err != nil {
		if terr := f.Truncate(size); terr != nil {
			options.Logger.Error("could not roll back partial write", "path", path, "size", size, "error", terr)
		}
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	options.Logger.Debug("appended document", "path", path, "offset", size, "bytes", len(payload))
	return nil
}

// endsWithNewline reports whether the byte at size-1 in the file at path is
// a newline. A file that cannot be read, like a write-only one, counts as not
// ending with a newline: an extra blank line before the separator is harmless.
func endsWithNewline(path string, size int64) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return false
	}
	return last[0] == '\n'
}

// marshal encodes v, making sure the document ends with a newline so the
// next separator starts on its own line.
func marshal(codec yamllib.Codec, v any) ([]byte, error) {
	doc, err := codec.Marshal(v)
	if err != nil {
		if errors.Is(err, yamllib.ErrSerialize) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", yamllib.ErrSerialize, err)
	}
	if len(doc) > 0 && doc[len(doc)-1] != '\n' {
		doc = append(doc, '\n')
	}
	return doc, nil
}
