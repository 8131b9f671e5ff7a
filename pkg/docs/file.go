package docs

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"dario.cat/mergo"
)

// ReadAll decodes every document of the file at path.
func ReadAll[T any](path string, opts ...Option) ([]T, error) {
	d, err := Open[T](path, opts...)
	if err != nil {
		return nil, err
	}

	var all []T
	for v, err := range d.All() {
		if err != nil {
			return nil, err
		}
		all = append(all, v)
	}
	return all, nil
}

// WriteAll replaces the file at path with one document per value, in the
// same layout AppendOrNew produces. The file is written to a temporary file
// first and renamed in place, so readers never see a partial file.
func WriteAll[T any](path string, values []T, opts ...Option) error {
	options := newOptions(opts...)

	var buf bytes.Buffer
	for i, v := range values {
		doc, err := marshal(options.Codec, v)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteString(Separator + "\n")
		}
		buf.Write(doc)
	}

	if err := writeFileAtomic(path, buf.Bytes(), options.Perm); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	options.Logger.Debug("wrote documents", "path", path, "documents", len(values), "bytes", buf.Len())
	return nil
}

// Merge decodes every document of the file at path and deep-merges them, in
// file order, into a single mapping. Later documents win on conflicts; lists
// are replaced, not concatenated. Empty documents are ignored and any other
// non-mapping document fails with ErrNotMapping.
func Merge(path string, opts ...Option) (map[string]any, error) {
	d, err := Open[any](path, opts...)
	if err != nil {
		return nil, err
	}

	merged := map[string]any{}
	for doc, err := range d.All() {
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		m, ok := normalizeValue(doc).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: document %d is %T", ErrNotMapping, d.Index(), doc)
		}
		if err := mergo.Merge(&merged, m, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging document %d: %w", d.Index(), err)
		}
	}
	return merged, nil
}

// normalizeValue recursively converts maps to map[string]any so mergo can
// descend into them.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		normalized := make(map[string]any, len(val))
		for k, v := range val {
			normalized[k] = normalizeValue(v)
		}
		return normalized
	case map[any]any:
		normalized := make(map[string]any, len(val))
		for k, v := range val {
			normalized[fmt.Sprint(k)] = normalizeValue(v)
		}
		return normalized
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = normalizeValue(item)
		}
		return result
	default:
		return v
	}
}

// writeFileAtomic writes data to a temp file in the same directory and renames it in place.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".docs-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(name)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
