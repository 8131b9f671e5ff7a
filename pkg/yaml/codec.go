package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
	syaml "sigs.k8s.io/yaml"
)

var (
	// ErrSerialize is returned when a value cannot be encoded to YAML.
	ErrSerialize = errors.New("cannot serialize to YAML")
	// ErrDeserialize is returned when YAML text cannot be decoded into a value.
	ErrDeserialize = errors.New("cannot deserialize YAML")
)

// DefaultIndent is the number of spaces used for nested blocks.
const DefaultIndent = 2

// Codec converts values to YAML documents and back.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// YAMLCodec encodes with gopkg.in/yaml.v3, so `yaml` struct tags apply and
// struct fields keep their declaration order.
//
// KnownFields makes decoding fail on mapping keys that have no matching
// struct field.
type YAMLCodec struct {
	Indent      int
	KnownFields bool
}

// Marshal serializes v as a single YAML document.
func (c YAMLCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(c.indent())
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes the first document in data into v. Empty input leaves v
// untouched.
func (c YAMLCodec) Unmarshal(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(c.KnownFields)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrDeserialize, err)
	}
	return nil
}

func (c YAMLCodec) indent() int {
	if c.Indent <= 0 {
		return DefaultIndent
	}
	return c.Indent
}

// JSONCodec encodes with sigs.k8s.io/yaml: values go through encoding/json
// first, so `json` struct tags apply and mapping keys come out sorted.
type JSONCodec struct{}

// Marshal serializes v as a single YAML document.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	b, err := syaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	return b, nil
}

// Unmarshal decodes data into v.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := syaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDeserialize, err)
	}
	return nil
}

// Marshal serializes v with the default YAMLCodec. Its output is the
// reference the commenting renderer falls back to when no comment applies.
func Marshal(v any) ([]byte, error) {
	return YAMLCodec{}.Marshal(v)
}

// Unmarshal decodes data with the default YAMLCodec.
func Unmarshal(data []byte, v any) error {
	return YAMLCodec{}.Unmarshal(data, v)
}
