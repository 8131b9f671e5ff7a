package docs

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"

	yamllib "github.com/inercia/go-yaml-docs/pkg/yaml"
)

var (
	// ErrIO wraps failures to open, read, write or close a file. The
	// underlying *fs.PathError stays available to errors.Is/errors.As.
	ErrIO = errors.New("file access failed")
	// ErrNotMapping is returned by Merge for documents that are not mappings.
	ErrNotMapping = errors.New("document is not a mapping")
)

// Options controls how documents are encoded, decoded and written.
type Options struct {
	// Codec converts documents to YAML and back. Default is yaml.YAMLCodec.
	Codec yamllib.Codec
	// Strict rejects mapping keys without a matching struct field when the
	// default codec is used.
	Strict bool
	// Logger receives debug messages. Default discards everything.
	Logger *slog.Logger
	// Perm is the mode of the files created. Default 0o644.
	Perm fs.FileMode
}

// Option is a functional option shared by all the functions of this package.
type Option func(*Options)

// WithCodec sets the codec used for documents, e.g. yaml.JSONCodec{} to honour
// `json` struct tags. The same codec must be used to write and read a file.
func WithCodec(codec yamllib.Codec) Option {
	return func(o *Options) { o.Codec = codec }
}

// WithStrict makes decoding fail on unknown fields.
func WithStrict(strict bool) Option {
	return func(o *Options) { o.Strict = strict }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithPerm sets the permissions of created files.
func WithPerm(perm fs.FileMode) Option {
	return func(o *Options) { o.Perm = perm }
}

func defaultOptions() Options {
	return Options{Perm: 0o644}
}

func newOptions(opts ...Option) Options {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Codec == nil {
		options.Codec = yamllib.YAMLCodec{KnownFields: options.Strict}
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return options
}
