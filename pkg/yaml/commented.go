package yaml

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCommentPrefix starts every injected comment line.
const DefaultCommentPrefix = "## "

// KeyData describes the mapping key the renderer is about to emit.
type KeyData struct {
	// Key is the key as written in the document.
	Key string
	// Path is the full path to the key, with nested keys separated by "." and
	// sequence items addressed as "[<index>]". For example "inner.value" or
	// "items[1].name". Keys that are empty or contain '.', '[', ']' or '"'
	// are double-quoted, as in `labels."app.kubernetes.io/name"`, so keys
	// with the same name at different places in the document always have
	// different paths.
	Path string
	// Depth is the number of enclosing mappings: 0 for the keys of the root.
	Depth int
}

// CommentFunc returns the comment to render above the key described by
// KeyData. An empty string means no comment. Multi-line comments are split
// on "\n" and rendered as one comment line each.
type CommentFunc func(KeyData) string

// RenderOptions controls how comments are rendered.
type RenderOptions struct {
	// CommentPrefix is written at the start of every comment line. It must
	// start with "#".
	CommentPrefix string
	// Indent is the number of spaces used for nested blocks.
	Indent int
}

// RenderOption is a functional option for ToString, ToWriter and Comment.
type RenderOption func(*RenderOptions)

// WithCommentPrefix sets the prefix of comment lines. Prefixes not starting
// with "#" are ignored.
func WithCommentPrefix(prefix string) RenderOption {
	return func(o *RenderOptions) {
		if strings.HasPrefix(prefix, "#") {
			o.CommentPrefix = prefix
		}
	}
}

// WithIndent sets the indentation of nested blocks.
func WithIndent(n int) RenderOption {
	return func(o *RenderOptions) {
		if n > 0 {
			o.Indent = n
		}
	}
}

func defaultRenderOptions() RenderOptions {
	return RenderOptions{CommentPrefix: DefaultCommentPrefix, Indent: DefaultIndent}
}

func newRenderOptions(opts ...RenderOption) RenderOptions {
	options := defaultRenderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// ToString serializes v to YAML, calling cb for every mapping key and
// rendering the returned comments right above the key.
//
// With a callback that never returns a comment (or a nil callback) the result
// is exactly what Marshal produces for v. Comment lines are plain YAML
// comments, so parsing the result gives back the same document.
func ToString(v any, cb CommentFunc, opts ...RenderOption) (string, error) {
	var buf bytes.Buffer
	if err := ToWriter(&buf, v, cb, opts...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToWriter is like ToString but writes the document to w. Nothing is written
// when the value cannot be serialized.
func ToWriter(w io.Writer, v any, cb CommentFunc, opts ...RenderOption) error {
	options := newRenderOptions(opts...)

	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	comment(&node, cb, options)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(options.Indent)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialize, err)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Comment walks node in emission order and attaches the comments returned by
// cb to the mapping keys, as head comments. Callers holding a yaml.Node
// already (for example one obtained by decoding a file) can use it and then
// encode the node themselves.
func Comment(node *yaml.Node, cb CommentFunc, opts ...RenderOption) {
	comment(node, cb, newRenderOptions(opts...))
}

func comment(node *yaml.Node, cb CommentFunc, options RenderOptions) {
	if node == nil || cb == nil {
		return
	}
	c := commenter{cb: cb, prefix: options.CommentPrefix}
	c.walk(node, "", 0, nil)
}

type commenter struct {
	cb     CommentFunc
	prefix string
}

// walk visits nodes depth-first, keys before their values, which is the
// order the encoder emits them in.
//
// lead is the node whose head comment the encoder writes on its own line
// right before n starts. For a mapping that is a sequence item that is the
// item itself: a head comment on its first key would land after the "- ".
func (c commenter) walk(n *yaml.Node, path string, depth int, lead *yaml.Node) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, child := range n.Content {
			c.walk(child, path, depth, nil)
		}
	case yaml.SequenceNode:
		if n.Style&yaml.FlowStyle != 0 {
			return
		}
		for i, item := range n.Content {
			itemLead := item
			if i == 0 && lead != nil {
				itemLead = lead
			}
			c.walk(item, path+"["+strconv.Itoa(i)+"]", depth, itemLead)
		}
	case yaml.MappingNode:
		// comments cannot live inside a single-line flow mapping
		if n.Style&yaml.FlowStyle != 0 {
			return
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			keyPath := path
			if key.Kind == yaml.ScalarNode {
				keyPath = joinPath(path, key.Value)
				text := c.cb(KeyData{Key: key.Value, Path: keyPath, Depth: depth})
				if text != "" {
					target := key
					if i == 0 && lead != nil {
						target = lead
					}
					target.HeadComment = joinComments(target.HeadComment, c.format(text))
				}
			}
			c.walk(value, keyPath, depth+1, nil)
		}
	}
}

// format turns a free-form comment into prefixed comment lines.
func (c commenter) format(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\r\n"), "\n")
	for i, ln := range lines {
		ln = strings.TrimRight(ln, "\r")
		if ln == "" {
			lines[i] = strings.TrimRight(c.prefix, " ")
			continue
		}
		lines[i] = c.prefix + ln
	}
	return strings.Join(lines, "\n")
}

// joinPath appends key to path. Keys that would make the path ambiguous
// (empty, or holding '.', '[', ']' or '"') are double-quoted.
func joinPath(path, key string) string {
	if key == "" || strings.ContainsAny(key, `.[]"`) {
		key = strconv.Quote(key)
	}
	if path == "" {
		return key
	}
	return path + "." + key
}

func joinComments(existing, added string) string {
	if existing == "" {
		return added
	}
	return existing + "\n" + added
}
