package yaml

import (
	"bytes"
	"reflect"
	"regexp"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

// EqualYAMLs compares two YAML documents by unmarshalling them and comparing
// the re-serialized results.
// Note well that this function does not take into account spaces and comments: it only
// compares the contents.
func EqualYAMLs(a []byte, b []byte) (bool, error) {
	an, err := normalize(a)
	if err != nil {
		return false, err
	}
	bn, err := normalize(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(an, bn), nil
}

// normalize re-serializes a document so formatting and comments go away.
// Empty input stays empty.
func normalize(doc []byte) ([]byte, error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, nil
	}
	var v any
	if err := Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	return Marshal(v)
}

// StripComments removes the comment lines ToString adds, that is lines
// holding only a comment that starts with the configured comment prefix.
// Lines inside block scalars (after a "|" or ">" indicator) are content and
// are always kept.
func StripComments(doc []byte, opts ...RenderOption) []byte {
	prefix := []byte(newRenderOptions(opts...).CommentPrefix)
	bare := bytes.TrimRight(prefix, " ")

	out := make([]byte, 0, len(doc))
	blockIndent := -1
	for _, ln := range bytes.SplitAfter(doc, []byte("\n")) {
		trimmed := bytes.TrimSpace(ln)
		indent := len(ln) - len(bytes.TrimLeft(ln, " "))
		if blockIndent >= 0 {
			if len(trimmed) == 0 || indent > blockIndent {
				out = append(out, ln...)
				continue
			}
			blockIndent = -1
		}
		if bytes.HasPrefix(trimmed, prefix) || bytes.Equal(trimmed, bare) {
			continue
		}
		if blockScalarHeader.Match(trimmed) {
			blockIndent = indent
		}
		out = append(out, ln...)
	}
	return out
}

// blockScalarHeader matches lines ending with a literal or folded block
// indicator, like "key: |", "- >-" or "text: |2 # comment".
var blockScalarHeader = regexp.MustCompile(`(^|\s)[|>][-+1-9]*(\s+#.*)?$`)

/////////////////////////////////////////////////////////////////////////////////////

var spewConfig = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	DisableMethods:          true,
	MaxDepth:                10,
}

// DiffYAML decodes two YAML documents and returns a unified diff between
// dumps of the decoded values, or "" when they are equal or cannot be parsed.
// Types are part of the dump, so `port: 80` and `port: "80"` differ.
func DiffYAML(a []byte, b []byte) string {
	av, err := decode(a)
	if err != nil {
		return ""
	}
	bv, err := decode(b)
	if err != nil {
		return ""
	}
	return Diff(av, bv)
}

// Diff returns a unified diff between dumps of two values, or "" when they
// are deeply equal.
func Diff(previous any, actual any) string {
	if reflect.DeepEqual(previous, actual) {
		return ""
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(spewConfig.Sdump(previous)),
		B:        difflib.SplitLines(spewConfig.Sdump(actual)),
		FromFile: "Previous",
		ToFile:   "Actual",
		Context:  1,
	})
	return diff
}

func decode(doc []byte) (any, error) {
	var v any
	if err := Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	return v, nil
}
