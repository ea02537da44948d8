// Package frontmatter splits Markdown records into a YAML metadata block and
// a free-text body, and rewrites individual metadata keys without disturbing
// the rest of the block.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("frontmatter: missing opening fence")
	// ErrUnterminated indicates the closing fence was never found.
	ErrUnterminated = errors.New("frontmatter: missing closing fence")
	// ErrNotMapping indicates the metadata block is not a YAML mapping.
	ErrNotMapping = errors.New("frontmatter: metadata is not a mapping")
)

const fence = "---"

// Split separates the raw metadata bytes from the body.
func Split(content []byte) ([]byte, []byte, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	normalized = bytes.TrimPrefix(normalized, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(normalized, []byte(fence+"\n")) {
		return nil, nil, ErrMissingFrontMatter
	}
	rest := normalized[len(fence)+1:]
	if bytes.HasPrefix(rest, []byte(fence+"\n")) {
		return nil, rest[len(fence)+1:], nil
	}
	if idx := bytes.Index(rest, []byte("\n"+fence+"\n")); idx >= 0 {
		return rest[:idx+1], rest[idx+len(fence)+2:], nil
	}
	if bytes.HasSuffix(rest, []byte("\n"+fence)) {
		return rest[:len(rest)-len(fence)], nil, nil
	}
	return nil, nil, ErrUnterminated
}

// Parse decodes the metadata block into an untyped map and returns the body.
// An empty block yields an empty map.
func Parse(content []byte) (map[string]any, string, error) {
	meta, body, err := Split(content)
	if err != nil {
		return nil, "", err
	}
	out := map[string]any{}
	if len(bytes.TrimSpace(meta)) == 0 {
		return out, string(body), nil
	}
	var decoded any
	if err := yaml.Unmarshal(meta, &decoded); err != nil {
		return nil, "", fmt.Errorf("frontmatter: parse metadata: %w", err)
	}
	if decoded == nil {
		return out, string(body), nil
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, "", ErrNotMapping
	}
	return m, string(body), nil
}

// Document is an editable record: metadata kept as a YAML node tree so key
// order, comments and scalar styles survive a rewrite.
type Document struct {
	meta *yaml.Node
	Body []byte
}

// Load parses content into an editable Document.
func Load(content []byte) (*Document, error) {
	meta, body, err := Split(content)
	if err != nil {
		return nil, err
	}
	var root yaml.Node
	if len(bytes.TrimSpace(meta)) > 0 {
		if err := yaml.Unmarshal(meta, &root); err != nil {
			return nil, fmt.Errorf("frontmatter: parse metadata: %w", err)
		}
	}
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		if root.Content[0].Kind != yaml.MappingNode {
			return nil, ErrNotMapping
		}
		mapping = root.Content[0]
	}
	return &Document{meta: mapping, Body: body}, nil
}

// Get returns the scalar value stored under key.
func (d *Document) Get(key string) (string, bool) {
	for i := 0; i+1 < len(d.meta.Content); i += 2 {
		if d.meta.Content[i].Value == key {
			value := d.meta.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				return "", false
			}
			return value.Value, true
		}
	}
	return "", false
}

// Set replaces (or appends) a top-level string scalar.
func (d *Document) Set(key, value string) {
	for i := 0; i+1 < len(d.meta.Content); i += 2 {
		if d.meta.Content[i].Value == key {
			existing := d.meta.Content[i+1]
			if existing.Kind != yaml.ScalarNode {
				d.meta.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
				return
			}
			existing.Tag = "!!str"
			existing.Value = value
			return
		}
	}
	d.meta.Content = append(d.meta.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

// Bytes renders the document with YAML fences.
func (d *Document) Bytes() ([]byte, error) {
	var meta bytes.Buffer
	enc := yaml.NewEncoder(&meta)
	enc.SetIndent(2)
	if err := enc.Encode(d.meta); err != nil {
		return nil, fmt.Errorf("frontmatter: encode metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("frontmatter: encode metadata: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	if len(d.meta.Content) > 0 {
		buf.Write(meta.Bytes())
	}
	buf.WriteString(fence + "\n")
	buf.Write(d.Body)
	return buf.Bytes(), nil
}
