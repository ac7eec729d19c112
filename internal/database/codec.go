package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"tacticsdb/pkg/domain"
)

// Format is the encoding of catalog files.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat reports an unsupported catalog file format.
var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat accepts json, yaml or yml, case-insensitively. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type catalog files are stored with.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// FileName returns the file a catalog is stored in.
func (f Format) FileName(key domain.CatalogKey) string { return string(key) + f.Ext() }

// EncodeCatalog renders saved records as one file body: a JSON array, or a
// YAML sequence in block style. Object key order is kept.
func EncodeCatalog(f Format, records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	switch f {
	case FormatJSON:
		b, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case FormatYAML:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, rec := range records {
			var doc yaml.Node
			if err := yaml.Unmarshal(rec, &doc); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			if len(doc.Content) == 0 {
				return nil, fmt.Errorf("record %d: empty", i)
			}
			node := doc.Content[0]
			blockStyle(node)
			seq.Content = append(seq.Content, node)
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(seq); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// blockStyle clears the flow and quoting styles the JSON parse left behind;
// the encoder re-quotes any string that would otherwise read back as another type.
func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.ScalarNode:
		n.Style = 0
		if n.Tag == "!!str" && strings.Contains(n.Value, "\n") {
			n.Style = yaml.LiteralStyle
		}
	case yaml.SequenceNode, yaml.MappingNode:
		n.Style = 0
		if len(n.Content) == 0 {
			n.Style = yaml.FlowStyle
		}
		for _, c := range n.Content {
			blockStyle(c)
		}
	}
}

// DecodeCatalog parses a catalog file body into records.
func DecodeCatalog(f Format, data []byte) ([]domain.Record, error) {
	switch f {
	case FormatJSON:
		var records []domain.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		if len(doc.Content) == 0 {
			return nil, nil
		}
		root := resolveAlias(doc.Content[0])
		if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
			return nil, nil
		}
		if root.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: catalog must be a sequence", root.Line)
		}
		records := make([]domain.Record, 0, len(root.Content))
		for _, item := range root.Content {
			var buf bytes.Buffer
			if err := nodeJSON(&buf, item); err != nil {
				return nil, err
			}
			records = append(records, domain.Record(buf.Bytes()))
		}
		return records, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// nodeJSON writes n as JSON, keeping mapping order.
func nodeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(resolveAlias(n.Content[i]).Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := nodeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := nodeJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		return scalarJSON(buf, n)
	default:
		return fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
	return nil
}

func scalarJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		buf.WriteString("null")
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		buf.WriteString(strconv.FormatBool(b))
		return nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return err
		}
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		b, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(b)
		return nil
	}
	b, err := json.Marshal(n.Value)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
