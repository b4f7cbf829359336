package isapi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Document is a permissive XML tree: elements and attributes are merged into
// one map because NVR firmwares do not agree on a fixed schema. Text-only
// elements collapse to strings; repeated siblings become slices. Callers
// extract fields defensively via Text and List.
type Document map[string]any

// ParseXML parses an XML body into a Document rooted at its top element.
func ParseXML(data []byte) (Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("empty XML document")
			}
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			value, parseErr := parseElement(dec, start)
			if parseErr != nil {
				return nil, parseErr
			}
			return Document{start.Name.Local: value}, nil
		}
	}
}

// parseElement consumes tokens until the matching end element, returning
// either a string (text-only element) or a map with attributes and children
// merged.
func parseElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	node := make(map[string]any)
	for _, attr := range start.Attr {
		node[attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, childErr := parseElement(dec, t)
			if childErr != nil {
				return nil, childErr
			}
			insertChild(node, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			content := strings.TrimSpace(text.String())
			if len(node) == 0 {
				return content, nil
			}
			if content != "" {
				node["#text"] = content
			}
			return node, nil
		}
	}
}

// insertChild adds a child value, converting repeated siblings to a slice.
func insertChild(node map[string]any, name string, value any) {
	existing, present := node[name]
	if !present {
		node[name] = value
		return
	}
	if list, ok := existing.([]any); ok {
		node[name] = append(list, value)
		return
	}
	node[name] = []any{existing, value}
}

// Text walks the given path and returns the string value at its end, or ""
// when any step is missing or the value is not textual.
func (d Document) Text(path ...string) string {
	var current any = map[string]any(d)
	for _, key := range path {
		m, ok := asMap(current)
		if !ok {
			return ""
		}
		current = m[key]
	}
	if s, ok := current.(string); ok {
		return s
	}
	return ""
}

// List walks the given path and returns the element(s) there as Documents.
// A single element is returned as a one-entry slice, mirroring firmwares
// that emit one child where others emit a list.
func (d Document) List(path ...string) []Document {
	var current any = map[string]any(d)
	for _, key := range path {
		m, ok := asMap(current)
		if !ok {
			return nil
		}
		current = m[key]
	}

	switch v := current.(type) {
	case nil:
		return nil
	case []any:
		docs := make([]Document, 0, len(v))
		for _, item := range v {
			if m, ok := asMap(item); ok {
				docs = append(docs, Document(m))
			}
		}
		return docs
	default:
		if m, ok := asMap(v); ok {
			return []Document{Document(m)}
		}
		return nil
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
