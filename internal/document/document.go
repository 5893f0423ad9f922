// Package document holds the declarative configuration document: the
// saveable unit the daemon and humans both read back. Key names and
// nesting are the at-rest schema, so the document stays a free-form map
// instead of a struct that would drop unknown fields.
package document

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Document map[string]any

// FromYAML parses a declarative document.
func FromYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "document: invalid yaml")
	}
	return doc, nil
}

// YAML serializes the document with 2-space indentation.
func (d Document) YAML() ([]byte, error) {
	var buffer bytes.Buffer

	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(map[string]any(d)); err != nil {
		return nil, errors.Wrap(err, "document: cannot serialize")
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.WithStack(err)
	}

	return buffer.Bytes(), nil
}
