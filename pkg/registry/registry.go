package registry

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultVersion is the layout the bundled model was trained on.
const DefaultVersion = "1.0.0"

//go:embed schemas/*.yaml
var embedded embed.FS

// LoadDocument reads a schema document from disk.
func LoadDocument(p string) (*SchemaDocument, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}

// ParseDocument decodes a YAML schema document. Unknown keys are rejected.
func ParseDocument(data []byte) (*SchemaDocument, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc SchemaDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema document: %w", err)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("schema document has no version")
	}
	return &doc, nil
}

// Embedded returns the bundled document with the given version.
func Embedded(version string) (*SchemaDocument, error) {
	docs, err := embeddedDocuments()
	if err != nil {
		return nil, err
	}
	doc, ok := docs[version]
	if !ok {
		return nil, fmt.Errorf("schema version %q not bundled (have %s)", version, strings.Join(sortedKeys(docs), ", "))
	}
	return doc, nil
}

// Versions lists the bundled schema versions.
func Versions() ([]string, error) {
	docs, err := embeddedDocuments()
	if err != nil {
		return nil, err
	}
	return sortedKeys(docs), nil
}

func embeddedDocuments() (map[string]*SchemaDocument, error) {
	entries, err := embedded.ReadDir("schemas")
	if err != nil {
		return nil, err
	}

	docs := make(map[string]*SchemaDocument, len(entries))
	for _, e := range entries {
		data, err := embedded.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		doc, err := ParseDocument(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, dup := docs[doc.Version]; dup {
			return nil, fmt.Errorf("schema version %q bundled twice", doc.Version)
		}
		docs[doc.Version] = doc
	}
	return docs, nil
}

func sortedKeys(m map[string]*SchemaDocument) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
