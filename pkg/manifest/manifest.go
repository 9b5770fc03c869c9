// Package manifest reads dependency declarations from package.json and writes
// selected version updates back without disturbing the rest of the file.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/iancoleman/orderedmap"

	"github.com/sambabib/depfresh/pkg/analyzer"
	"github.com/sambabib/depfresh/pkg/logger"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "package.json"

// Sections lists the manifest objects that hold dependencies, in check order.
var Sections = []analyzer.Section{analyzer.SectionDependencies, analyzer.SectionDevDependencies}

// Dependency is a single declared dependency.
type Dependency struct {
	Name       string
	Constraint string
	Section    analyzer.Section
}

// Manifest is the parsed content of a package.json file.
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Dependencies []Dependency // declaration order, section by section
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	logger.Debugf("[manifest] reading %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Parse decodes manifest content, keeping dependencies in declaration order.
func Parse(data []byte) (*Manifest, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}

	m := &Manifest{}
	if v, ok := doc.Get("name"); ok {
		m.Name, _ = v.(string)
	}
	if v, ok := doc.Get("version"); ok {
		m.Version, _ = v.(string)
	}
	for _, section := range Sections {
		raw, ok := doc.Get(string(section))
		if !ok || raw == nil {
			continue
		}
		deps, ok := asOrderedMap(raw)
		if !ok {
			return nil, fmt.Errorf("invalid %s: %q must be an object", FileName, section)
		}
		for _, name := range deps.Keys() {
			val, _ := deps.Get(name)
			constraint, ok := val.(string)
			if !ok {
				logger.Warnf("[manifest] skipping %s in %s: version is not a string", name, section)
				continue
			}
			m.Dependencies = append(m.Dependencies, Dependency{Name: name, Constraint: constraint, Section: section})
		}
	}
	return m, nil
}

// Requests flattens the declared dependencies into lookup requests. With no
// sections given every section is included.
func (m *Manifest) Requests(sections ...analyzer.Section) []analyzer.DependencyRequest {
	include := make(map[analyzer.Section]bool, len(sections))
	for _, s := range sections {
		include[s] = true
	}
	reqs := make([]analyzer.DependencyRequest, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		if len(include) > 0 && !include[d.Section] {
			continue
		}
		reqs = append(reqs, analyzer.DependencyRequest{Name: d.Name, Constraint: d.Constraint, Section: d.Section})
	}
	return reqs
}

// decode parses manifest content into an ordered document. Numbers keep the
// literal they were written with, so a rewrite leaves them byte for byte.
func decode(content []byte) (*orderedmap.OrderedMap, error) {
	doc := orderedmap.New()
	if err := json.Unmarshal(content, doc); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var literals map[string]interface{}
	if err := dec.Decode(&literals); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	keepNumbers(doc, literals)
	return doc, nil
}

// keepNumbers replaces the float64 values orderedmap decodes with the
// json.Number found at the same place in literals.
func keepNumbers(m *orderedmap.OrderedMap, literals map[string]interface{}) {
	for _, key := range m.Keys() {
		val, _ := m.Get(key)
		m.Set(key, keepNumber(val, literals[key]))
	}
}

func keepNumber(val, literal interface{}) interface{} {
	switch v := val.(type) {
	case float64:
		if n, ok := literal.(json.Number); ok {
			return n
		}
	case *orderedmap.OrderedMap:
		if lm, ok := literal.(map[string]interface{}); ok {
			keepNumbers(v, lm)
		}
		return v
	case orderedmap.OrderedMap:
		if lm, ok := literal.(map[string]interface{}); ok {
			keepNumbers(&v, lm)
		}
		return &v
	case []interface{}:
		ls, _ := literal.([]interface{})
		for i := range v {
			var l interface{}
			if i < len(ls) {
				l = ls[i]
			}
			v[i] = keepNumber(v[i], l)
		}
		return v
	}
	return val
}

func asOrderedMap(v interface{}) (*orderedmap.OrderedMap, bool) {
	switch m := v.(type) {
	case *orderedmap.OrderedMap:
		return m, true
	case orderedmap.OrderedMap:
		return &m, true
	default:
		return nil, false
	}
}

// marshal writes the document with two-space indentation, no HTML escaping and
// a trailing newline.
func marshal(doc *orderedmap.OrderedMap) ([]byte, error) {
	disableEscape(doc)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func disableEscape(m *orderedmap.OrderedMap) {
	m.SetEscapeHTML(false)
	for _, key := range m.Keys() {
		val, _ := m.Get(key)
		m.Set(key, normalizeEscape(val))
	}
}

func normalizeEscape(val interface{}) interface{} {
	switch v := val.(type) {
	case *orderedmap.OrderedMap:
		disableEscape(v)
		return v
	case orderedmap.OrderedMap:
		disableEscape(&v)
		return &v
	case []interface{}:
		for i, item := range v {
			v[i] = normalizeEscape(item)
		}
		return v
	default:
		return val
	}
}
