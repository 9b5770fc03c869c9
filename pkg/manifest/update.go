package manifest

import (
	"fmt"
	"os"

	"github.com/sambabib/depfresh/pkg/analyzer"
	"github.com/sambabib/depfresh/pkg/logger"
)

// Update sets the declared constraint of one dependency.
type Update struct {
	Name       string
	Section    analyzer.Section
	Constraint string // new value, prefix included
}

// UpdatesFromEntries turns report entries into updates that pin each entry's
// latest version while keeping its declared prefix.
func UpdatesFromEntries(entries []analyzer.Entry) ([]Update, error) {
	updates := make([]Update, 0, len(entries))
	for _, e := range entries {
		c, err := analyzer.ParseConstraint(e.Constraint)
		if err != nil {
			return nil, fmt.Errorf("cannot update %s: %w", e.Name, err)
		}
		if e.Latest == "" {
			return nil, fmt.Errorf("cannot update %s: no latest version", e.Name)
		}
		section := e.Section
		if section == "" {
			section = analyzer.SectionDependencies
		}
		updates = append(updates, Update{Name: e.Name, Section: section, Constraint: c.Rewrite(e.Latest)})
	}
	return updates, nil
}

// ApplyUpdates rewrites the given dependencies in manifest content. Key order
// and every untouched field are preserved.
func ApplyUpdates(content []byte, updates []Update) ([]byte, error) {
	doc, err := decode(content)
	if err != nil {
		return nil, err
	}

	for _, u := range updates {
		raw, ok := doc.Get(string(u.Section))
		if !ok {
			return nil, fmt.Errorf("package %s not found: no %q in %s", u.Name, u.Section, FileName)
		}
		deps, ok := asOrderedMap(raw)
		if !ok {
			return nil, fmt.Errorf("invalid %s: %q must be an object", FileName, u.Section)
		}
		if _, exists := deps.Get(u.Name); !exists {
			return nil, fmt.Errorf("package %s not found in %s", u.Name, u.Section)
		}
		deps.Set(u.Name, u.Constraint)
		doc.Set(string(u.Section), deps)
	}
	return marshal(doc)
}

// WriteUpdates applies updates to the manifest file at path in place.
func WriteUpdates(path string, updates []Update) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	out, err := ApplyUpdates(content, updates)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, u := range updates {
		logger.Debugf("[manifest] %s.%s = %s", u.Section, u.Name, u.Constraint)
	}
	return nil
}
