package quadlet

import (
	"fmt"
	"io"

	"github.com/coreos/go-systemd/v22/unit"
)

// ParseUnit reads a unit file into a Document. Directives keep their file
// order and their escaped form, so repeated keys stay where they were
// written. A section that appears more than once is merged into its first
// occurrence, as systemd does.
func ParseUnit(r io.Reader) (*Document, error) {
	opts, err := unit.DeserializeOptions(r)
	if err != nil {
		return nil, fmt.Errorf("parsing unit: %w", err)
	}

	doc := &Document{}
	for _, o := range opts {
		s := doc.Section(o.Section)
		if s == nil {
			doc.Sections = append(doc.Sections, Section{Name: o.Section})
			s = &doc.Sections[len(doc.Sections)-1]
		}
		s.Directives = append(s.Directives, Directive{Key: o.Name, Value: o.Value})
	}
	return doc, nil
}
