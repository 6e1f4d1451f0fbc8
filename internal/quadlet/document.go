package quadlet

import (
	"io"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
)

// Directive is one rendered `Key=Value` line. Value is already escaped.
type Directive struct {
	Key   string
	Value string
}

// Section is a named group of directives. Repeated keys are kept as
// separate directives in emission order.
type Section struct {
	Name       string
	Directives []Directive
}

// Document is an ordered list of sections.
type Document struct {
	Sections []Section
}

// Section returns the named section, or nil when absent.
func (d *Document) Section(name string) *Section {
	for i := range d.Sections {
		if d.Sections[i].Name == name {
			return &d.Sections[i]
		}
	}
	return nil
}

// Values returns the unescaped values of every occurrence of key within
// section, in order.
func (d *Document) Values(section, key string) []string {
	s := d.Section(section)
	if s == nil {
		return nil
	}
	var values []string
	for _, dir := range s.Directives {
		if dir.Key == key {
			values = append(values, Unquote(dir.Value))
		}
	}
	return values
}

// Options flattens the document into go-systemd unit options.
func (d *Document) Options() []*unit.UnitOption {
	var opts []*unit.UnitOption
	for _, s := range d.Sections {
		for _, dir := range s.Directives {
			opts = append(opts, unit.NewUnitOption(s.Name, dir.Key, dir.Value))
		}
	}
	return opts
}

// String serializes the document. Sections are separated by a single blank
// line and the output ends with a newline. Sections without directives are
// not rendered.
func (d *Document) String() string {
	opts := d.Options()
	if len(opts) == 0 {
		return ""
	}
	var b strings.Builder
	// Serialize writes to an in-memory buffer and cannot fail.
	_, _ = io.Copy(&b, unit.Serialize(opts))
	return b.String()
}
