package quadlet

// DefaultWantedBy is the install target of units enabled at boot.
const DefaultWantedBy = "default.target"

// Options carries caller choices that are not part of the inspection
// records.
type Options struct {
	// Description is rendered as [Unit] Description= when set.
	Description string
	// WantedBy lists [Install] targets. No [Install] section is rendered
	// when empty.
	WantedBy []string
}

// DefaultOptions returns options installing the unit into default.target.
func DefaultOptions() Options {
	return Options{WantedBy: []string{DefaultWantedBy}}
}

// Build translates in into a Document. Either every field maps and the full
// document is returned, or the error lists every offending field as
// MappingErrors. Unknown kinds return an UnsupportedKindError.
func Build(in Input, opts Options) (*Document, error) {
	var errs collector
	var doc *Document

	switch in.Kind {
	case KindContainer:
		if in.Container == nil {
			return nil, missingRecord("container")
		}
		img := in.Image
		if img == nil {
			img = &ImageInspection{}
		}
		f := collectContainer(in.Container, img, &errs)
		doc = assemble(in.Kind, containerTemplate, f, opts, &errs)
	case KindPod:
		if in.Pod == nil {
			return nil, missingRecord("pod")
		}
		doc = assemble(in.Kind, podTemplate, collectPod(in.Pod, &errs), opts, &errs)
	case KindVolume:
		if in.Volume == nil {
			return nil, missingRecord("volume")
		}
		doc = assemble(in.Kind, volumeTemplate, collectVolume(in.Volume, &errs), opts, &errs)
	case KindNetwork:
		if in.Network == nil {
			return nil, missingRecord("network")
		}
		doc = assemble(in.Kind, networkTemplate, collectNetwork(in.Network, &errs), opts, &errs)
	case KindImage:
		if in.Image == nil {
			return nil, missingRecord("image")
		}
		doc = assemble(in.Kind, imageTemplate, collectImage(in.Image, &errs), opts, &errs)
	case KindKube:
		if in.Kube == nil {
			return nil, missingRecord("kube")
		}
		doc = assemble(in.Kind, kubeTemplate, collectKube(in.Kube, &errs), opts, &errs)
	default:
		return nil, &UnsupportedKindError{Kind: string(in.Kind)}
	}

	if err := errs.err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Generate renders in as unit file text. On failure the text is empty.
func Generate(in Input, opts Options) (string, error) {
	doc, err := Build(in, opts)
	if err != nil {
		return "", err
	}
	return doc.String(), nil
}

func missingRecord(field string) error {
	return MappingErrors{{Field: field, Reason: "inspection record is required"}}
}
