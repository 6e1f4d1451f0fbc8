package quadlet

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fixed section names surrounding the kind section.
const (
	SectionUnit    = "Unit"
	SectionService = "Service"
	SectionInstall = "Install"
)

// SectionName returns the kind-specific section name, e.g. "Container".
func SectionName(k Kind) string {
	// Casers keep state and are built per call.
	return cases.Title(language.English).String(string(k))
}

// group renders one family of directives from the normalized fields of a
// kind.
type group[T any] func(e *emitter, f *T)

// template lists, per section, the directive groups in canonical order.
// Output order depends only on these lists, never on input field order.
type template[T any] struct {
	unit    []group[T]
	body    []group[T]
	service []group[T]
}

var containerTemplate = template[containerFields]{
	unit: []group[containerFields]{
		func(e *emitter, f *containerFields) { emitDependencies(e, f.dependsOn) },
		func(e *emitter, f *containerFields) { emitStartLimit(e, f.restart) },
	},
	body: []group[containerFields]{
		// identity
		func(e *emitter, f *containerFields) {
			e.scalar("image", "Image", f.image)
			e.scalar("name", "ContainerName", f.name)
			e.scalar("hostname", "HostName", f.hostname)
			e.scalar("pod", "Pod", f.pod)
		},
		// ports
		func(e *emitter, f *containerFields) {
			emitPorts(e, "ports", f.ports)
			e.repeated("exposedPorts", "ExposeHostPort", f.exposed)
		},
		func(e *emitter, f *containerFields) { emitMounts(e, f.mounts) },
		func(e *emitter, f *containerFields) { emitNetworks(e, f.networkMode, f.networks) },
		func(e *emitter, f *containerFields) { emitEnv(e, f.env) },
		// labels
		func(e *emitter, f *containerFields) {
			emitLabels(e, "labels", f.labels)
			e.scalar("labels["+labelAutoUpdate+"]", "AutoUpdate", f.autoUpdate)
		},
		func(e *emitter, f *containerFields) { emitResources(e, f.resources) },
		func(e *emitter, f *containerFields) { emitHealthCheck(e, f.health) },
		func(e *emitter, f *containerFields) { emitSecurity(e, f.security) },
		func(e *emitter, f *containerFields) {
			emitExecution(e, f.user, f.workingDir, f.entrypoint, f.command)
		},
		func(e *emitter, f *containerFields) { emitStop(e, f.stopSignal, f.stopTimeout) },
	},
	service: []group[containerFields]{
		func(e *emitter, f *containerFields) { emitRestart(e, f.restart) },
	},
}

var podTemplate = template[podFields]{
	body: []group[podFields]{
		func(e *emitter, f *podFields) {
			e.scalar("name", "PodName", f.name)
			e.scalar("hostname", "HostName", f.hostname)
		},
		func(e *emitter, f *podFields) { emitPorts(e, "ports", f.ports) },
		func(e *emitter, f *podFields) { emitNetworks(e, "", f.networks) },
		func(e *emitter, f *podFields) { emitLabels(e, "labels", f.labels) },
	},
}

var volumeTemplate = template[volumeFields]{
	body: []group[volumeFields]{
		func(e *emitter, f *volumeFields) {
			e.scalar("name", "VolumeName", f.name)
			e.scalar("driver", "Driver", f.driver)
		},
		func(e *emitter, f *volumeFields) {
			e.scalar("options[type]", "Type", f.fsType)
			e.scalar("options[device]", "Device", f.device)
			e.scalar("options[o]", "Options", f.mountOptions)
			for _, o := range f.extraOptions {
				e.scalar("options["+o.Key+"]", "PodmanArgs", "--opt "+o.Key+"="+o.Value)
			}
		},
		func(e *emitter, f *volumeFields) { emitLabels(e, "labels", f.labels) },
	},
}

var networkTemplate = template[networkFields]{
	body: []group[networkFields]{
		func(e *emitter, f *networkFields) {
			e.scalar("name", "NetworkName", f.name)
			e.scalar("driver", "Driver", f.driver)
		},
		func(e *emitter, f *networkFields) {
			for i, s := range f.subnets {
				e.scalar(subnetField(i, "subnet"), "Subnet", s.Subnet)
				e.scalar(subnetField(i, "gateway"), "Gateway", s.Gateway)
			}
		},
		func(e *emitter, f *networkFields) {
			e.flag("Internal", f.internal)
			e.flag("IPv6", f.ipv6)
			e.flag("DisableDNS", f.disableDNS)
		},
		func(e *emitter, f *networkFields) {
			for _, o := range f.options {
				e.scalar("options["+o.Key+"]", "Options", o.Key+"="+o.Value)
			}
		},
		func(e *emitter, f *networkFields) { emitLabels(e, "labels", f.labels) },
	},
}

var imageTemplate = template[imageFields]{
	body: []group[imageFields]{
		func(e *emitter, f *imageFields) { e.scalar("reference", "Image", f.reference) },
	},
}

var kubeTemplate = template[kubeFields]{
	body: []group[kubeFields]{
		func(e *emitter, f *kubeFields) { e.scalar("yamlPath", "Yaml", f.yamlPath) },
		func(e *emitter, f *kubeFields) { e.repeated("networks", "Network", f.networks) },
		func(e *emitter, f *kubeFields) { emitPorts(e, "ports", f.ports) },
	},
}

// assemble runs the template against f and lays out the sections in the
// order [Unit], kind section, [Service], [Install]. Sections without
// directives are left out.
func assemble[T any](kind Kind, tpl template[T], f *T, opts Options, errs *collector) *Document {
	doc := &Document{}

	unit := &emitter{errs: errs}
	unit.scalar("description", "Description", opts.Description)
	run(unit, tpl.unit, f)
	doc.add(SectionUnit, unit.dirs)

	body := &emitter{errs: errs}
	run(body, tpl.body, f)
	doc.add(SectionName(kind), body.dirs)

	service := &emitter{errs: errs}
	run(service, tpl.service, f)
	doc.add(SectionService, service.dirs)

	install := &emitter{errs: errs}
	install.repeated("wantedBy", "WantedBy", opts.WantedBy)
	doc.add(SectionInstall, install.dirs)

	return doc
}

func run[T any](e *emitter, groups []group[T], f *T) {
	for _, g := range groups {
		g(e, f)
	}
}

func (d *Document) add(name string, dirs []Directive) {
	if len(dirs) == 0 {
		return
	}
	d.Sections = append(d.Sections, Section{Name: name, Directives: dirs})
}
