// Package dependency orders a batch of generated units so that every unit
// follows the units it depends on.
package dependency

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/dominikbraun/graph"

	"github.com/trly/quadlet-gen/internal/quadlet"
)

// CycleError reports a dependency that would close a cycle.
type CycleError struct {
	Dependent  string
	Dependency string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s depends on %s", e.Dependent, e.Dependency)
}

// IsCycleError checks if an error is a CycleError.
func IsCycleError(err error) bool {
	var target *CycleError
	return errors.As(err, &target)
}

// ServiceDependencyGraph models dependencies between services.
// Edge direction: dependency -> dependent (i.e., B -> A means A depends on B).
type ServiceDependencyGraph struct {
	mu       sync.RWMutex
	g        graph.Graph[string, string]
	external map[string]struct{}
}

// NewServiceDependencyGraph creates a new, empty dependency graph.
func NewServiceDependencyGraph() *ServiceDependencyGraph {
	return &ServiceDependencyGraph{
		g:        graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
		external: make(map[string]struct{}),
	}
}

// AddService ensures a service exists in the graph.
func (sdg *ServiceDependencyGraph) AddService(serviceName string) error {
	if serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	sdg.mu.Lock()
	defer sdg.mu.Unlock()

	return sdg.addVertex(serviceName)
}

func (sdg *ServiceDependencyGraph) addVertex(name string) error {
	if err := sdg.g.AddVertex(name); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	return nil
}

// AddDependency adds a dependency relationship where `dependent` depends on `dependency`.
// This creates an edge: dependency -> dependent.
func (sdg *ServiceDependencyGraph) AddDependency(dependent, dependency string) error {
	if dependent == "" || dependency == "" {
		return fmt.Errorf("dependent and dependency must be non-empty")
	}
	if dependent == dependency {
		return fmt.Errorf("self-dependency is not allowed: %s", dependent)
	}

	sdg.mu.Lock()
	defer sdg.mu.Unlock()

	if err := sdg.addVertex(dependent); err != nil {
		return err
	}
	if err := sdg.addVertex(dependency); err != nil {
		return err
	}

	err := sdg.g.AddEdge(dependency, dependent)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return &CycleError{Dependent: dependent, Dependency: dependency}
	default:
		return err
	}
}

// GetDependencies returns the services that the given service depends on.
func (sdg *ServiceDependencyGraph) GetDependencies(serviceName string) ([]string, error) {
	sdg.mu.RLock()
	defer sdg.mu.RUnlock()

	preds, err := sdg.g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	deps, ok := preds[serviceName]
	if !ok {
		return nil, fmt.Errorf("unknown service: %s", serviceName)
	}
	return slices.Sorted(maps.Keys(deps)), nil
}

// GetDependents returns the services that depend on the given service.
func (sdg *ServiceDependencyGraph) GetDependents(serviceName string) ([]string, error) {
	sdg.mu.RLock()
	defer sdg.mu.RUnlock()

	succs, err := sdg.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	deps, ok := succs[serviceName]
	if !ok {
		return nil, fmt.Errorf("unknown service: %s", serviceName)
	}
	return slices.Sorted(maps.Keys(deps)), nil
}

// GetTopologicalOrder returns services in topological order (dependencies
// first) with lexical tie-breaking.
func (sdg *ServiceDependencyGraph) GetTopologicalOrder() ([]string, error) {
	sdg.mu.RLock()
	defer sdg.mu.RUnlock()

	return graph.StableTopologicalSort(sdg.g, func(a, b string) bool { return a < b })
}

// External returns the dependencies named by the batch that no unit in the
// batch provides.
func (sdg *ServiceDependencyGraph) External() []string {
	sdg.mu.RLock()
	defer sdg.mu.RUnlock()

	if len(sdg.external) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(sdg.external))
}

// BuildServiceDependencyGraph builds a dependency graph for the containers
// in a batch. Dependencies on services outside the batch are recorded as
// external and do not constrain the order.
func BuildServiceDependencyGraph(inputs []quadlet.Input) (*ServiceDependencyGraph, error) {
	sdg := NewServiceDependencyGraph()

	containers := containersOf(inputs)
	for _, c := range containers {
		if err := sdg.AddService(quadlet.ServiceKey(c)); err != nil {
			return nil, fmt.Errorf("failed to add service %s: %w", c.Name, err)
		}
	}

	known := make(map[string]bool, len(containers))
	for _, c := range containers {
		known[quadlet.ServiceKey(c)] = true
	}

	for _, c := range containers {
		service := quadlet.ServiceKey(c)
		for _, dep := range quadlet.DependsOn(c) {
			if !known[dep] {
				sdg.external[dep] = struct{}{}
				continue
			}
			if err := sdg.AddDependency(service, dep); err != nil {
				return nil, fmt.Errorf("failed to add dependency %s -> %s: %w", service, dep, err)
			}
		}
	}

	return sdg, nil
}

// kindRank orders kinds so that the resources a container refers to come
// before it.
var kindRank = map[quadlet.Kind]int{
	quadlet.KindNetwork:   0,
	quadlet.KindVolume:    1,
	quadlet.KindImage:     2,
	quadlet.KindPod:       3,
	quadlet.KindContainer: 4,
	quadlet.KindKube:      5,
}

// Order returns the batch sorted by kind, with containers in dependency
// order. Inputs of the same kind and service keep their relative order.
func Order(inputs []quadlet.Input) ([]quadlet.Input, *ServiceDependencyGraph, error) {
	sdg, err := BuildServiceDependencyGraph(inputs)
	if err != nil {
		return nil, nil, err
	}

	services, err := sdg.GetTopologicalOrder()
	if err != nil {
		return nil, nil, err
	}
	position := make(map[string]int, len(services))
	for i, s := range services {
		position[s] = i
	}

	out := slices.Clone(inputs)
	slices.SortStableFunc(out, func(a, b quadlet.Input) int {
		if d := kindRank[a.Kind] - kindRank[b.Kind]; d != 0 {
			return d
		}
		if a.Kind != quadlet.KindContainer || a.Container == nil || b.Container == nil {
			return 0
		}
		return position[quadlet.ServiceKey(a.Container)] - position[quadlet.ServiceKey(b.Container)]
	})

	return out, sdg, nil
}

func containersOf(inputs []quadlet.Input) []*quadlet.ContainerInspection {
	var out []*quadlet.ContainerInspection
	for _, in := range inputs {
		if in.Kind == quadlet.KindContainer && in.Container != nil {
			out = append(out, in.Container)
		}
	}
	return out
}
