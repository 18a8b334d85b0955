// pkg/resolve/resolver.go

// Package resolve turns a requested set of packages into an ordered,
// conflict-free operation plan. It builds the cross-backend dependency
// graph from package records, topologically sorts it, and refuses to
// guess when constraints conflict or a cycle exists. It never computes a
// backend's own internal resolution; it only orders and checks what the
// backends report.
package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/omni-pm/omni/pkg/core"
)

// Request is one caller-requested package. Backend pins the package to a
// specific backend; Constraint is an optional semver range ("">=2.0",
// "<2.0", "1.x").
type Request struct {
	Name       string
	Backend    string
	Constraint string
}

// Source supplies package records for planning. Implementations must
// honor the freshness policy: a record returned here is fresh enough to
// base install/remove decisions on.
type Source interface {
	// Lookup returns the record for a ref, querying the backend live if
	// the cache is stale.
	Lookup(ctx context.Context, ref core.PackageRef) (*core.PackageRecord, error)

	// Candidates returns the backends that can provide the named
	// package, as refs.
	Candidates(ctx context.Context, name string) ([]core.PackageRef, error)
}

// Resolver computes operation plans.
type Resolver struct {
	source   Source
	priority []string
	logger   *log.Logger
}

// New creates a resolver with the given backend priority order.
func New(source Source, priority []string, logger *log.Logger) *Resolver {
	return &Resolver{source: source, priority: priority, logger: logger}
}

// Plan resolves the requests into an ordered plan for the given step
// kind. Dependencies precede dependents for installs; for removes the
// order is inverted. Requests already satisfied produce no steps: a
// fully satisfied request yields an empty plan, not an error.
func (r *Resolver) Plan(ctx context.Context, requests []Request, kind core.StepKind) (core.OperationPlan, error) {
	constraints, err := groupConstraints(requests)
	if err != nil {
		return nil, err
	}

	g := newGraph()
	for _, req := range requests {
		ref, err := r.pickBackend(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := r.expand(ctx, g, ref, constraints); err != nil {
			return nil, err
		}
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}

	plan := make(core.OperationPlan, 0, len(order))
	for _, ref := range order {
		node := g.nodes[ref]
		if node.elided {
			continue
		}
		plan = append(plan, core.OperationStep{
			Kind:    kind,
			Target:  ref,
			Version: node.version,
		})
	}

	if kind == core.StepRemove {
		// Dependents come off before the packages they depend on.
		reverse(plan)
		plan = onlyRequested(plan, requests)
	}

	r.logger.Debug("plan resolved", "requests", len(requests), "steps", len(plan))
	return plan, nil
}

// pickBackend chooses the backend for a request: the caller's pin wins,
// then the configured priority order, then lexical backend id so that
// identical inputs always produce identical plans.
func (r *Resolver) pickBackend(ctx context.Context, req Request) (core.PackageRef, error) {
	if req.Backend != "" {
		return core.PackageRef{Name: req.Name, Backend: req.Backend}, nil
	}

	candidates, err := r.source.Candidates(ctx, req.Name)
	if err != nil {
		return core.PackageRef{}, fmt.Errorf("finding candidates for %s: %w", req.Name, err)
	}
	if len(candidates) == 0 {
		return core.PackageRef{}, fmt.Errorf("%s: %w", req.Name, ErrUnsatisfiable)
	}

	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := r.rank(candidates[i].Backend), r.rank(candidates[j].Backend)
		if pi != pj {
			return pi < pj
		}
		return candidates[i].Backend < candidates[j].Backend
	})
	return candidates[0], nil
}

// rank returns the priority index of a backend, with unlisted backends
// after all listed ones.
func (r *Resolver) rank(backend string) int {
	for i, b := range r.priority {
		if b == backend {
			return i
		}
	}
	return len(r.priority)
}

// expand adds a ref and its transitive dependencies to the graph,
// checking constraints and eliding already-satisfied packages.
func (r *Resolver) expand(ctx context.Context, g *graph, ref core.PackageRef, constraints map[string][]namedConstraint) error {
	if _, ok := g.nodes[ref]; ok {
		return nil
	}

	record, err := r.source.Lookup(ctx, ref)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", ref, err)
	}

	if err := checkConstraints(record, constraints[record.Ref.Name]); err != nil {
		return err
	}

	satisfied := record.Installed && satisfiesAll(record.Version, constraints[record.Ref.Name])
	g.add(ref, record.Version, satisfied)

	// A satisfied package's dependencies are already in place; stop here.
	if satisfied {
		return nil
	}

	for _, dep := range record.Dependencies {
		if err := r.expand(ctx, g, dep, constraints); err != nil {
			return err
		}
		g.edge(ref, dep)
	}
	return nil
}

// namedConstraint pairs a parsed constraint with its original spelling
// for error reporting.
type namedConstraint struct {
	raw    string
	parsed *semver.Constraints
}

// groupConstraints parses and groups request constraints by logical name.
func groupConstraints(requests []Request) (map[string][]namedConstraint, error) {
	grouped := make(map[string][]namedConstraint)
	for _, req := range requests {
		if req.Constraint == "" {
			continue
		}
		c, err := semver.NewConstraint(req.Constraint)
		if err != nil {
			return nil, fmt.Errorf("constraint %q for %s: %w", req.Constraint, req.Name, err)
		}
		grouped[req.Name] = append(grouped[req.Name], namedConstraint{raw: req.Constraint, parsed: c})
	}
	return grouped, nil
}

// checkConstraints verifies the backend's reported version against every
// constraint on the name. Failure names all constraints involved rather
// than picking a side.
func checkConstraints(record *core.PackageRecord, constraints []namedConstraint) error {
	if len(constraints) == 0 {
		return nil
	}
	if record.Version == "" {
		// No version to check means the constraints cannot be proven
		// satisfiable; letting them through would mask real conflicts.
		return &ConflictError{Name: record.Ref.Name, Constraints: rawConstraints(constraints)}
	}
	version, err := semver.NewVersion(record.Version)
	if err != nil {
		// Backend version schemes outside semver (apt epochs etc.) cannot
		// be constraint-checked; requesting a constraint on them is a
		// conflict with whatever is available.
		raws := rawConstraints(constraints)
		return &ConflictError{Name: record.Ref.Name, Constraints: raws, Available: record.Version}
	}
	for _, c := range constraints {
		if !c.parsed.Check(version) {
			return &ConflictError{
				Name:        record.Ref.Name,
				Constraints: rawConstraints(constraints),
				Available:   record.Version,
			}
		}
	}
	return nil
}

// satisfiesAll reports whether a version satisfies every constraint.
// A missing or non-semver version satisfies nothing unless there are no
// constraints.
func satisfiesAll(version string, constraints []namedConstraint) bool {
	if len(constraints) == 0 {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	for _, c := range constraints {
		if !c.parsed.Check(v) {
			return false
		}
	}
	return true
}

func rawConstraints(constraints []namedConstraint) []string {
	raws := make([]string, len(constraints))
	for i, c := range constraints {
		raws[i] = c.raw
	}
	return raws
}

func reverse(plan core.OperationPlan) {
	for i, j := 0, len(plan)-1; i < j; i, j = i+1, j-1 {
		plan[i], plan[j] = plan[j], plan[i]
	}
}

// onlyRequested filters a remove plan down to the refs the caller named;
// the engine never uninstalls shared dependencies implicitly.
func onlyRequested(plan core.OperationPlan, requests []Request) core.OperationPlan {
	names := make(map[string]bool, len(requests))
	for _, req := range requests {
		names[req.Name] = true
	}
	filtered := plan[:0]
	for _, step := range plan {
		if names[step.Target.Name] {
			filtered = append(filtered, step)
		}
	}
	return filtered
}
