package joint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/threedframe/pkg/fixture"
	"go.uber.org/zap"
)

// ErrMaxIterations is the cause of a ConflictResolutionError when the
// extension loop hits its iteration limit.
var ErrMaxIterations = errors.New("joint: conflict resolution did not converge")

// ConflictResolutionError reports fixtures that could not be separated.
type ConflictResolutionError struct {
	Vertex     string
	Fixtures   []string
	Iterations int
	Cause      error
}

func (e *ConflictResolutionError) Error() string {
	return fmt.Sprintf("joint %s: unresolved fixture conflict between [%s] after %d iterations: %v",
		e.Vertex, strings.Join(e.Fixtures, ", "), e.Iterations, e.Cause)
}

func (e *ConflictResolutionError) Unwrap() error { return e.Cause }

// Intersections maps each intersected fixture to the fixtures whose shell
// enters its hole.
type Intersections map[*fixture.Fixture][]*fixture.Fixture

// Intersected returns the intersected fixtures ordered by name.
func (in Intersections) Intersected() []*fixture.Fixture {
	out := make([]*fixture.Fixture, 0, len(in))
	for f, by := range in {
		if len(by) > 0 {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// FindIntersections tests every pair of fixtures in both directions: B is
// intersected by A when A's SHELL mesh crosses B's HOLE mesh. With the
// angular prefilter enabled, pairs further apart than the threshold are
// not tested.
func (a *Assembler) FindIntersections(fixtures []*fixture.Fixture) (Intersections, error) {
	cfg := a.Config.Conflict
	out := make(Intersections)
	for i, fa := range fixtures {
		for _, fb := range fixtures[i+1:] {
			if cfg.Prefilter && fa.AngleBetween(fb) > cfg.AngleThreshold {
				continue
			}
			ab, err := shellHitsHole(fa, fb)
			if err != nil {
				return nil, err
			}
			if ab {
				out[fb] = append(out[fb], fa)
			}
			ba, err := shellHitsHole(fb, fa)
			if err != nil {
				return nil, err
			}
			if ba {
				out[fa] = append(out[fa], fb)
			}
		}
	}
	return out, nil
}

func shellHitsHole(a, b *fixture.Fixture) (bool, error) {
	shell, ok := a.Mesh(fixture.Shell)
	if !ok {
		return false, fmt.Errorf("joint: %s has no %s mesh", a.Name(), fixture.Shell)
	}
	hole, ok := b.Mesh(fixture.Hole)
	if !ok {
		return false, fmt.Errorf("joint: %s has no %s mesh", b.Name(), fixture.Hole)
	}
	return shell.Intersects(hole), nil
}

// ResolveConflicts extends intersected fixtures by the configured step
// until no fixture's hole is entered by another's shell. It fails with a
// *ConflictResolutionError when a fixture would no longer fit its edge or
// the iteration limit is reached.
func (a *Assembler) ResolveConflicts(ctx context.Context, fixtures []*fixture.Fixture) error {
	step := a.Config.Conflict.Step
	if step <= 0 {
		step = 1
	}
	limit := a.Config.Conflict.MaxIterations

	for iter := 0; ; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		hits, err := a.FindIntersections(fixtures)
		if err != nil {
			return err
		}
		intersected := hits.Intersected()
		if len(intersected) == 0 {
			if iter > 0 {
				a.Logger.Info("fixture conflicts resolved", zap.Int("iterations", iter))
			}
			return nil
		}
		if limit > 0 && iter >= limit {
			return &ConflictResolutionError{
				Vertex:     a.Vertex.Label,
				Fixtures:   fixtureNames(intersected),
				Iterations: iter,
				Cause:      ErrMaxIterations,
			}
		}
		for _, f := range intersected {
			a.Logger.Warn("fixture intersected, extending",
				zap.String("fixture", f.Name()),
				zap.Strings("by", fixtureNames(hits[f])),
				zap.Float64("height", f.ExtrusionHeight),
				zap.Float64("step", step))
			if err := f.Extend(step); err != nil {
				return &ConflictResolutionError{
					Vertex:     a.Vertex.Label,
					Fixtures:   fixtureNames(append([]*fixture.Fixture{f}, hits[f]...)),
					Iterations: iter + 1,
					Cause:      err,
				}
			}
		}
	}
}
