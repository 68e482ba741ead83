// Package steps provides step definitions and dependency checks for the
// artifacts a plan run produces.
package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	dbpkg "github.com/thanadol-git/plate-planner/internal/db"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
	Optional     []string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	dbpkg.StepPlateLayout: {
		Name:     dbpkg.StepPlateLayout,
		Category: dbpkg.CategoryPlate,
	},
	dbpkg.StepWarnings: {
		Name:         dbpkg.StepWarnings,
		Category:     dbpkg.CategoryPlate,
		Dependencies: []string{dbpkg.StepPlateLayout},
	},
	dbpkg.StepInjectionSequence: {
		Name:         dbpkg.StepInjectionSequence,
		Category:     dbpkg.CategorySequence,
		Dependencies: []string{dbpkg.StepPlateLayout},
	},
	dbpkg.StepEvosepTable: {
		Name:         dbpkg.StepEvosepTable,
		Category:     dbpkg.CategorySequence,
		Dependencies: []string{dbpkg.StepInjectionSequence},
	},
	dbpkg.StepSDRFTable: {
		Name:         dbpkg.StepSDRFTable,
		Category:     dbpkg.CategorySequence,
		Dependencies: []string{dbpkg.StepInjectionSequence},
	},
	dbpkg.StepSampleOrderCSV: {
		Name:         dbpkg.StepSampleOrderCSV,
		Category:     dbpkg.CategoryExport,
		Dependencies: []string{dbpkg.StepInjectionSequence},
	},
	dbpkg.StepSDRFTSV: {
		Name:         dbpkg.StepSDRFTSV,
		Category:     dbpkg.CategoryExport,
		Dependencies: []string{dbpkg.StepSDRFTable},
	},
	dbpkg.StepExportManifest: {
		Name:         dbpkg.StepExportManifest,
		Category:     dbpkg.CategoryExport,
		Dependencies: []string{dbpkg.StepSampleOrderCSV, dbpkg.StepSDRFTSV},
		Optional:     []string{dbpkg.StepEvosepTable},
	},
}

// Lookup returns the definition of a step.
func Lookup(name string) (StepDefinition, bool) {
	def, ok := StepRegistry[name]
	return def, ok
}

// Names returns every registered step name in sorted order.
func Names() []string {
	names := make([]string, 0, len(StepRegistry))
	for name := range StepRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.MissingDependencies)
}

// ArtifactLister is the part of the run store the checks need.
type ArtifactLister interface {
	ListArtifacts(ctx context.Context, runID uuid.UUID) ([]dbpkg.ArtifactSummary, error)
}

func savedSteps(ctx context.Context, store ArtifactLister, runID uuid.UUID) (map[string]bool, error) {
	arts, err := store.ListArtifacts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	saved := make(map[string]bool, len(arts))
	for _, a := range arts {
		saved[a.Step] = true
	}
	return saved, nil
}

func missingFor(def StepDefinition, saved map[string]bool) []string {
	var missing []string
	for _, dep := range def.Dependencies {
		if !saved[dep] {
			missing = append(missing, dep)
		}
	}
	return missing
}

// ValidateDependencies checks that every required dependency of a step has
// a saved artifact for the run.
func ValidateDependencies(ctx context.Context, store ArtifactLister, runID uuid.UUID, stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	saved, err := savedSteps(ctx, store, runID)
	if err != nil {
		return err
	}

	if missing := missingFor(def, saved); len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// Status summarizes the steps of a run.
type Status struct {
	Completed []string `json:"completed"`
	Available []string `json:"available"`
	Blocked   []string `json:"blocked"`
}

// GetStatus sorts every registered step into completed (artifact saved),
// available (dependencies met) and blocked.
func GetStatus(ctx context.Context, store ArtifactLister, runID uuid.UUID) (*Status, error) {
	saved, err := savedSteps(ctx, store, runID)
	if err != nil {
		return nil, err
	}

	status := &Status{Completed: []string{}, Available: []string{}, Blocked: []string{}}
	for _, name := range Names() {
		switch {
		case saved[name]:
			status.Completed = append(status.Completed, name)
		case len(missingFor(StepRegistry[name], saved)) == 0:
			status.Available = append(status.Available, name)
		default:
			status.Blocked = append(status.Blocked, name)
		}
	}
	return status, nil
}
