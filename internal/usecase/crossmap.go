package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
	"toggl-freee/internal/table"
)

// CrossMapIndex resolves a Toggl (project, tags) pair to a freee destination.
// It is built from one snapshot of the mapping table and never changes.
type CrossMapIndex struct {
	projects map[int64]*projectMapping
}

type projectMapping struct {
	byTag    map[int64]domain.Destination
	wildcard *domain.Destination
}

// BuildCrossMapIndex indexes the mapping rows. When a (project, tag) pair
// appears more than once the later row wins.
func BuildCrossMapIndex(entries []domain.CrossMapEntry) *CrossMapIndex {
	idx := &CrossMapIndex{projects: make(map[int64]*projectMapping)}
	for _, e := range entries {
		pm := idx.projects[e.SourceProjectID]
		if pm == nil {
			pm = &projectMapping{byTag: make(map[int64]domain.Destination)}
			idx.projects[e.SourceProjectID] = pm
		}
		if e.SourceTagID == nil {
			d := e.Destination
			pm.wildcard = &d
			continue
		}
		pm.byTag[*e.SourceTagID] = e.Destination
	}
	return idx
}

// Resolve returns the mapping of the first tag, in the entry's order, that has
// one; otherwise the project's wildcard row; otherwise the zero Destination.
func (x *CrossMapIndex) Resolve(projectID int64, tagIDs []int64) domain.Destination {
	pm := x.projects[projectID]
	if pm == nil {
		return domain.Destination{}
	}
	for _, id := range tagIDs {
		if d, ok := pm.byTag[id]; ok {
			return d
		}
	}
	if pm.wildcard != nil {
		return *pm.wildcard
	}
	return domain.Destination{}
}

// Projects is the number of Toggl projects with at least one mapping row.
func (x *CrossMapIndex) Projects() int { return len(x.projects) }

// LoadCrossMapIndex builds the index from the live mapping table. A missing
// table yields an empty index: every row of the report stays unmapped.
func LoadCrossMapIndex(ctx context.Context, store ports.TableStore, name string, log *slog.Logger) (*CrossMapIndex, error) {
	t, err := store.ReadTable(ctx, name)
	if errors.Is(err, ports.ErrTableNotFound) {
		log.Warn("mapping table not found; report rows will be unmapped", slog.String("table", name))
		return BuildCrossMapIndex(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mapping table %s: %w", name, err)
	}
	entries, err := table.DecodeCrossMap(t)
	if err != nil {
		return nil, fmt.Errorf("mapping table %s: %w", name, err)
	}
	idx := BuildCrossMapIndex(entries)
	log.Debug("mapping table loaded", slog.String("table", name), slog.Int("rows", len(entries)), slog.Int("projects", idx.Projects()))
	return idx, nil
}
