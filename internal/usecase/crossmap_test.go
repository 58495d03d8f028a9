package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/table"
)

var (
	destT1       = domain.Destination{ProjectID: "500", ProjectName: "Dev", TagGroupID: "5", TagGroupName: "Phase", TagID: "51", TagName: "Design"}
	destT2       = domain.Destination{ProjectID: "500", ProjectName: "Dev", TagGroupID: "5", TagGroupName: "Phase", TagID: "52", TagName: "Build"}
	destWildcard = domain.Destination{ProjectID: "501", ProjectName: "Ops"}
)

func testIndex() *CrossMapIndex {
	return BuildCrossMapIndex([]domain.CrossMapEntry{
		{SourceProjectID: 10, SourceTagID: tagID(1), Destination: destT1},
		{SourceProjectID: 10, SourceTagID: tagID(2), Destination: destT2},
		{SourceProjectID: 10, Destination: destWildcard},
		{SourceProjectID: 20, SourceTagID: tagID(1), Destination: destT1},
	})
}

func TestResolveFirstTagWins(t *testing.T) {
	idx := testIndex()
	require.Equal(t, destT1, idx.Resolve(10, []int64{1, 2}))
	require.Equal(t, destT2, idx.Resolve(10, []int64{2, 1}))
}

func TestResolveFallsThroughToLaterTag(t *testing.T) {
	require.Equal(t, destT2, testIndex().Resolve(10, []int64{99, 2}))
}

func TestResolveFallsBackToWildcard(t *testing.T) {
	idx := testIndex()
	require.Equal(t, destWildcard, idx.Resolve(10, []int64{99}))
	require.Equal(t, destWildcard, idx.Resolve(10, nil))
}

func TestResolveEmptyWhenNothingMatches(t *testing.T) {
	idx := testIndex()
	require.True(t, idx.Resolve(20, []int64{99}).IsZero())
	require.True(t, idx.Resolve(30, []int64{1}).IsZero())
}

func TestBuildCrossMapIndexLaterRowWins(t *testing.T) {
	idx := BuildCrossMapIndex([]domain.CrossMapEntry{
		{SourceProjectID: 1, SourceTagID: tagID(1), Destination: destT1},
		{SourceProjectID: 1, SourceTagID: tagID(1), Destination: destT2},
	})
	require.Equal(t, destT2, idx.Resolve(1, []int64{1}))
}

func TestLoadCrossMapIndex(t *testing.T) {
	ctx := context.Background()

	idx, err := LoadCrossMapIndex(ctx, memTables{}, "TOGGL_FREEE_MAP", discardLog())
	require.NoError(t, err)
	require.Equal(t, 0, idx.Projects())

	mapping := table.New(table.CrossMapHeader...)
	mapping.Append("10", "", "501", "Ops", "", "", "", "")
	mapping.Append("10", "1", "500", "Dev", "5", "Phase", "51", "Design")
	idx, err = LoadCrossMapIndex(ctx, memTables{"TOGGL_FREEE_MAP": mapping}, "TOGGL_FREEE_MAP", discardLog())
	require.NoError(t, err)
	require.Equal(t, destT1, idx.Resolve(10, []int64{1}))
	require.Equal(t, destWildcard, idx.Resolve(10, []int64{2}))

	broken := table.New(table.ColTogglProjectID)
	_, err = LoadCrossMapIndex(ctx, memTables{"M": broken}, "M", discardLog())
	require.ErrorIs(t, err, table.ErrMissingColumn)
}
