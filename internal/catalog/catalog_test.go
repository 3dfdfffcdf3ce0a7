package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tripnav/internal/model"
)

func testDestinations() []model.Destination {
	return []model.Destination{
		{ID: 1, Name: "Castle", Fare: 1000, StayTime: 60},
		{ID: 2, Name: "Hotel", Fare: 4000, IsHotel: true},
	}
}

func TestBuildEmptyArea(t *testing.T) {
	_, err := Build("nowhere", nil, nil, nil, DefaultOptions())
	require.ErrorIs(t, err, ErrAreaNotFound)

	// Only-invalid destination lists count as empty too.
	_, err = Build("nowhere", []model.Destination{{ID: 0, Name: "bad"}, {ID: -3}}, nil, nil, DefaultOptions())
	require.ErrorIs(t, err, ErrAreaNotFound)
}

func TestBuildSkipsInvalidAndDuplicateDestinations(t *testing.T) {
	dests := append(testDestinations(),
		model.Destination{ID: 0, Name: "reserved"},
		model.Destination{ID: 1, Name: "dup"},
		model.Destination{ID: -1, Name: "negative"},
	)
	idx, err := Build("osaka", dests, nil, nil, DefaultOptions())
	require.NoError(t, err)

	nDest, _, _, _ := idx.Size()
	require.Equal(t, 2, nDest)
	d, ok := idx.ByID(1)
	require.True(t, ok)
	require.Equal(t, "Castle", d.Name)
}

func TestBuildFiltersEdgesToArea(t *testing.T) {
	transport := []model.TransportRecord{
		{StartDestinationID: 1, EndDestinationID: 2, Fare: 100, TimeMinutes: 20, Method: "train"},
		{StartDestinationID: 1, EndDestinationID: 99, Fare: 100, TimeMinutes: 20, Method: "train"},
		{StartDestinationID: 99, EndDestinationID: 2, Fare: 100, TimeMinutes: 20, Method: "train"},
	}
	idx, err := Build("osaka", testDestinations(), transport, nil, DefaultOptions())
	require.NoError(t, err)

	_, ok := idx.InterEdge(1, 2)
	require.True(t, ok)
	_, ok = idx.InterEdge(1, 99)
	require.False(t, ok)
	_, nEdges, _, _ := idx.Size()
	require.Equal(t, 1, nEdges)
}

func TestSymmetricDepotReturn(t *testing.T) {
	depot := []model.TransportRecord{
		{StartDestinationID: 0, EndDestinationID: 1, Fare: 200, TimeMinutes: 30, Method: "train"},
	}
	opts := DefaultOptions()
	opts.SymmetricDepotReturn = true
	idx, err := Build("osaka", testDestinations(), nil, depot, opts)
	require.NoError(t, err)

	e, ok := idx.ReturnEdge(1)
	require.True(t, ok)
	require.Equal(t, 200, e.Fare)
	require.Equal(t, 30, e.TimeMinutes)

	// Without derivation the outbound table yields no return edges.
	opts.SymmetricDepotReturn = false
	idx, err = Build("osaka", testDestinations(), nil, depot, opts)
	require.NoError(t, err)
	_, ok = idx.ReturnEdge(1)
	require.False(t, ok)
}

func TestExplicitReturnBeatsDerived(t *testing.T) {
	opts := DefaultOptions()
	for _, depot := range [][]model.TransportRecord{
		{
			{StartDestinationID: 0, EndDestinationID: 1, Fare: 200, TimeMinutes: 30, Method: "train"},
			{StartDestinationID: 1, EndDestinationID: 0, Fare: 350, TimeMinutes: 45, Method: "bus"},
		},
		{
			// Same records, explicit row first.
			{StartDestinationID: 1, EndDestinationID: 0, Fare: 350, TimeMinutes: 45, Method: "bus"},
			{StartDestinationID: 0, EndDestinationID: 1, Fare: 200, TimeMinutes: 30, Method: "train"},
		},
	} {
		idx, err := Build("osaka", testDestinations(), nil, depot, opts)
		require.NoError(t, err)
		e, ok := idx.ReturnEdge(1)
		require.True(t, ok)
		require.Equal(t, 350, e.Fare)
		require.Equal(t, "bus", e.Method)
	}
}

func TestDepotLookups(t *testing.T) {
	depot := []model.TransportRecord{
		{StartDestinationID: 0, EndDestinationID: 1, Fare: 200, TimeMinutes: 30, Method: "train"},
	}
	opts := DefaultOptions()
	opts.Depot = model.Destination{ID: 77, Name: "Hub"}
	idx, err := Build("osaka", testDestinations(), nil, depot, opts)
	require.NoError(t, err)

	// The configured depot id is always forced to the reserved id.
	d, ok := idx.ByID(DepotID)
	require.True(t, ok)
	require.Equal(t, "Hub", d.Name)
	require.Equal(t, DepotID, d.ID)
	require.Equal(t, DepotID, idx.Depot().ID)

	// Edge dispatches to the origin table when starting at the depot.
	e, ok := idx.Edge(DepotID, 1)
	require.True(t, ok)
	require.Equal(t, 200, e.Fare)
	_, ok = idx.Edge(DepotID, 2)
	require.False(t, ok)

	// InterEdge never consults the origin table.
	_, ok = idx.InterEdge(DepotID, 1)
	require.False(t, ok)
}

func TestDestinationsReturnsCopy(t *testing.T) {
	idx, err := Build("osaka", testDestinations(), nil, nil, DefaultOptions())
	require.NoError(t, err)

	a := idx.Destinations()
	a[0], a[1] = a[1], a[0]
	b := idx.Destinations()
	require.Equal(t, "Castle", b[0].Name)
}
