package refresh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/treasurebot/internal/index"
)

func TestGroup_RefreshRunsEveryScheduler(t *testing.T) {
	// Given: an items scheduler and a villagers scheduler
	items := &switchProvider{locations: []string{"Harv's Island"}, items: []string{"Wand"}}
	villagers := &switchProvider{locations: []string{"Cove"}, items: []string{"Raymond"}}
	g := NewGroup(
		newScheduler(items, Config{}),
		New(index.New("villagers"), testBuilder(), []index.Provider{villagers}, Config{Logger: discard}),
	)

	// When: refreshing the group
	err := g.Refresh(context.Background())

	// Then: both indexes are ready
	require.NoError(t, err)
	for _, st := range g.Status() {
		assert.True(t, st.Ready(), st.Name)
	}
	assert.Equal(t, "items", g.Primary().Index().Name())
}

func TestGroup_OneFailureDoesNotBlockOthers(t *testing.T) {
	items := &switchProvider{locations: []string{"Harv's Island"}, items: []string{"Wand"}}
	villagers := &switchProvider{locations: []string{"Cove"}, items: []string{"Raymond"}}
	villagers.fail.Store(true)
	vs := New(index.New("villagers"), testBuilder(), []index.Provider{villagers}, Config{Logger: discard})
	g := NewGroup(newScheduler(items, Config{}), vs)

	err := g.Refresh(context.Background())

	require.Error(t, err)
	assert.True(t, g.Primary().Index().Ready())
	assert.False(t, vs.Index().Ready())

	found, ok := g.Find("villagers")
	require.True(t, ok)
	assert.Same(t, vs, found)
}

func TestGroup_IgnoresNilAndStops(t *testing.T) {
	s := newScheduler(&switchProvider{locations: []string{"A"}, items: []string{"Wand"}}, Config{})
	g := NewGroup(nil, s, nil)
	require.Len(t, g.Schedulers(), 1)

	g.Start(context.Background())
	g.Stop()

	assert.Nil(t, NewGroup().Primary())
}
