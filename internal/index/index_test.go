package index

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, tables ...*Table) *Snapshot {
	t.Helper()
	snap, err := newTestBuilder().Build(context.Background(), NewStaticProvider("test", tables...))
	require.NoError(t, err)
	return snap
}

func TestIndex_EmptyUntilInstall(t *testing.T) {
	idx := New("items")

	assert.Nil(t, idx.Current())
	assert.False(t, idx.Ready())
	assert.Equal(t, "items", idx.Name())
}

func TestIndex_InstallReturnsPrevious(t *testing.T) {
	idx := New("items")
	first := build(t, table("A", "Wand"))
	second := build(t, table("B", "Fossil"))

	assert.Nil(t, idx.Install(first))
	assert.Same(t, first, idx.Install(second))
	assert.Same(t, second, idx.Current())
}

func TestIndex_InstallNilKeepsCurrent(t *testing.T) {
	idx := New("items")
	snap := build(t, table("A", "Wand"))
	idx.Install(snap)

	idx.Install(nil)

	assert.Same(t, snap, idx.Current())
}

func TestIndex_HeldSnapshotSurvivesSwap(t *testing.T) {
	// Given: a reader holding snapshot N
	idx := New("items")
	idx.Install(build(t, table("Harv's Island", "Lucky Cat")))
	held := idx.Current()

	// When: snapshot N+1 is installed
	idx.Install(build(t, table("Dom's Island", "Wand")))

	// Then: the held snapshot still answers from N's data
	locs, ok := held.Lookup("lucky cat")
	require.True(t, ok)
	assert.Equal(t, []string{"Harv's Island"}, locs)
	_, ok = held.Lookup("wand")
	assert.False(t, ok)

	// And: new readers see N+1
	_, ok = idx.Current().Lookup("wand")
	assert.True(t, ok)
}

func TestIndex_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	// Given: two snapshots whose keys never overlap
	a := build(t, table("A", "a1", "a2", "a3"))
	b := build(t, table("B", "b1", "b2", "b3", "b4"))
	idx := New("items")
	idx.Install(a)

	// When: readers run while a writer flips between them
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				idx.Install(b)
			} else {
				idx.Install(a)
			}
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := idx.Current()
				// Then: every key a reader sees belongs to the snapshot it holds
				for _, key := range snap.Keys() {
					if _, ok := snap.Locations(key); !ok {
						t.Errorf("key %q missing from its own snapshot", key)
						return
					}
				}
				if n := snap.Len(); n != 3 && n != 4 {
					t.Errorf("unexpected snapshot size %d", n)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSnapshot_LocationsReturnsCopy(t *testing.T) {
	snap := build(t, table("A", "Wand"))

	locs, _ := snap.Locations("wand")
	locs[0] = "mutated"

	again, _ := snap.Locations("wand")
	assert.Equal(t, []string{"A"}, again)
}

func TestSnapshot_NilIsSafe(t *testing.T) {
	var snap *Snapshot

	assert.Equal(t, 0, snap.Len())
	assert.Nil(t, snap.Keys())
	assert.Equal(t, uint64(0), snap.Version())
	_, ok := snap.Lookup("wand")
	assert.False(t, ok)
}
