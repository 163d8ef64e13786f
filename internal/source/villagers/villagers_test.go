package villagers

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
)

func write(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newDir(root string) *Directory {
	return New(Config{Root: root, Logger: slog.New(slog.DiscardHandler)})
}

func TestSources_FindsMarkerFilesRecursively(t *testing.T) {
	// Given: two island directories at different depths and one without a marker
	root := t.TempDir()
	write(t, filepath.Join(root, "Cove", "villagers.txt"), []byte("Raymond, Marshal"))
	write(t, filepath.Join(root, "archive", "2024", "Beach", "VILLAGERS.TXT"), []byte("Raymond"))
	write(t, filepath.Join(root, "Empty", "notes.txt"), []byte("Not a villager"))

	// When: listing sources
	sources, err := newDir(root).Sources(context.Background())

	// Then: each marker directory is one location
	require.NoError(t, err)
	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"Cove", "Beach"}, names)
}

func TestBuild_MergesVillagersAcrossDirectories(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "Cove", "villagers.txt"), []byte("Raymond,\nMarshal\r\n\r\n, raymond"))
	write(t, filepath.Join(root, "Beach", "villagers.txt"), []byte("RAYMOND"))
	b := index.NewBuilder(index.WithRetry(boterrors.RetryConfig{}), index.WithLogger(slog.New(slog.DiscardHandler)))

	snap, err := b.Build(context.Background(), newDir(root))

	require.NoError(t, err)
	locs, ok := snap.Lookup("raymond")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"Cove", "Beach"}, locs)
	assert.Equal(t, 2, snap.Len())
}

func TestBuild_DropsOverlongEntries(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "Cove", "villagers.txt"),
		[]byte("Raymond\nThis island had a lovely festival last weekend"))
	b := index.NewBuilder(index.WithRetry(boterrors.RetryConfig{}), index.WithLogger(slog.New(slog.DiscardHandler)))

	snap, err := b.Build(context.Background(), newDir(root))

	require.NoError(t, err)
	assert.Equal(t, []string{"raymond"}, snap.Keys())
}

func TestSources_MissingRoot(t *testing.T) {
	_, err := newDir(filepath.Join(t.TempDir(), "missing")).Sources(context.Background())

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeSourceNotFound, boterrors.GetCode(err))
}

func TestSources_CancelledContext(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "Cove", "villagers.txt"), []byte("Raymond"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newDir(root).Sources(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"plain utf-8", []byte("Raymond, Étoile"), "Raymond, Étoile"},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "Raymond"...), "Raymond"},
		{"utf-16le bom", []byte{0xFF, 0xFE, 'A', 0, 'n', 0, 'n', 0}, "Ann"},
		{"utf-16be bom", []byte{0xFE, 0xFF, 0, 'B', 0, 'o', 0, 'b'}, "Bob"},
		{"invalid bytes dropped", []byte("Ray\xffmond"), "Raymond"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.raw))
		})
	}
}

func TestParseNames(t *testing.T) {
	assert.Equal(t, []string{"Raymond", "Marshal", "Ankha"}, ParseNames(" Raymond ,Marshal\r\n\n Ankha,, "))
	assert.Empty(t, ParseNames(" , \n"))
}

func TestIsMarker(t *testing.T) {
	d := New(Config{Root: "/x"})

	assert.True(t, d.IsMarker("Villagers.TXT"))
	assert.False(t, d.IsMarker("villagers.csv"))
	assert.Equal(t, DefaultMarkerFile, d.MarkerFile())
}
