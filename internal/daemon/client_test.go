package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

func TestClient_NotRunning(t *testing.T) {
	client := NewClient(Config{SocketPath: testSocketPath(t), Timeout: time.Second})

	assert.False(t, client.IsRunning())
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeControlSocket, boterrors.GetCode(err))
}

func TestClient_Ping(t *testing.T) {
	client := serve(t, nil)

	assert.NoError(t, client.Ping(context.Background()))
}

func TestClient_FindExactHit(t *testing.T) {
	// Given: a running bot with Harv's and Dom's islands loaded
	client := serve(t, newBotCore(t, true).service)

	// When: finding an item both islands carry
	res, err := client.Find(context.Background(), "  LUCKY cat ")

	// Then: the structured result and chat line come back
	require.NoError(t, err)
	assert.Equal(t, resolve.ExactHit, res.Kind)
	assert.Equal(t, "lucky cat", res.Name)
	assert.Equal(t, []string{"HARV'S ISLAND", "DOM'S ISLAND"}, res.Locations)
	assert.Equal(t, "Found LUCKY CAT on: HARV'S ISLAND | DOM'S ISLAND", res.Text)
}

func TestClient_FindSuggestions(t *testing.T) {
	client := serve(t, newBotCore(t, true).service)

	res, err := client.Find(context.Background(), "luky cat")

	require.NoError(t, err)
	assert.Equal(t, resolve.Suggestions, res.Kind)
	assert.Equal(t, []index.Suggestion{{Key: "lucky cat", Score: 94}}, res.Candidates)
	assert.Equal(t, `Couldn't find "luky cat" - Did you mean: lucky cat?`, res.Text)
}

func TestClient_FindBeforeLoad(t *testing.T) {
	client := serve(t, newBotCore(t, false).service)

	_, err := client.Find(context.Background(), "wand")

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ErrCodeIndexLoading, rpcErr.Code)
}

func TestClient_FindRejectsBlankQuery(t *testing.T) {
	client := NewClient(Config{SocketPath: testSocketPath(t)})

	_, err := client.Find(context.Background(), " ")

	assert.ErrorContains(t, err, "query is required")
}

func TestClient_StatusAndRefresh(t *testing.T) {
	core := newBotCore(t, false)
	client := serve(t, core.service)

	// Before the first build the index is uninitialized
	st, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Indexes, 1)
	assert.Equal(t, refresh.StateUninitialized, st.Indexes[0].State)
	assert.Equal(t, []string{"console"}, st.Platforms)

	// A refresh loads it
	out, err := client.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, out.Items)
	assert.Empty(t, out.Error)
	assert.Equal(t, "✅ Refresh complete. 2 items loaded.", out.Text)

	st, err = client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, refresh.StateReady, st.Indexes[0].State)
	assert.Equal(t, 2, st.Indexes[0].Items)
}

func TestClient_RefreshFailureKeepsData(t *testing.T) {
	core := newBotCore(t, true)
	client := serve(t, core.service)
	core.provider.Items = []index.RawSource{index.StaticSource{
		Table: &index.Table{Location: "Harv's Island"},
		Err:   boterrors.SourceError("Harv's Island", nil),
	}}

	out, err := client.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, out.Items)
	assert.NotEmpty(t, out.Error)
	assert.Equal(t, "⚠️ Refresh failed. Still serving 2 items.", out.Text)
}
