package mcp

import (
	"github.com/Aman-CERP/treasurebot/internal/index"
)

// FindItemInput defines the input schema for the find_item tool.
type FindItemInput struct {
	Query string `json:"query" jsonschema:"the item name to look up, typos allowed"`
}

// FindItemOutput defines the output schema for the find_item tool.
type FindItemOutput struct {
	Kind        string             `json:"kind" jsonschema:"exact, suggestions or no_match"`
	Query       string             `json:"query" jsonschema:"the query as received"`
	Name        string             `json:"name,omitempty" jsonschema:"matched item name for exact hits"`
	Locations   []string           `json:"locations,omitempty" jsonschema:"islands or villages that have the item"`
	Suggestions []index.Suggestion `json:"suggestions,omitempty" jsonschema:"close item names, best first"`
	Text        string             `json:"text" jsonschema:"the reply the chat bot would send"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Ready     bool          `json:"ready" jsonschema:"true once the item database has data"`
	Uptime    string        `json:"uptime,omitempty"`
	Platforms []string      `json:"platforms,omitempty" jsonschema:"connected chat platforms"`
	Indexes   []IndexDetail `json:"indexes"`
}

// IndexDetail describes one index.
type IndexDetail struct {
	Name        string `json:"name"`
	State       string `json:"state" jsonschema:"uninitialized, loading or ready"`
	Items       int    `json:"items"`
	Sources     int    `json:"sources"`
	Skipped     int    `json:"skipped"`
	LastUpdated string `json:"last_updated,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	Refreshing  bool   `json:"refreshing"`
}

// RefreshIndexInput defines the input schema for the refresh_index tool (no parameters).
type RefreshIndexInput struct{}

// RefreshIndexOutput defines the output schema for the refresh_index tool.
type RefreshIndexOutput struct {
	Items int    `json:"items" jsonschema:"items in the main database after the refresh"`
	Error string `json:"error,omitempty" jsonschema:"set when some index kept its previous data"`
	Text  string `json:"text"`
}
