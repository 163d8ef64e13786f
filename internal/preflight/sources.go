package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Aman-CERP/treasurebot/internal/source/csvdir"
	"github.com/Aman-CERP/treasurebot/internal/source/villagers"
)

// CheckSources fails when no location source is configured at all.
func (c *Checker) CheckSources() CheckResult {
	result := CheckResult{
		Name:     "sources",
		Required: true,
	}
	if c.cfg == nil || !c.cfg.HasSources() {
		result.Status = StatusFail
		result.Message = "no workbook, villager root or CSV directory configured"
		result.Details = "Set WORKBOOK_NAME, VILLAGERS_ROOT or csv.dir"
		return result
	}

	var names []string
	if c.cfg.HasWorkbook() {
		names = append(names, "workbook")
	}
	if c.cfg.Villagers.Root != "" {
		names = append(names, "villagers")
	}
	if c.cfg.CSV.Dir != "" {
		names = append(names, "csv")
	}
	result.Status = StatusPass
	result.Message = strings.Join(names, ", ")
	return result
}

// serviceAccountKey is the part of a Google key file the bot relies on.
type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// CheckCredentials reads the service account key used for the workbook.
func (c *Checker) CheckCredentials() CheckResult {
	result := CheckResult{
		Name:     "credentials",
		Required: true,
	}
	if c.cfg == nil || !c.cfg.HasWorkbook() {
		result.Status = StatusSkip
		result.Message = "no workbook configured"
		return result
	}

	path := c.cfg.Sheets.CredentialsFile
	data, err := os.ReadFile(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read %s", path)
		result.Details = err.Error()
		return result
	}

	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not a JSON key file", path)
		result.Details = err.Error()
		return result
	}
	if key.Type != "service_account" || key.ClientEmail == "" || key.PrivateKey == "" {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not a service account key", path)
		result.Details = "Create a key for a service account in the Google Cloud console"
		return result
	}

	result.Status = StatusPass
	result.Message = key.ClientEmail
	result.Details = "The workbook must be shared with " + key.ClientEmail
	return result
}

// CheckVillagerRoot scans the villager root the way a refresh does.
func (c *Checker) CheckVillagerRoot(ctx context.Context) CheckResult {
	result := CheckResult{Name: "villagers"}
	if c.cfg == nil || c.cfg.Villagers.Root == "" {
		result.Status = StatusSkip
		result.Message = "no villager root configured"
		return result
	}

	dir := villagers.New(villagers.Config{
		Root:       c.cfg.Villagers.Root,
		MarkerFile: c.cfg.Villagers.MarkerFile,
	})
	sources, err := dir.Sources(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot scan %s", c.cfg.Villagers.Root)
		result.Details = err.Error()
		return result
	}
	if len(sources) == 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("no %s found under %s", dir.MarkerFile(), c.cfg.Villagers.Root)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d director%s with %s", len(sources), plural(len(sources), "y", "ies"), dir.MarkerFile())
	return result
}

// CheckCSVDir lists the CSV sheets the way a refresh does.
func (c *Checker) CheckCSVDir(ctx context.Context) CheckResult {
	result := CheckResult{Name: "csv"}
	if c.cfg == nil || c.cfg.CSV.Dir == "" {
		result.Status = StatusSkip
		result.Message = "no CSV directory configured"
		return result
	}

	dir := csvdir.New(csvdir.Config{Path: c.cfg.CSV.Dir, Exclude: c.cfg.CSV.Exclude})
	sources, err := dir.Sources(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read %s", c.cfg.CSV.Dir)
		result.Details = err.Error()
		return result
	}
	if len(sources) == 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("no .csv files in %s", c.cfg.CSV.Dir)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d sheet%s", len(sources), plural(len(sources), "", "s"))
	return result
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
