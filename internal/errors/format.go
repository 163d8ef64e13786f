package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	be, ok := As(err)
	if !ok {
		be = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", be.Message)
	if be.Cause != nil && be.Cause.Error() != be.Message {
		fmt.Fprintf(&sb, "  Cause: %s\n", be.Cause)
	}
	if be.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", be.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", be.Code)
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns the JSON representation used by the control socket and HTTP API.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	be, ok := As(err)
	if !ok {
		be = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       be.Code,
		Message:    be.Message,
		Category:   string(be.Category),
		Severity:   string(be.Severity),
		Details:    be.Details,
		Suggestion: be.Suggestion,
		Retryable:  be.Retryable,
	}
	if be.Cause != nil {
		je.Cause = be.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttrs returns slog attributes describing err, for use as
// logger.Error("msg", errors.LogAttrs(err)...).
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	be, ok := As(err)
	if !ok {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", be.Code),
		slog.String("error", be.Message),
		slog.String("category", string(be.Category)),
		slog.Bool("retryable", be.Retryable),
	}
	if be.Cause != nil {
		attrs = append(attrs, slog.String("cause", be.Cause.Error()))
	}

	keys := make([]string, 0, len(be.Details))
	for k := range be.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, be.Details[k]))
	}
	return attrs
}
