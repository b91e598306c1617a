package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID       = "run_id"
	KeyVersion     = "version"
	KeyTag         = "tag"
	KeyStep        = "step"
	KeyPath        = "path"
	KeyFile        = "file"
	KeyPlaceholder = "placeholder"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeyURL         = "url"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Tag(t string) slog.Attr          { return slog.String(KeyTag, t) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Placeholder(p string) slog.Attr  { return slog.String(KeyPlaceholder, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
