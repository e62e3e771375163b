package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeySessionID   = "session_id"
	KeyCombination = "combination"
	KeyComboIndex  = "combo_index"
	KeySetting     = "setting"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyExitCode    = "exit_code"
	KeyPID         = "pid"
	KeyPath        = "path"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SessionID(id string) slog.Attr    { return slog.String(KeySessionID, id) }
func Combination(c string) slog.Attr   { return slog.String(KeyCombination, c) }
func ComboIndex(i int) slog.Attr       { return slog.Int(KeyComboIndex, i) }
func Setting(id string) slog.Attr      { return slog.String(KeySetting, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func ExitCode(code int) slog.Attr      { return slog.Int(KeyExitCode, code) }
func PID(pid int) slog.Attr            { return slog.Int(KeyPID, pid) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
