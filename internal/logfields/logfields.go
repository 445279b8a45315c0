package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyAssetName  = "asset_name"
	KeyAssetID    = "asset_id"
	KeyAssetType  = "asset_type"
	KeySourceKind = "source_kind"
	KeyStrategy   = "strategy"
	KeyPath       = "path"
	KeyVersion    = "version"
	KeyCacheKey   = "cache_key"
	KeyCacheHit   = "cache_hit"
	KeySessionID  = "session_id"
	KeyDurationMS = "duration_ms"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func AssetName(n string) slog.Attr  { return slog.String(KeyAssetName, n) }
func AssetID(id string) slog.Attr   { return slog.String(KeyAssetID, id) }
func AssetType(t string) slog.Attr  { return slog.String(KeyAssetType, t) }
func SourceKind(k string) slog.Attr { return slog.String(KeySourceKind, k) }
func Strategy(s string) slog.Attr   { return slog.String(KeyStrategy, s) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Version(v string) slog.Attr    { return slog.String(KeyVersion, v) }
func CacheKey(k string) slog.Attr   { return slog.String(KeyCacheKey, k) }
func CacheHit(hit bool) slog.Attr   { return slog.Bool(KeyCacheHit, hit) }
func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }
func Method(m string) slog.Attr     { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr     { return slog.Int(KeyStatus, code) }
func Count(n int) slog.Attr         { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
