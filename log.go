package carmine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
)

const maxLoggedBytes = 64

func (db *engine) logInfo(msg string, args ...any) {
	if db.logger != nil {
		db.logger.Info(msg, append([]any{"store", db.Name()}, args...)...)
	}
}

func (db *engine) logError(msg string, err error, args ...any) {
	if db.logger != nil {
		db.logger.Error(msg, append([]any{"store", db.Name(), "err", err}, args...)...)
	}
}

// logOp logs a single table operation in verbose mode, e.g. "db: PUT".
func (db *engine) logOp(op, table string, key Key, value Value) {
	if !db.verbose || db.logger == nil || !db.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{"table", table, "key", loggableKey(key)}
	if value != nil {
		attrs = append(attrs, "value", loggableValue(value))
	}
	db.logger.Debug("db: "+op, attrs...)
}

func loggableKey(k Key) string {
	switch k := k.(type) {
	case nil:
		return "<none>"
	case Text:
		return strconv.Quote(string(k))
	case Int64:
		return strconv.FormatInt(int64(k), 10)
	case Number:
		return k.String()
	case Bytes:
		return truncatedHex(k)
	default:
		return "?"
	}
}

func loggableValue(v Value) string {
	switch v := v.(type) {
	case nil:
		return "<none>"
	case Text:
		return strconv.Quote(string(v))
	case Int64:
		return strconv.FormatInt(int64(v), 10)
	case Number:
		return v.String()
	case Structured:
		var decoded any
		if err := v.Unmarshal(&decoded); err == nil {
			if raw, err := json.Marshal(decoded); err == nil && len(raw) <= 4*maxLoggedBytes {
				return string(raw)
			}
		}
		return truncatedHex(v)
	case Opaque:
		return "<opaque>"
	case Bytes:
		return truncatedHex(v)
	default:
		return "?"
	}
}

func truncatedHex(b []byte) string {
	if len(b) > maxLoggedBytes {
		return hexstr(b[:maxLoggedBytes]) + "..."
	}
	return hexstr(b)
}
