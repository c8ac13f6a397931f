package logger

import "log/slog"

// Error returns the canonical attribute for error values.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Component names the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// UserID tags records with the acting user.
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// SessionID tags records with the session the request rode in on.
func SessionID(id string) slog.Attr {
	return slog.String("session_id", id)
}
