package sl

import (
	"log/slog"
)

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Secret keeps the first 5 characters of a credential so logs can tell
// configured values apart without exposing them
func Secret(some string) slog.Attr {
	r := "***"
	if len([]rune(some)) > 5 {
		r = string([]rune(some)[:5]) + "***"
	}
	if some == "" {
		r = "?"
	}
	return slog.String("secret", r)
}

func Module(mod string) slog.Attr {
	return slog.String("mod", mod)
}

func User(userId string) slog.Attr {
	return slog.String("user", userId)
}
