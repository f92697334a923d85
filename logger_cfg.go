package tern

import (
	"log/slog"

	"github.com/denismitr/tern/v4/internal/logger"
)

func UseColorLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewColorLogger(p, printSql, printDebug)
		return nil
	}
}

func UseLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewBWLogger(p, printSql, printDebug)
		return nil
	}
}

// UseSlogLogger sends records to a structured logger, SQL statements are
// logged at logger.LevelSQL
func UseSlogLogger(lg *slog.Logger) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewSlogLogger(lg)
		return nil
	}
}
