package commands

import (
	"fmt"
	"io"

	"github.com/benvon/moodhome/internal/config"
	"github.com/benvon/moodhome/internal/database"
)

// openStore opens the database named by DATABASE_URL. The returned close
// function reports failures to w.
func openStore(w io.Writer) (*database.DB, *config.Config, func(), error) {
	cfg, err := config.LoadTools()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			_, _ = fmt.Fprintf(w, "Warning: failed to close database: %v\n", err)
		}
	}
	return db, cfg, closeFn, nil
}
