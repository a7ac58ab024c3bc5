package postgres

import (
	// Register the "postgres" (lib/pq) and "pgx" database/sql drivers.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)
