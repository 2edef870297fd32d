package datasource

// Database drivers register themselves with database/sql on import.
import (
	_ "github.com/go-sql-driver/mysql" // mysql
	_ "github.com/jackc/pgx/v5/stdlib" // pgx
	_ "github.com/lib/pq"              // postgres
	_ "modernc.org/sqlite"             // sqlite
)

// driverNames maps source types to database/sql driver names.
var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "postgres",
	"pgx":      "pgx",
	"mysql":    "mysql",
}

// SupportedTypes lists the source types that can be configured.
func SupportedTypes() []string {
	return []string{"sqlite", "postgres", "pgx", "mysql"}
}
