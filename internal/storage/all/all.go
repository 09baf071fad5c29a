// Package all registers every storage backend with the storage registry.
package all

import (
	_ "shopetl/internal/storage/duckdb"
	_ "shopetl/internal/storage/mssql"
	_ "shopetl/internal/storage/postgres"
	_ "shopetl/internal/storage/sqlite"
)
