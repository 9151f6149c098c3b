package novasql

import "github.com/tuannm99/novasql/internal/engine"

// Database is the top-level facade for a novasql engine instance.
type Database = engine.Database
