package migration

import "embed"

//go:embed migrations
var embeddedMigrations embed.FS

const migrationsDir = "migrations"
