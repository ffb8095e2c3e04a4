package postgres

import "embed"

// Migrations ships the goose SQL schema with the binary so deployments
// never depend on a migrations directory on disk.
//
//go:embed migrations/*.sql
var Migrations embed.FS
