// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema holds the idempotent DDL for every application table; RunMigrations
// executes it as one statement batch.
//
//go:embed migrations/001_schema.sql
var Schema string
