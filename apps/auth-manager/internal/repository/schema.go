package repository

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// ScriptExecutor runs a multi-statement SQL script
type ScriptExecutor interface {
	ExecScript(ctx context.Context, script string) error
}

// EnsureSchema creates the auth tables when they do not exist yet
func EnsureSchema(ctx context.Context, db ScriptExecutor) error {
	return db.ExecScript(ctx, schemaSQL)
}
