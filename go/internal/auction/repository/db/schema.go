package db

import _ "embed"

// Schema creates every auction table; each statement is idempotent.
//
//go:embed schema.sql
var Schema string
