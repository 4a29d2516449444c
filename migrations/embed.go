package migrations

import "embed"

// MySQLDir is the directory inside FS holding the MySQL migration files.
const MySQLDir = "mysql"

//go:embed mysql/*.sql
var FS embed.FS
