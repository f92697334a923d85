package postgres

import (
	"fmt"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway"
	"github.com/denismitr/tern/v4/migration"
)

const DialectName = "postgres"

type Dialect struct {
	table string
}

var _ sqlgateway.Dialect = (*Dialect)(nil)

func NewDialect(table string) *Dialect {
	return &Dialect{table: table}
}

func (d Dialect) Name() string {
	return DialectName
}

func (d Dialect) InitQuery() string {
	const createSQL = `
		CREATE TABLE IF NOT EXISTS %s (
			version BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL
		);
	`

	return fmt.Sprintf(createSQL, d.table)
}

func (d Dialect) InsertQuery(e database.Entry) (string, []interface{}) {
	const insertSQL = "INSERT INTO %s (version, name, applied_at) VALUES (?, ?, ?);"
	return fmt.Sprintf(insertSQL, d.table), []interface{}{int64(e.Version), e.Name, e.AppliedAt}
}

func (d Dialect) RemoveQuery(v migration.Version) (string, []interface{}) {
	const removeSQL = "DELETE FROM %s WHERE version = ?;"
	return fmt.Sprintf(removeSQL, d.table), []interface{}{int64(v)}
}

func (d Dialect) ReadQuery() string {
	const readSQL = "SELECT version, name, applied_at FROM %s ORDER BY applied_at ASC, version ASC;"
	return fmt.Sprintf(readSQL, d.table)
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.table)
}

func (d Dialect) ShowTablesQuery() string {
	return "SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema() ORDER BY tablename;"
}
