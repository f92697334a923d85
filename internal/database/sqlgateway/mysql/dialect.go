package mysql

import (
	"fmt"

	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/internal/database/sqlgateway"
	"github.com/denismitr/tern/v4/migration"
)

const (
	DialectName    = "mysql"
	DefaultCharset = "utf8mb4"
)

type Dialect struct {
	table, charset string
}

var _ sqlgateway.Dialect = (*Dialect)(nil)

func NewDialect(table, charset string) *Dialect {
	if charset == "" {
		charset = DefaultCharset
	}

	return &Dialect{table: table, charset: charset}
}

func (d Dialect) Name() string {
	return DialectName
}

func (d Dialect) InitQuery() string {
	const createSQL = "CREATE TABLE IF NOT EXISTS `%s` (" +
		"`version` BIGINT UNSIGNED PRIMARY KEY, " +
		"`name` VARCHAR(255) NOT NULL, " +
		"`applied_at` TIMESTAMP(6) NOT NULL" +
		") ENGINE=InnoDB CHARACTER SET=%s"

	return fmt.Sprintf(createSQL, d.table, d.charset)
}

func (d Dialect) InsertQuery(e database.Entry) (string, []interface{}) {
	const insertSQL = "INSERT INTO `%s` (`version`, `name`, `applied_at`) VALUES (?, ?, ?);"
	return fmt.Sprintf(insertSQL, d.table), []interface{}{uint64(e.Version), e.Name, e.AppliedAt}
}

func (d Dialect) RemoveQuery(v migration.Version) (string, []interface{}) {
	const removeSQL = "DELETE FROM `%s` WHERE `version` = ?;"
	return fmt.Sprintf(removeSQL, d.table), []interface{}{uint64(v)}
}

func (d Dialect) ReadQuery() string {
	const readSQL = "SELECT `version`, `name`, `applied_at` FROM `%s` ORDER BY `applied_at` ASC, `version` ASC;"
	return fmt.Sprintf(readSQL, d.table)
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS `%s`;", d.table)
}

func (d Dialect) ShowTablesQuery() string {
	return "SHOW TABLES;"
}
