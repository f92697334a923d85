package sqlgateway

import (
	"github.com/denismitr/tern/v4/internal/database"
	"github.com/denismitr/tern/v4/migration"
)

// Dialect renders ledger statements for one database flavour.
// Placeholders are written as ? and rebound by the gateway.
type Dialect interface {
	Name() string
	InitQuery() string
	InsertQuery(e database.Entry) (string, []interface{})
	RemoveQuery(v migration.Version) (string, []interface{})
	ReadQuery() string
	DropQuery() string
	ShowTablesQuery() string
}
