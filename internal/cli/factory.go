package cli

import (
	"database/sql"
	"strings"

	"github.com/denismitr/tern/v4"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/xo/dburl"
)

var ErrUnsupportedDatabase = errors.New("unsupported database")

// dataSource is what database/sql needs to open a target
type dataSource struct {
	driver string
	dsn    string
}

func parseDatabaseURL(rawURL string) (dataSource, error) {
	u, err := dburl.Parse(rawURL)
	if err != nil {
		return dataSource{}, errors.Wrap(err, "could not parse database url")
	}

	switch u.Driver {
	case "mysql":
		return dataSource{driver: "mysql", dsn: withParseTime(u.DSN)}, nil
	case "postgres":
		return dataSource{driver: "pgx", dsn: u.DSN}, nil
	case "sqlite3":
		return dataSource{driver: "sqlite3", dsn: u.DSN}, nil
	default:
		return dataSource{}, errors.Wrapf(ErrUnsupportedDatabase, "[%s]", u.Driver)
	}
}

// withParseTime makes the mysql driver scan TIMESTAMP columns into time.Time
func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}

	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}

	return dsn + "?parseTime=true"
}

// targetOptions opens the target database and translates its configuration
// into migrator options
func targetOptions(tc TargetConfig) ([]tern.OptionFunc, *sql.DB, error) {
	ds, err := parseDatabaseURL(tc.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(ds.driver, ds.dsn)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not open %s database", ds.driver)
	}

	var opts []tern.OptionFunc

	switch ds.driver {
	case "mysql":
		var mysqlOpts []tern.MySQLOptionFunc
		if tc.MigrationsTable != "" {
			mysqlOpts = append(mysqlOpts, tern.WithMySQLMigrationTable(tc.MigrationsTable))
		}
		if tc.SeedsTable != "" {
			mysqlOpts = append(mysqlOpts, tern.WithMySQLSeedsTable(tc.SeedsTable))
		}
		opts = append(opts, tern.UseMySQL(db, mysqlOpts...))
	case "pgx":
		var pgOpts []tern.PostgresOptionFunc
		if tc.MigrationsTable != "" {
			pgOpts = append(pgOpts, tern.WithPostgresMigrationTable(tc.MigrationsTable))
		}
		if tc.SeedsTable != "" {
			pgOpts = append(pgOpts, tern.WithPostgresSeedsTable(tc.SeedsTable))
		}
		opts = append(opts, tern.UsePostgres(db, pgOpts...))
	default:
		var sqliteOpts []tern.SqliteOptionFunc
		if tc.MigrationsTable != "" {
			sqliteOpts = append(sqliteOpts, tern.WithSqliteMigrationTable(tc.MigrationsTable))
		}
		if tc.SeedsTable != "" {
			sqliteOpts = append(sqliteOpts, tern.WithSqliteSeedsTable(tc.SeedsTable))
		}
		opts = append(opts, tern.UseSqlite(db, sqliteOpts...))
	}

	opts = append(opts, tern.UseLocalFolderSource(tc.MigrationsFolder, tern.WithVersionFormat(tc.VersionFormat)))

	if tc.SeedsFolder != "" {
		opts = append(opts, tern.UseLocalFolderSeeds(tc.SeedsFolder, tern.WithVersionFormat(tc.VersionFormat)))
	}

	return opts, db, nil
}
