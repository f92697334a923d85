package source

import (
	"bufio"
	"context"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/denismitr/tern/v4/internal/logger"
	"github.com/denismitr/tern/v4/migration"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const DefaultMigrationsFolder = "./migrations"
const DefaultSeedsFolder = "./seeds"

// IrreversibleMarker opens a rollback file of a migration that must not
// be rolled back, the rest of the line is the note
const IrreversibleMarker = "-- tern:irreversible"

const (
	defaultSqlExtension = "sql"

	migrateFileSuffix                = "migrate"
	rollbackFileSuffix               = "rollback"
	defaultMigrateFileFullExtension  = ".migrate.sql"
	defaultRollbackFileFullExtension = ".rollback.sql"

	timestampBasedVersionFormat    = `^(?P<version>\d{9,11})(_[\w-]+)?$`
	millisecondsBasedVersionFormat = `^(?P<version>\d{12,14})(_[\w-]+)?$`
	datetimeBasedVersionFormat     = `^(?P<version>\d{14})(_[\w-]+)?$`
	anyBasedVersionFormat          = `^(?P<version>\d+)(_[\w-]+)?$`

	nameFormat = `^\d+_(?P<name>[\w-]+)$`
)

type LocalFileSource struct {
	fs            vfs.FileSystem
	folder        string
	lg            logger.Logger
	versionRegexp *regexp.Regexp
	nameRegexp    *regexp.Regexp
	versionFormat migration.VersionFormat
}

var _ Source = (*LocalFileSource)(nil)

func NewLocalFSSource(
	fs vfs.FileSystem,
	folder string,
	lg logger.Logger,
	vf migration.VersionFormat,
) (*LocalFileSource, error) {
	versionRegexp, nameRegexp, err := LocalFSParsingRules(vf)
	if err != nil {
		return nil, err
	}

	return &LocalFileSource{
		fs:            fs,
		folder:        folder,
		versionRegexp: versionRegexp,
		nameRegexp:    nameRegexp,
		versionFormat: vf,
		lg:            lg,
	}, nil
}

func LocalFSParsingRules(vf migration.VersionFormat) (*regexp.Regexp, *regexp.Regexp, error) {
	var versionRegexFormat string

	switch vf {
	case migration.TimestampFormat:
		versionRegexFormat = timestampBasedVersionFormat
	case migration.MillisecondsFormat:
		versionRegexFormat = millisecondsBasedVersionFormat
	case migration.DatetimeFormat:
		versionRegexFormat = datetimeBasedVersionFormat
	default:
		versionRegexFormat = anyBasedVersionFormat
	}

	versionRegexp, err := regexp.Compile(versionRegexFormat)
	if err != nil {
		return nil, nil, err
	}

	nameRegexp, err := regexp.Compile(nameFormat)
	if err != nil {
		return nil, nil, err
	}

	return versionRegexp, nameRegexp, nil
}

func (lfs *LocalFileSource) IsValid() bool {
	info, err := lfs.fs.Stat(lfs.folder)
	if err != nil {
		return false
	}

	return info.IsDir()
}

func (lfs *LocalFileSource) AlreadyExists(v migration.Version, name string) bool {
	key := migration.CreateKey(v, name)
	info, err := lfs.fs.Stat(filepath.Join(lfs.folder, key+defaultMigrateFileFullExtension))
	if err != nil {
		return false
	}

	return !info.IsDir()
}

// Create writes empty migrate and rollback files for a new migration and
// returns their paths
func (lfs *LocalFileSource) Create(v migration.Version, name string, opts CreateOptions) ([]string, error) {
	if lfs.AlreadyExists(v, name) {
		return nil, errors.Wrapf(ErrAlreadyExists, "%d %s", v, name)
	}

	if err := lfs.fs.MkdirAll(lfs.folder, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create folder [%s]", lfs.folder)
	}

	key := migration.CreateKey(v, name)
	migrateFilename := filepath.Join(lfs.folder, key+defaultMigrateFileFullExtension)
	if err := vfs.WriteFile(lfs.fs, migrateFilename, nil, 0o644); err != nil {
		return nil, errors.Wrapf(err, "could not create file [%s]", migrateFilename)
	}

	created := []string{migrateFilename}

	if opts.NoRollback {
		return created, nil
	}

	var rollbackContents []byte
	if opts.IrreversibleNote != "" {
		rollbackContents = []byte(IrreversibleMarker + " " + opts.IrreversibleNote + "\n")
	}

	rollbackFilename := filepath.Join(lfs.folder, key+defaultRollbackFileFullExtension)
	if err := vfs.WriteFile(lfs.fs, rollbackFilename, rollbackContents, 0o644); err != nil {
		return created, errors.Wrapf(err, "could not create file [%s]", rollbackFilename)
	}

	return append(created, rollbackFilename), nil
}

func (lfs *LocalFileSource) Select(ctx context.Context, f Filter) (migration.Migrations, error) {
	keys, err := lfs.getAllKeysFromFolder(f)
	if err != nil {
		return nil, err
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	result := make(migration.Migrations, len(sorted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, key := range sorted {
		i, key := i, key
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			m, err := lfs.readOne(key)
			if err != nil {
				mErr := errors.Wrapf(err, "with key %s", key)
				lfs.lg.Error(mErr)
				return mErr
			}

			result[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Sort(result)

	return result, nil
}

func (lfs *LocalFileSource) getAllKeysFromFolder(f Filter) (map[string]int, error) {
	files, err := vfs.ReadDir(lfs.fs, lfs.folder)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read keys from folder %s", lfs.folder)
	}

	keys := make(map[string]int)

	for i := range files {
		// hidden files such as .gitkeep are not migrations
		if files[i].IsDir() || strings.HasPrefix(files[i].Name(), ".") {
			continue
		}

		key, err := convertLocalFilePathToKey(files[i].Name())
		if err != nil {
			return nil, errors.Wrapf(err, "file %s is not a valid migration name", files[i].Name())
		}

		if !keyContainsOfVersions(key, f.Versions) {
			continue
		}

		keys[key]++
		if keys[key] > 2 {
			return nil, errors.Wrapf(ErrTooManyFilesForKey, "%s", key)
		}
	}

	return keys, nil
}

func (lfs *LocalFileSource) readOne(key string) (*migration.Migration, error) {
	up := filepath.Join(lfs.folder, key+defaultMigrateFileFullExtension)
	down := filepath.Join(lfs.folder, key+defaultRollbackFileFullExtension)

	migrateContents, err := vfs.ReadFile(lfs.fs, up)
	if err != nil {
		if vfs.IsErrNotExist(err) {
			return nil, errors.Wrapf(ErrMissingMigrateFile, "%s", up)
		}
		return nil, err
	}

	rollbackContents, err := vfs.ReadFile(lfs.fs, down)
	if err != nil && !vfs.IsErrNotExist(err) {
		return nil, err
	}

	return lfs.createMigration(key, string(migrateContents), string(rollbackContents))
}

func (lfs *LocalFileSource) createMigration(key, migrateContents, rollbackContents string) (*migration.Migration, error) {
	version, err := lfs.extractVersionFromKey(key)
	if err != nil {
		return nil, err
	}

	name := lfs.extractNameFromKey(key)

	scripts := splitStatements(migrateContents)
	if len(scripts) == 0 {
		return nil, errors.Wrapf(migration.ErrInvalidMigration, "migrate file of %s has no statements", key)
	}

	if note, ok := irreversibleNote(rollbackContents); ok {
		m, err := migration.New(version, name, migration.SQL(scripts...), migration.Irreversible(note))()
		if err != nil {
			return nil, err
		}

		m.Scripts = scripts
		return m, nil
	}

	return migration.NewFromScripts(version, name, scripts, splitStatements(rollbackContents))()
}

func (lfs *LocalFileSource) extractVersionFromKey(key string) (migration.Version, error) {
	matches := lfs.versionRegexp.FindStringSubmatch(key)
	if len(matches) < 2 {
		return 0, ErrInvalidTimestamp
	}

	v, err := migration.VersionFromString(matches[1])
	if err != nil {
		return 0, ErrInvalidTimestamp
	}

	return v, nil
}

func (lfs *LocalFileSource) extractNameFromKey(key string) string {
	matches := lfs.nameRegexp.FindStringSubmatch(key)
	if len(matches) < 2 {
		return ""
	}

	return ucFirst(strings.Replace(matches[1], "_", " ", -1))
}

func convertLocalFilePathToKey(path string) (string, error) {
	_, name := filepath.Split(path)
	base := filepath.Base(name)
	segments := strings.Split(base, ".")

	if len(segments) != 3 {
		return "", ErrNotAMigrationFile
	}

	if segments[2] != defaultSqlExtension || !(segments[1] == migrateFileSuffix || segments[1] == rollbackFileSuffix) {
		return "", ErrNotAMigrationFile
	}

	return segments[0], nil
}

// splitStatements cuts a file into statements at lines ending with a
// semicolon. Comment lines between statements are dropped.
func splitStatements(contents string) []string {
	var result []string
	var buf strings.Builder

	flush := func() {
		if stmt := strings.TrimSpace(buf.String()); stmt != "" {
			result = append(result, stmt)
		}
		buf.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(contents))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if buf.Len() == 0 && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}

	flush()

	return result
}

func irreversibleNote(rollbackContents string) (string, bool) {
	for _, line := range strings.Split(rollbackContents, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(trimmed, IrreversibleMarker) {
			return "", false
		}

		return strings.TrimSpace(strings.TrimPrefix(trimmed, IrreversibleMarker)), true
	}

	return "", false
}
