package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	migrationFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	nameSeparatorRe = regexp.MustCompile(`[^a-z0-9]+`)
)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s: forward statements
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- %[1]s: reverse the statements above
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration named after name into
// dir. The version is now in UTC, pushed past the newest existing version so
// files created in the same second still sort correctly.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(nameSeparatorRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	files, err := listMigrations(os.DirFS(dir), ".")
	if err != nil {
		return "", err
	}
	version := now.UTC().Truncate(time.Second)
	for _, file := range files {
		if latest, parseErr := time.Parse(versionLayout, file.version); parseErr == nil && !version.After(latest) {
			version = latest.Add(time.Second)
		}
	}

	fullpath := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version.Format(versionLayout), slug))
	f, err := os.OpenFile(fullpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, migrationTemplate, slug); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}

type migrationFile struct {
	name    string
	version string
}

func listMigrations(fsys fs.FS, dir string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations %q: %w", dir, err)
	}
	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		file := migrationFile{name: entry.Name()}
		if m := migrationFileRe.FindStringSubmatch(entry.Name()); m != nil {
			file.version = m[1]
		}
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// Validate checks every migration under dir in fsys: file naming, unique
// versions, the goose Up and Down markers and balanced statement blocks.
// All problems are reported together.
func Validate(fsys fs.FS, dir string) error {
	files, err := listMigrations(fsys, dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	var problems error
	owner := map[string]string{}
	for _, file := range files {
		if file.version == "" {
			problems = multierr.Append(problems, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", file.name))
			continue
		}
		if prev, dup := owner[file.version]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", file.name, file.version, prev))
		}
		owner[file.version] = file.name

		body, err := fs.ReadFile(fsys, path.Join(dir, file.name))
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", file.name, err))
			continue
		}
		problems = multierr.Append(problems, checkAnnotations(file.name, string(body)))
	}
	return problems
}

// ValidateDir validates migrations on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return Validate(os.DirFS(dir), ".")
}

func checkAnnotations(name, body string) error {
	var problems error
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		problems = multierr.Append(problems, fmt.Errorf("%s: missing \"-- +goose Up\"", name))
	case down < 0:
		problems = multierr.Append(problems, fmt.Errorf("%s: missing \"-- +goose Down\"", name))
	case down < up:
		problems = multierr.Append(problems, fmt.Errorf("%s: Down section precedes Up", name))
	}
	depth := 0
	for _, line := range strings.Split(body, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +goose StatementBegin":
			depth++
			if depth > 1 {
				return multierr.Append(problems, fmt.Errorf("%s: nested StatementBegin", name))
			}
		case "-- +goose StatementEnd":
			depth--
			if depth < 0 {
				return multierr.Append(problems, fmt.Errorf("%s: StatementEnd without StatementBegin", name))
			}
		}
	}
	if depth != 0 {
		problems = multierr.Append(problems, fmt.Errorf("%s: unterminated StatementBegin", name))
	}
	return problems
}
