package database

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// guardMigrationName is the migration that installs the triggers keeping
// strikes and the audit log append-only.
const guardMigrationName = "append_only_guards"

// Migration is one versioned pair of up/down SQL scripts.
type Migration struct {
	Version  int
	Name     string
	Up       string
	Down     string
	Checksum string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var registered []Migration

func init() {
	loaded, err := loadMigrations(migrationFS, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	registered = loaded
}

// loadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from dir. A
// misnamed file is an error rather than a skip.
func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".down.sql") {
			continue
		}
		base, ok := strings.CutSuffix(name, ".up.sql")
		if !ok {
			return nil, fmt.Errorf("unexpected file %s in migrations", name)
		}
		rawVersion, label, ok := strings.Cut(base, "_")
		if !ok || label == "" {
			return nil, fmt.Errorf("migration %s is not named NNNNNN_name.up.sql", name)
		}
		version, err := strconv.Atoi(rawVersion)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s has an invalid version", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, version)
		}
		seen[version] = name

		up, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, base+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", base, err)
		}

		sum := sha256.Sum256(up)
		out = append(out, Migration{
			Version:  version,
			Name:     label,
			Up:       string(up),
			Down:     string(down),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrations returns the embedded migrations in version order.
func Migrations() []Migration {
	return registered
}

// FindMigration looks up an embedded migration by version.
func FindMigration(version int) (Migration, bool) {
	return findIn(registered, version)
}

func findIn(set []Migration, version int) (Migration, bool) {
	for _, m := range set {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}
