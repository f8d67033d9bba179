package migration

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var embedded embed.FS

const embeddedDir = "sql"

// EmbeddedSource returns a migration source over the SQL files compiled
// into the binary
func EmbeddedSource() (source.Driver, error) {
	d, err := iofs.New(embedded, embeddedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return d, nil
}

// ListEmbedded returns the base names of the embedded migrations in order
func ListEmbedded() ([]string, error) {
	entries, err := fs.ReadDir(embedded, embeddedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	var out []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), upSuffix); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}
