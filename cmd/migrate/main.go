package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/swimteam/backend/internal/infrastructure/config"
	"github.com/swimteam/backend/internal/infrastructure/logger"
	"github.com/swimteam/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

// sourceMigrationsPath is where create writes new files, relative to the repo root
const sourceMigrationsPath = "internal/infrastructure/migration/sql"

var errUsage = errors.New("usage")

// tool carries what every subcommand needs
type tool struct {
	path string
	log  *zap.Logger
	out  io.Writer
	// openMigrator is swapped in tests; the default dials postgres from config
	openMigrator func(path string, log *zap.Logger) (*migration.Migrator, func(), error)
}

type subcommand struct {
	args    string
	summary string
	run     func(t *tool, args []string) error
}

var subcommands = map[string]subcommand{
	"up":      {summary: "Apply all pending migrations", run: (*tool).up},
	"down":    {summary: "Roll back all migrations", run: (*tool).down},
	"version": {summary: "Show the applied version and dirty flag", run: (*tool).version},
	"create":  {args: "<name> [desc]", summary: "Create a new migration file pair", run: (*tool).create},
	"list":    {summary: "List available migrations", run: (*tool).list},
}

func main() {
	var path, logLevel string
	flag.StringVar(&path, "path", "", "Migrations directory (default: migrations embedded in the binary)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	t := &tool{path: path, log: log, out: os.Stdout, openMigrator: openPostgres}
	err = t.run(flag.Args())
	_ = logger.Sync(log)
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		printUsage(os.Stderr)
		os.Exit(2)
	case err != nil:
		log.Error("Migration command failed", zap.Error(err))
		os.Exit(1)
	}
}

func (t *tool) run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: a command is required", errUsage)
	}
	cmd, ok := subcommands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	t.log.Debug("Migration CLI started",
		zap.String("command", args[0]),
		zap.String("migrations_path", t.path),
	)
	return cmd.run(t, args[1:])
}

func (t *tool) up(_ []string) error {
	return t.withMigrator((*migration.Migrator).Up)
}

func (t *tool) down(_ []string) error {
	return t.withMigrator((*migration.Migrator).Down)
}

func (t *tool) version(_ []string) error {
	return t.withMigrator(func(m *migration.Migrator) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if v == 0 {
			fmt.Fprintln(t.out, "no migrations applied")
			return nil
		}
		fmt.Fprintf(t.out, "version %d (dirty: %t)\n", v, dirty)
		return nil
	})
}

func (t *tool) create(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: create needs a migration name", errUsage)
	}
	dir := t.path
	if dir == "" {
		dir = sourceMigrationsPath
	}
	desc := strings.Join(args[1:], " ")
	mf, err := migration.CreateMigration(dir, args[0], desc)
	if err != nil {
		return err
	}
	t.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func (t *tool) list(_ []string) error {
	var (
		names []string
		err   error
	)
	if t.path == "" {
		names, err = migration.ListEmbedded()
	} else {
		names, err = migration.ListMigrations(t.path)
	}
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(t.out, n)
	}
	return nil
}

func (t *tool) withMigrator(fn func(*migration.Migrator) error) error {
	m, closeFn, err := t.openMigrator(t.path, t.log)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(m)
}

// openPostgres builds a migrator from the SWIM_DATABASE_* configuration
func openPostgres(path string, log *zap.Logger) (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, nil, fmt.Errorf("versioned migrations need postgres, got %q; sqlite databases use auto_migrate", cfg.Database.Driver)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	m, err := migration.New(db, path, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() {
		_ = m.Close()
		_ = db.Close()
	}, nil
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(subcommands))
	for name := range subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Usage: migrate [-path dir] [-log-level level] <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range names {
		cmd := subcommands[name]
		fmt.Fprintf(w, "  %-22s %s\n", strings.TrimSpace(name+" "+cmd.args), cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Database commands read SWIM_DATABASE_* settings.")
}
