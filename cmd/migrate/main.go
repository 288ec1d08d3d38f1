package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/residentia/backend/internal/infrastructure/config"
	"github.com/residentia/backend/internal/infrastructure/logger"
	"github.com/residentia/backend/internal/infrastructure/migration"
	"github.com/residentia/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

type flags struct {
	path     string
	config   string
	table    string
	logLevel string
}

// dbCommand runs against the ledger database
type dbCommand func(m *migration.Migrator, log *zap.Logger, args []string) error

var dbCommands = map[string]dbCommand{
	"up":      func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Up() },
	"down":    func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Down() },
	"step":    step,
	"goto":    gotoVersion,
	"version": version,
	"force":   force,
	"drop":    drop,
}

func main() {
	var f flags
	flag.StringVar(&f.path, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&f.config, "config", "", "Path to config.toml (default: search ./, ./config, /etc/residentia)")
	flag.StringVar(&f.table, "table", "", "Bookkeeping table (default: schema_migrations)")
	flag.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      f.logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	err = run(f, args, log)
	_ = log.Sync()

	var usage usageError
	switch {
	case errors.As(err, &usage):
		fmt.Fprintln(os.Stderr, "migrate:", err)
		printUsage()
		os.Exit(2)
	case err != nil:
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func run(f flags, args []string, log *zap.Logger) error {
	command := args[0]
	if f.path != "" {
		abs, err := filepath.Abs(f.path)
		if err != nil {
			return fmt.Errorf("resolve migrations path: %w", err)
		}
		f.path = abs
	}

	// create and list never touch the database
	switch command {
	case "create":
		return create(f.path, args[1:], log)
	case "list":
		return list(f.path, log)
	}

	cmd, ok := dbCommands[command]
	if !ok {
		return usageError(fmt.Sprintf("unknown command %q", command))
	}

	cfg, err := config.LoadFrom(f.config)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.IsSQLite() {
		return errors.New("SQL migrations target postgres; sqlite databases use database.auto_migrate")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	var opts []migration.Option
	if f.path != "" {
		opts = append(opts, migration.WithPath(f.path))
	}
	if f.table != "" {
		opts = append(opts, migration.WithMigrationsTable(f.table))
	}
	m, err := migration.New(db, log, opts...)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()

	log.Info("Running migration command",
		zap.String("command", command),
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)
	return cmd(m, log, args[1:])
}

func create(dir string, args []string, log *zap.Logger) error {
	if len(args) == 0 {
		return usageError("create: migration name required")
	}
	if dir == "" {
		dir = defaultMigrationsDir
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(dir string, log *zap.Logger) error {
	var source fs.FS = migrations.FS
	if dir != "" {
		source = os.DirFS(dir)
	}
	names, err := migration.ListMigrations(source)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Info("No migrations found")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func step(m *migration.Migrator, _ *zap.Logger, args []string) error {
	n, err := intArg("step", args)
	if err != nil {
		return err
	}
	return m.Steps(n)
}

func gotoVersion(m *migration.Migrator, _ *zap.Logger, args []string) error {
	v, err := intArg("goto", args)
	if err != nil {
		return err
	}
	if v < 0 {
		return usageError("goto: version must not be negative")
	}
	return m.GoTo(uint(v))
}

func version(m *migration.Migrator, log *zap.Logger, _ []string) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if v == 0 {
		log.Info("No migrations applied")
		return nil
	}
	log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}

func force(m *migration.Migrator, _ *zap.Logger, args []string) error {
	v, err := intArg("force", args)
	if err != nil {
		return err
	}
	return m.Force(v)
}

func drop(m *migration.Migrator, _ *zap.Logger, args []string) error {
	set := flag.NewFlagSet("drop", flag.ContinueOnError)
	confirm := set.Bool("confirm", false, "confirm dropping every ledger table")
	if err := set.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if !*confirm {
		return usageError("drop: refusing without -confirm")
	}
	return m.Drop()
}

func intArg(command string, args []string) (int, error) {
	if len(args) == 0 {
		return 0, usageError(command + ": argument required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, usageError(fmt.Sprintf("%s: invalid number %q", command, args[0]))
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Residentia Ledger Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (repairs a dirty database)
  drop -confirm         Drop all database objects
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: the set built into the binary;
                        create writes to ./migrations)
  -config string        Path to config.toml
  -table string         Bookkeeping table (default: schema_migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  LEDGER_DATABASE_HOST, LEDGER_DATABASE_PORT, LEDGER_DATABASE_USER,
  LEDGER_DATABASE_PASSWORD, LEDGER_DATABASE_DBNAME, LEDGER_DATABASE_SSLMODE`)
}
