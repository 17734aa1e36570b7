package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/freightdesk/backend/internal/infrastructure/config"
	"github.com/freightdesk/backend/internal/infrastructure/logger"
	"github.com/freightdesk/backend/internal/infrastructure/migration"
	"github.com/freightdesk/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// invocation carries what a subcommand may need
type invocation struct {
	log  *zap.Logger
	dir  string // -path as given, "" for the embedded set
	args []string
	m    *migration.Migrator // nil for file-only commands
}

type command struct {
	usage   string
	summary string
	minArgs int
	needsDB bool
	run     func(inv *invocation) error
}

var commands = map[string]command{
	"up": {usage: "up", summary: "Apply all pending migrations", needsDB: true,
		run: func(inv *invocation) error { return inv.m.Up() }},
	"down": {usage: "down", summary: "Roll back all migrations", needsDB: true,
		run: func(inv *invocation) error { return inv.m.Down() }},
	"step": {usage: "step <n>", summary: "Apply n migrations, negative n rolls back", minArgs: 1, needsDB: true,
		run: runStep},
	"goto": {usage: "goto <version>", summary: "Migrate up or down to a version", minArgs: 1, needsDB: true,
		run: runGoto},
	"version": {usage: "version", summary: "Show the applied schema version", needsDB: true,
		run: runVersion},
	"force": {usage: "force <version>", summary: "Set the version without migrating (clears dirty)", minArgs: 1, needsDB: true,
		run: runForce},
	"create": {usage: "create <name> [desc]", summary: "Write a new up/down file pair", minArgs: 1,
		run: runCreate},
	"list": {usage: "list", summary: "List migration files",
		run: runList},
}

func main() {
	dir := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		printUsage()
		os.Exit(1)
	}
	if len(rest) < cmd.minArgs {
		fmt.Fprintf(os.Stderr, "usage: migrate %s\n", cmd.usage)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	inv := &invocation{log: log, dir: *dir, args: rest}
	if cmd.needsDB {
		db, m, err := openMigrator(log, *dir)
		if err != nil {
			log.Fatal("Failed to prepare migrator", zap.Error(err))
		}
		defer db.Close()
		inv.m = m
		log.Info("Migration CLI started", zap.String("command", name))
	}

	if err := cmd.run(inv); err != nil {
		log.Fatal("Command failed", zap.String("command", name), zap.Error(err))
	}
}

// openMigrator connects with the FREIGHT_DATABASE_* settings. The returned
// sql.DB is closed by the caller; closing the migrator would close it too.
func openMigrator(log *zap.Logger, dir string) (*sql.DB, *migration.Migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	var m *migration.Migrator
	if dir == "" {
		m, err = migration.New(db, migrations.FS, log)
	} else {
		var abs string
		if abs, err = filepath.Abs(dir); err == nil {
			log.Info("Using migrations from disk", zap.String("path", abs))
			m, err = migration.NewFromPath(db, abs, log)
		}
	}
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, m, nil
}

func runStep(inv *invocation) error {
	n, err := strconv.Atoi(inv.args[0])
	if err != nil || n == 0 {
		return fmt.Errorf("invalid step count %q", inv.args[0])
	}
	return inv.m.Steps(n)
}

func runGoto(inv *invocation) error {
	v, err := strconv.ParseUint(inv.args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid version %q", inv.args[0])
	}
	return inv.m.GoTo(uint(v))
}

func runVersion(inv *invocation) error {
	st, err := inv.m.Status()
	if err != nil {
		return err
	}
	if st.Version == 0 {
		inv.log.Info("No migrations applied")
		return nil
	}
	inv.log.Info("Current migration version", zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
	return nil
}

func runForce(inv *invocation) error {
	v, err := strconv.Atoi(inv.args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q", inv.args[0])
	}
	if v < -1 {
		return errors.New("version must be -1 or greater")
	}
	return inv.m.Force(v)
}

func runCreate(inv *invocation) error {
	desc := strings.Join(inv.args[1:], " ")
	mf, err := migration.CreateMigration(sourceDir(inv.dir), inv.args[0], desc, time.Now())
	if err != nil {
		return err
	}
	inv.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(inv *invocation) error {
	names, err := migration.ListMigrations(sourceDir(inv.dir))
	if err != nil {
		return err
	}
	inv.log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

func sourceDir(path string) string {
	if path == "" {
		return defaultMigrationsPath
	}
	return path
}

func printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Freight invoicing schema migrations\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:\n")
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(&b, "  %-22s %s\n", c.usage, c.summary)
	}
	b.WriteString(`
Flags:
  -path string        Migrations directory (default: embedded set; ./migrations for create and list)
  -log-level string   debug, info, warn or error (default: info)

The database is taken from FREIGHT_DATABASE_HOST, _PORT, _USER, _PASSWORD,
_DBNAME and _SSLMODE.
`)
	fmt.Fprint(os.Stderr, b.String())
}
