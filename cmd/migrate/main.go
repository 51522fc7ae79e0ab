package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/bizcore/backend/internal/infrastructure/config"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/infrastructure/migration"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

const usage = `Usage: migrate [flags] <command> [args]

Commands:
  create <name>   create a new migration file pair
  list            list migration files
  up              apply all pending migrations
  down            roll back the most recent migration
  step <n>        apply n migrations (negative rolls back)
  version         print the current schema version
  force <v>       force the schema version without running migrations

Flags:
  -config <path>  path to config file
  -path <dir>     migrations directory (default "migrations")
`

func main() {
	configPath := flag.String("config", "", "path to config file")
	migrationsPath := flag.String("path", "migrations", "migrations directory")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command := args[0]

	// create and list only touch the filesystem, no config needed
	switch command {
	case "create":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "create requires a migration name")
			os.Exit(2)
		}
		file, err := migration.CreateMigration(*migrationsPath, args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "create failed:", err)
			os.Exit(1)
		}
		fmt.Println("created", file.UpPath)
		fmt.Println("created", file.DownPath)
		return
	case "list":
		names, err := migration.ListMigrations(*migrationsPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list failed:", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	defer logger.Sync(log)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	migrator, err := migration.New(db, *migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to initialize migrator", zap.Error(err))
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Error("Failed to close migrator", zap.Error(err))
		}
	}()

	switch command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "step":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "step requires a count")
			os.Exit(2)
		}
		var n int
		n, err = strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "step count must be an integer")
			os.Exit(2)
		}
		err = migrator.Steps(n)
	case "version":
		var v uint
		var dirty bool
		v, dirty, err = migrator.Version()
		if err == nil {
			fmt.Printf("version: %d dirty: %v\n", v, dirty)
		}
	case "force":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "force requires a version")
			os.Exit(2)
		}
		var v int
		v, err = strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "force version must be an integer")
			os.Exit(2)
		}
		err = migrator.Force(v)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}

	log.Info("Migration command complete", zap.String("command", command))
}
