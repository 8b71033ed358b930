package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"audient.app/internal/migrate"
	"audient.app/internal/obs"
	"audient.app/internal/store/pg"
)

func main() {
	var (
		dsn   = flag.String("dsn", os.Getenv("AUDIENT_PG_DSN"), "PostgreSQL DSN")
		table = flag.String("table", "schema_migrations", "Migrations bookkeeping table")
	)
	flag.Parse()

	log, err := obs.Init(os.Getenv("AUDIENT_ENV"), "info", "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer obs.Sync()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or AUDIENT_PG_DSN")
	}
	if flag.NArg() == 0 {
		log.Fatal("usage: migrate [up|down|status|pending]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	mgr := migrate.NewManager(db, pg.Migrations(), migrate.WithMigrationsTable(*table))

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		for _, name := range applied {
			log.Info("applied", zap.String("migration", name))
		}
		if err == nil && len(applied) == 0 {
			log.Info("schema up to date")
		}
	case "down":
		var reverted string
		reverted, err = mgr.Down(ctx)
		if err == nil {
			log.Info("reverted", zap.String("migration", reverted))
		}
	case "status", "pending":
		var names []string
		if cmd == "status" {
			names, err = mgr.Status(ctx)
		} else {
			names, err = mgr.Pending(ctx)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	default:
		log.Fatal("unknown command", zap.String("command", cmd))
	}
	if err != nil {
		log.Fatal("migrate failed", zap.String("command", cmd), zap.Error(err))
	}
}
