package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/samirrijal/seatpass/internal/adapters/postgres"
	"github.com/samirrijal/seatpass/internal/pkg/config"
)

func main() {
	timeout := pflag.Duration("timeout", 2*time.Minute, "overall migration timeout")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [--timeout 2m] up")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load("seatpass-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("migrate needs database.driver=postgres, got %q", cfg.Database.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch pflag.Arg(0) {
	case "up":
		db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()

		applied, err := postgres.Migrate(ctx, db.Pool)
		for _, name := range applied {
			fmt.Printf("OK  %s\n", name)
		}
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Printf("%d migrations applied", len(applied))
	default:
		log.Fatalf("unknown command: %s", pflag.Arg(0))
	}
}
