// Command cycle-cli runs evaluation cycle operations against the database
// configured by POSTGRES_CONN.
//
//	cycle-cli generate -year 2025
//	cycle-cli score -request 42
//	cycle-cli final -person 7 -year 2025
//	cycle-cli import-forms -file catalog.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"evaluations/db"
	"evaluations/db/migrations"
	"evaluations/internal/catalog"
	"evaluations/internal/config"
	"evaluations/internal/cycle"
	"evaluations/internal/eligibility"
	"evaluations/internal/scoring"
	"evaluations/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: cycle-cli <generate|score|final|import-forms> [flags]")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	if err := run(context.Background(), os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "cycle-cli:", err)
		os.Exit(1)
	}
}

type app struct {
	store     *db.Storage
	generator *cycle.Generator
	scorer    *scoring.Aggregator
}

func connect(cfg *config.Config, log *logrus.Logger) (*app, func(), error) {
	if cfg.PostgresConn == "" {
		return nil, nil, fmt.Errorf("POSTGRES_CONN env variable is not set")
	}
	conn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to db: %w", err)
	}
	if cfg.MigrationsEnabled {
		if err := migrations.Run(conn.DB); err != nil {
			conn.Close()
			return nil, nil, err
		}
	}
	policy := eligibility.Policy{
		ExcludedSubjectBond: cfg.ExcludedSubjectBond,
		ExcludedRaterBond:   cfg.ExcludedRaterBond,
	}
	store := db.NewStorage(conn)
	a := &app{
		store:     store,
		generator: cycle.New(store, log, cycle.WithPolicy(policy), cycle.WithMaxChainDepth(cfg.MaxChainDepth)),
		scorer:    scoring.New(store, scoring.WithPolicy(policy)),
	}
	return a, func() { conn.Close() }, nil
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	year := fs.Int("year", 0, "evaluation year")
	request := fs.Int64("request", 0, "evaluation request id")
	person := fs.Int64("person", 0, "person id")
	file := fs.String("file", "", "form catalog YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var forms []models.Form
	switch cmd {
	case "generate":
		if *year <= 0 {
			return fmt.Errorf("generate: -year is required")
		}
	case "score":
		if *request <= 0 {
			return fmt.Errorf("score: -request is required")
		}
	case "final":
		if *person <= 0 || *year <= 0 {
			return fmt.Errorf("final: -person and -year are required")
		}
	case "import-forms":
		if *file == "" {
			return fmt.Errorf("import-forms: -file is required")
		}
		var err error
		if forms, err = catalog.Load(*file); err != nil {
			return err
		}
	default:
		usage(out)
		return fmt.Errorf("unknown command %q", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	log.SetOutput(os.Stderr)

	a, closeDB, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	switch cmd {
	case "generate":
		res, err := a.generator.GenerateCycle(ctx, *year)
		if err != nil {
			return err
		}
		return enc.Encode(res)
	case "score":
		score, err := a.scorer.ScoreForRequest(ctx, *request)
		if err != nil {
			return err
		}
		return enc.Encode(map[string]any{"requestId": *request, "score": score})
	case "final":
		b, err := a.scorer.FinalScoreForPerson(ctx, *person, *year)
		if err != nil {
			return err
		}
		return enc.Encode(b)
	default:
		if err := catalog.Import(ctx, a.store, forms); err != nil {
			return err
		}
		log.WithField("forms", len(forms)).Info("form catalog imported")
		return nil
	}
}
