package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/TimBim12345/SME/internal/config"
	"github.com/TimBim12345/SME/internal/db"
	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/pipeline"
	"github.com/TimBim12345/SME/internal/publish"
	"github.com/TimBim12345/SME/internal/scheduler"
	"github.com/TimBim12345/SME/internal/server"
	"github.com/TimBim12345/SME/internal/statistics"
)

// summaryTopN is the length of the rankings printed after generation
const summaryTopN = 5

func main() {
	var (
		configPath = flag.String("config", "", "Path to the TOML config file (default ./config.toml if present)")

		// Generation options
		dataDir = flag.String("data-dir", "", "Directory with regions.json, industries.json and banks.json")
		output  = flag.String("output", "", "Path of the generated dataset")
		csvPath = flag.String("csv", "", "Also write the groups as CSV to this path")
		xlsx    = flag.String("xlsx", "", "Also write a statistics workbook to this path")
		groups  = flag.Int("groups", 0, "Number of groups to generate")
		total   = flag.Int64("total", 0, "Total number of companies")
		seed    = flag.Int64("seed", 0, "Random seed (0 derives one from the clock)")

		// Sinks
		useDB     = flag.Bool("db", false, "Persist runs to the database configured by DB_* variables or the config file")
		redisAddr = flag.String("redis", "", "Redis address for run notifications")

		// Serving
		serve    = flag.Bool("serve", false, "Serve the dataset over HTTP instead of exiting after generation")
		addr     = flag.String("addr", "", "HTTP listen address")
		schedule = flag.String("schedule", "", "Cron expression for periodic regeneration (with -serve)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the config file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.Data.ReferenceDir = *dataDir
		case "output":
			cfg.Data.OutputPath = *output
		case "csv":
			cfg.Data.CSVPath = *csvPath
		case "xlsx":
			cfg.Data.XLSXPath = *xlsx
		case "groups":
			cfg.Generator.TargetGroups = *groups
		case "total":
			cfg.Generator.TotalCompanies = *total
		case "seed":
			cfg.Generator.Seed = *seed
		case "db":
			cfg.Database.Enabled = *useDB
		case "redis":
			cfg.Redis.Enabled = *redisAddr != ""
			cfg.Redis.Addr = *redisAddr
		case "addr":
			cfg.Server.Addr = *addr
		case "schedule":
			cfg.Schedule.Cron = *schedule
		}
	})

	opts, err := cfg.PipelineOptions()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store pipeline.Store
	var runs server.RunLookup
	if cfg.Database.Enabled {
		database, err := db.NewDatabase(cfg.DBConfig())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to set up database schema: %v", err)
		}
		store = database
		runs = database
	}

	var notifier pipeline.Notifier
	if cfg.Redis.Enabled {
		publisher := publish.NewPublisher(cfg.Redis.Addr)
		defer publisher.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := publisher.Ping(pingCtx); err != nil {
			log.Printf("Warning: Redis at %s is not reachable: %v", cfg.Redis.Addr, err)
		}
		cancel()
		notifier = publisher
	}

	p := pipeline.NewPipeline(opts, store, notifier)

	if !*serve {
		printHeader(os.Stdout, opts)
		d, err := p.Run(ctx)
		if err != nil {
			log.Fatalf("Generation failed: %v", err)
		}
		printSummary(os.Stdout, d, opts.OutputPath)
		return
	}

	if err := runServer(ctx, cfg, p, runs); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runServer(ctx context.Context, cfg *config.AppConfig, p *pipeline.Pipeline, runs server.RunLookup) error {
	srv := server.NewServer(runs)
	sched := scheduler.NewScheduler(p, cfg.Schedule.TimeZone, srv.SetDataset)

	// Serve the last dataset on disk until a new one is generated
	if d, err := p.LoadLatest(); err == nil {
		srv.SetDataset(d)
	} else {
		log.Printf("No existing dataset (%v), generating one", err)
		if _, err := sched.RunNow(ctx); err != nil {
			return err
		}
	}

	if cfg.Schedule.Cron != "" {
		if err := sched.Start(cfg.Schedule.Cron); err != nil {
			return err
		}
		defer sched.Stop()
	}

	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func printHeader(w io.Writer, opts pipeline.Options) {
	pr := message.NewPrinter(language.English)
	pr.Fprintln(w, "Начинаем генерацию тестовых данных...")
	pr.Fprintf(w, "Целевое количество компаний: %d\n", opts.Generator.TotalCompanies)
	pr.Fprintf(w, "Количество групп: %d\n", opts.Generator.TargetGroups)
	pr.Fprintf(w, "Среднее количество компаний на группу: %d\n", opts.Generator.BaseCount())
}

func printSummary(w io.Writer, d *models.Dataset, outputPath string) {
	pr := message.NewPrinter(language.English)
	stats := d.Statistics

	pr.Fprintln(w, "\nГенерация завершена!")
	pr.Fprintf(w, "Создано групп: %d\n", d.Metadata.TotalGroups)
	pr.Fprintf(w, "Общее количество компаний: %d\n", stats.TotalCompanies)
	fmt.Fprintf(w, "Seed: %d\n", d.Metadata.Seed)
	pr.Fprintf(w, "Данные сохранены в: %s\n", outputPath)

	pr.Fprintln(w, "\n=== СТАТИСТИКА ===")
	pr.Fprintln(w, "\nРаспределение по размеру компаний:")
	for _, idx := range stats.RevenueDistribution.Indices() {
		rs := stats.RevenueDistribution[idx]
		pr.Fprintf(w, "  %s: %d (%v%%)\n", rs.Name, rs.Count, rs.Percentage)
	}

	printRanking(pr, w, "Топ-5 регионов:", stats.TopRegions, stats.TotalCompanies)
	printRanking(pr, w, "Топ-5 отраслей:", stats.TopIndustries, stats.TotalCompanies)
}

func printRanking(pr *message.Printer, w io.Writer, title string, ranking models.RankedCounts, total int64) {
	pr.Fprintf(w, "\n%s\n", title)
	for i, nc := range ranking {
		if i == summaryTopN {
			break
		}
		pct, _ := statistics.Percentage(nc.Count, total)
		pr.Fprintf(w, "  %d. %s: %d (%v%%)\n", i+1, nc.Name, nc.Count, pct)
	}
}
