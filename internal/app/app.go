package app

import (
	"log"

	"complaintbot/internal/analyze"
	"complaintbot/internal/api"
	"complaintbot/internal/config"
	"complaintbot/internal/digest"
	"complaintbot/internal/notify"
	"complaintbot/internal/session"
	"complaintbot/internal/storage/sqlite"
)

func Main() {
	cfg := config.LoadConfig()
	log.Printf(
		"Config loaded. Provider=%s MaxTurns=%d AnalyzeTimeout=%s DefaultLanguage=%s Timezone=%s",
		cfg.AnalyzerProvider,
		cfg.MaxClarificationTurns,
		cfg.AnalyzeTimeout(),
		cfg.DefaultLanguage,
		cfg.Timezone,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	if cfg.SeedDemoData {
		if err := sqlite.SeedDemoData(db); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	analyzer, err := analyze.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build analyzer: %v", err)
	}

	notifier := notify.New(cfg.SlackBotToken, cfg.SlackAlertChannel)
	digest.StartDigestScheduler(cfg, db, notifier)

	orch := session.NewOrchestrator(analyzer, cfg.MaxClarificationTurns)
	server := api.NewServer(db, orch, notifier, cfg.Language())

	log.Println("Starting complaint intake service...")
	api.Start(cfg.ListenAddr, server.Handler())
}
