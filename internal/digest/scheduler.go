package digest

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"complaintbot/internal/analytics"
	"complaintbot/internal/config"
	"complaintbot/internal/notify"
	"complaintbot/internal/storage/sqlite"
)

// StartDigestScheduler runs digest generation on a standard 5-field cron
// expression (minute hour day-of-month month day-of-week). Examples:
// "0 7 * * *" (daily 7am), "0 7 * * 1" (Mondays 7am). An empty schedule
// disables the digest.
func StartDigestScheduler(cfg config.Config, db *sql.DB, notifier *notify.Notifier) {
	schedule := strings.TrimSpace(cfg.DigestSchedule)
	if schedule == "" {
		log.Println("Digest disabled (digest_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid digest_schedule '%s': %v - digest disabled", schedule, err)
		return
	}
	log.Printf("Digest scheduled (cron: %s) to %s", schedule, cfg.DigestOutputDir)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next digest at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			if err := GenerateAndWrite(cfg, db, notifier); err != nil {
				log.Printf("Digest error: %v", err)
			}
		}
	}()
}

// GenerateAndWrite builds today's digest from the full complaint list and
// writes it to the output directory. Shared by the scheduler and manual runs.
func GenerateAndWrite(cfg config.Config, db *sql.DB, notifier *notify.Notifier) error {
	complaints, err := sqlite.ListComplaints(db)
	if err != nil {
		return err
	}

	summary := analytics.Summarize(complaints)
	date := time.Now().In(cfg.Location)
	content := Render(summary, len(complaints), date, cfg.Language())

	path, err := WriteDigestFile(content, cfg.DigestOutputDir, date)
	if err != nil {
		return err
	}
	log.Printf("Digest written: %s (%d complaints)", path, len(complaints))
	notifier.DigestWritten(path, len(complaints), summary.PriorityDistribution)
	return nil
}
