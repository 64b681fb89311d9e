package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"call-audit-go/internal/config"
	"call-audit-go/internal/logger"
	"call-audit-go/internal/processor"
	"call-audit-go/internal/report"
	"call-audit-go/internal/scoring"
	"call-audit-go/internal/selector"
	"call-audit-go/internal/speech"
	"call-audit-go/internal/store"
	"call-audit-go/internal/telephony"
	"call-audit-go/internal/types"
)

func main() {
	useMock := flag.Bool("mock", false, "use mock collaborators and seed fake calls")
	period := flag.String("period", selector.PeriodAuto, "analysis period: auto, first_half or second_half")
	target := flag.Int("target", 0, "override target minutes (0 = from config)")
	rubricPath := flag.String("rubric", "", "optional YAML rubric override")
	syncDays := flag.Int("sync-days", 0, "pull PBX history for the last N days before selecting (0 = skip)")
	flag.Parse()

	_ = godotenv.Load() // loads .env

	cfg := config.Load()
	log := logger.NewWithFile(cfg.LogDir)
	log.WithField("service", "callauditd").Info("starting call analysis run")

	if !*useMock {
		if err := cfg.Validate(); err != nil {
			log.WithError(err).Fatal("configuration invalid")
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open call store")
	}
	defer st.Close()

	ctx := context.Background()

	rubric := scoring.DefaultRubric()
	if *rubricPath != "" {
		rubric, err = scoring.LoadRubric(*rubricPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load rubric")
		}
		log.WithField("sections", len(rubric)).Info("loaded rubric override")
	}

	pbx := telephony.NewClient(cfg.MegafonHost, cfg.MegafonKey, cfg.DownloadTimeout, log)
	if *syncDays > 0 && !*useMock {
		added, err := pbx.SyncHistory(ctx, st, *syncDays)
		if err != nil {
			log.WithError(err).Fatal("pbx history sync failed")
		}
		log.WithField("added", added).Info("pbx history sync done")
	}

	start, end := selector.ResolvePeriod(*period, time.Now())
	periodText := fmt.Sprintf("%s - %s", start.Format("02.01.2006"), end.Format("02.01.2006"))
	log.WithField("period", periodText).Info("analysis period resolved")

	if *useMock {
		if err := seedMockCalls(ctx, st, start, end, log); err != nil {
			log.WithError(err).Fatal("failed to seed mock calls")
		}
	}

	sel := selector.New(st, cfg.MinutesTarget, cfg.ShortfallThreshold, log)
	calls, err := sel.SelectBalanced(ctx, start, end, *target)
	if err != nil {
		log.WithError(err).Fatal("call selection failed")
	}
	if len(calls) == 0 {
		log.Error("no calls to process, exiting")
		os.Exit(1)
	}
	log.WithField("calls", len(calls)).Info("calls selected")

	var (
		downloader processor.Downloader
		analyzer   speech.Analyzer
		scorer     processor.Scorer
		summaries  report.SummaryGenerator
	)
	if *useMock {
		log.Info("mock mode: using deterministic collaborators")
		downloader = telephony.MockDownloader{}
		analyzer = speech.MockAnalyzer{}
		mock := scoring.MockScorer{}
		scorer, summaries = mock, mock
	} else {
		downloader = pbx
		analyzer = speech.NewClient(cfg.SpeechAPIURL, cfg.YandexAPIKey, log)
		client := scoring.NewClient(cfg, rubric, log)
		scorer, summaries = client, client
	}

	proc := processor.New(st, downloader, analyzer, scorer, cfg.TempAudioDir, log)
	stats := proc.ProcessBatch(ctx, calls)
	if stats.Successful == 0 {
		log.Error("no call processed successfully, exiting")
		os.Exit(1)
	}

	reporter := report.NewReporter(log)
	reportPath, err := reporter.Generate(ctx, calls, summaries, ".")
	if err != nil {
		log.WithError(err).Fatal("report generation failed")
	}

	mailer := report.NewMailer(cfg, log)
	if mailer.Configured() {
		if err := mailer.SendReport(reportPath, periodText); err != nil {
			log.WithError(err).Warn("report generated but not sent, check SMTP settings")
		}
	} else {
		log.Info("email not configured, skipping dispatch")
	}

	log.WithFields(logrus.Fields{
		"period":    periodText,
		"processed": fmt.Sprintf("%d/%d", stats.Successful, stats.Total),
		"report":    reportPath,
	}).Info("run complete")
}

var mockOperators = []string{"Anna Smirnova", "Elena Kuznetsova", "Maria Vasileva"}

// seedMockCalls fills the store with NEW calls inside the period so the
// selector has something to pick. Skipped when NEW calls already exist.
func seedMockCalls(ctx context.Context, st store.CallStore, start, end time.Time, log *logger.Logger) error {
	existing, err := st.Find(ctx, store.Filter{Status: types.StatusNew, From: start, To: end})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.WithField("existing", len(existing)).Info("NEW calls already present, skipping mock seed")
		return nil
	}

	const count = 15
	periodDays := int(end.Sub(start).Hours() / 24)
	if periodDays < 1 {
		periodDays = 1
	}
	log.WithField("count", count).Info("seeding mock calls")
	for i := 0; i < count; i++ {
		date := start.AddDate(0, 0, rand.Intn(periodDays)).
			Add(time.Duration(8+rand.Intn(10)) * time.Hour).
			Add(time.Duration(rand.Intn(60)) * time.Minute)
		call := &types.CallRecord{
			ID:       fmt.Sprintf("mock_%d_%05d", i, rand.Intn(100000)),
			Date:     date,
			Operator: mockOperators[rand.Intn(len(mockOperators))],
			Phone:    fmt.Sprintf("+7-999-%03d-%02d-%02d", rand.Intn(900)+100, rand.Intn(90)+10, rand.Intn(90)+10),
			Duration: 90 + rand.Intn(330), // 1.5 - 7 minutes
			AudioURL: "mock://audio.mp3",
			Status:   types.StatusNew,
		}
		if err := st.Upsert(ctx, call); err != nil {
			return err
		}
	}
	return nil
}
