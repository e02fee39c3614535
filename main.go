package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/koushikyemula/cue/pkg/assistant"
	"github.com/koushikyemula/cue/pkg/auth"
	"github.com/koushikyemula/cue/pkg/config"
	"github.com/koushikyemula/cue/pkg/gcal"
	"github.com/koushikyemula/cue/pkg/llm"
	"github.com/koushikyemula/cue/pkg/logging"
	"github.com/koushikyemula/cue/pkg/reconcile"
	"github.com/koushikyemula/cue/pkg/task"
)

const submitTimeout = 90 * time.Second

func main() {
	// 1. Parse Flags
	doAuth := flag.Bool("auth", false, "Authenticate with Google Calendar")
	setCalendar := flag.String("set-calendar", "", "Set the Google Calendar name to sync with")
	setModel := flag.String("set-model", "", "Set the model identifier for interpretation")
	enableAI := flag.Bool("enable-ai", false, "Turn natural-language interpretation on")
	disableAI := flag.Bool("disable-ai", false, "Turn natural-language interpretation off")
	enableSync := flag.Bool("enable-sync", false, "Turn calendar sync on")
	disableSync := flag.Bool("disable-sync", false, "Turn calendar sync off")
	dateFlag := flag.String("date", "", "Anchor date yyyy-MM-dd (default today)")
	list := flag.Bool("list", false, "Print tasks for the anchor date")
	exportPath := flag.String("export", "", "Export all tasks to a JSON file")
	importPath := flag.String("import", "", "Import tasks from a JSON file (replaces the collection)")
	verbose := flag.Bool("verbose", false, "Print debug logging to stderr")
	flag.Parse()

	logger, err := logging.New(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 2. Handle Settings Changes
	if *setCalendar != "" || *setModel != "" || *enableAI || *disableAI || *enableSync || *disableSync {
		cfg, err := config.Load()
		if err != nil {
			logger.Fatalw("could not load config", "error", err)
		}
		if *setCalendar != "" {
			cfg.Calendar = *setCalendar
		}
		if *setModel != "" {
			cfg.Model = *setModel
		}
		if *enableAI {
			cfg.AIEnabled = true
		}
		if *disableAI {
			cfg.AIEnabled = false
		}
		if *enableSync {
			cfg.SyncEnabled = true
		}
		if *disableSync {
			cfg.SyncEnabled = false
		}
		if err := config.Save(cfg); err != nil {
			logger.Fatalw("could not save config", "error", err)
		}
		fmt.Println("Settings updated.")
		return
	}

	// 3. Handle Authentication
	if *doAuth {
		if err := auth.RemoveToken(); err != nil {
			logger.Fatalw("could not remove existing token", "error", err)
		}
		if _, err := auth.GetCalendarService(context.Background(), logger); err != nil {
			logger.Fatalw("authentication failed", "error", err)
		}
		fmt.Println("Authentication successful.")
		return
	}

	// 4. Load Config and Store
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("could not load config", "error", err)
	}
	store, err := task.NewStore()
	if err != nil {
		logger.Fatalw("could not open task store", "error", err)
	}

	anchor, err := resolveAnchor(*dateFlag)
	if err != nil {
		logger.Fatalw("invalid -date", "error", err)
	}

	// 5. Handle Import / Export / List
	if *importPath != "" {
		tasks, err := store.ImportFromFile(*importPath)
		if err != nil {
			logger.Fatalw("import rejected", "error", err)
		}
		if err := store.Save(); err != nil {
			logger.Fatalw("could not save task store", "error", err)
		}
		fmt.Printf("Imported %d tasks.\n", len(tasks))
		return
	}
	if *exportPath != "" {
		if err := store.ExportToFile(*exportPath); err != nil {
			logger.Fatalw("export failed", "error", err)
		}
		fmt.Printf("Exported %d tasks to %s\n", len(store.Tasks()), *exportPath)
		return
	}
	if *list {
		printDay(store.Tasks(), anchor)
		return
	}

	// 6. Submit Text Through the Pipeline
	text := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if text == "" {
		flag.Usage()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	var calendarClient reconcile.Calendar
	if cfg.SyncEnabled {
		client, err := gcal.NewClient(ctx, cfg.Calendar, logger)
		if err != nil {
			// Sync failures never block local task management.
			logger.Warnw("calendar unavailable, continuing without sync", "error", err)
		} else if client.IsConnected() {
			calendarClient = client
		}
	}

	var interpreter assistant.Interpreter
	if cfg.AIEnabled {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Warnw("OPENAI_API_KEY not set, interpretation disabled")
		} else {
			model, err := llm.NewClient(apiKey, cfg.BaseURL, cfg.Model)
			if err != nil {
				logger.Warnw("could not create model client, interpretation disabled", "error", err)
			} else {
				interpreter = llm.NewInterpreter(model)
			}
		}
	}

	pipeline := assistant.New(interpreter, reconcile.New(calendarClient, logger), logger)
	result, err := pipeline.Submit(ctx, text, anchor, store.Tasks(), cfg)
	if err != nil {
		logger.Fatalw("submit failed", "error", err)
	}

	// 7. Apply the Result
	tasks := result.Tasks
	if cfg.AutoRemoveCompleted {
		tasks = dropCompletedOn(tasks, anchor)
	}
	if result.SortBy != "" {
		task.Sort(tasks, result.SortBy)
	}
	store.Replace(tasks)
	if err := store.Save(); err != nil {
		logger.Fatalw("could not save task store", "error", err)
	}
	if result.Export {
		path := fmt.Sprintf("cue-export-%s.json", time.Now().Format("2006-01-02"))
		if err := store.ExportToFile(path); err != nil {
			logger.Warnw("export failed", "error", err)
		} else {
			fmt.Printf("Exported tasks to %s\n", path)
		}
	}

	for _, n := range result.Notices {
		fmt.Println(n)
	}
	printDay(tasks, anchor)
}

func resolveAnchor(s string) (time.Time, error) {
	if s == "" {
		now := time.Now()
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func dropCompletedOn(tasks []task.Task, day time.Time) []task.Task {
	kept := tasks[:0:0]
	for _, t := range tasks {
		if t.Completed && task.SameDay(t.Date, day) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func printDay(tasks []task.Task, day time.Time) {
	fmt.Printf("Tasks for %s:\n", task.DayKey(day))
	count := 0
	for _, t := range tasks {
		if !task.SameDay(t.Date, day) {
			continue
		}
		count++
		mark := " "
		if t.Completed {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] %s", mark, t.Text)
		if t.ScheduledTime != "" {
			line += fmt.Sprintf(" @ %s", t.ScheduledTime)
		}
		if t.Priority != "" {
			line += fmt.Sprintf(" (%s)", t.Priority)
		}
		fmt.Println(line)
	}
	if count == 0 {
		fmt.Println("(nothing scheduled)")
	}
}
