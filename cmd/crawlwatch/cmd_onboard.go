package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/tgifai/crawlwatch/internal/config"
	"github.com/tgifai/crawlwatch/internal/pkg/utils"
)

var onboardHwd = &OnboardRunner{}

type OnboardRunner struct {
	scanner *bufio.Scanner
}

func (r *OnboardRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:   "onboard",
		Usage:  "Interactive setup wizard for first-time configuration",
		Action: r.run,
	}
}

// ── style helpers ──────────────────────────────────────────────────

var (
	cBanner  = color.New(color.FgCyan, color.Bold)
	cStep    = color.New(color.FgCyan, color.Bold)
	cWarn    = color.New(color.FgYellow)
	cSuccess = color.New(color.FgGreen)
	cError   = color.New(color.FgRed)
	cPrompt  = color.New(color.FgWhite, color.Bold)
	cDim     = color.New(color.FgHiBlack)
)

var notifierOptions = []string{"none", "log", "telegram"}

// ── main flow ──────────────────────────────────────────────────────

func (r *OnboardRunner) run(_ context.Context, cmd *cli.Command) error {
	r.scanner = bufio.NewScanner(os.Stdin)

	cfgPath := cmd.String("config")
	if _, err := os.Stat(cfgPath); err == nil {
		cWarn.Printf("  Config already exists at %s\n", cfgPath)
		if !r.confirm("  Overwrite existing config?", false) {
			fmt.Println("  Aborted.")
			return nil
		}
		fmt.Println()
	}

	fmt.Println()
	cBanner.Println("  crawlwatch")
	cDim.Println("  Scheduled site crawls with snapshot comparison reports")
	fmt.Println()

	cfg := config.Default()
	r.stepCrawler(&cfg.Crawler)
	r.stepServer(&cfg.Server, &cfg.Scheduler)
	if id, n, ok := r.stepNotifier(); ok {
		cfg.Notifiers[id] = n
	}
	return r.stepConfirm(cfgPath, cfg)
}

// ── step 1: crawler ────────────────────────────────────────────────

func (r *OnboardRunner) stepCrawler(c *config.CrawlerConfig) {
	r.printStepHeader("Step 1", "Crawler")

	c.Executable = r.promptDefault("  Screaming Frog CLI executable", c.Executable)
	if _, err := os.Stat(c.Executable); err != nil {
		cWarn.Printf("  ⚠ %s was not found, crawls will fail until it is installed.\n", c.Executable)
	}
	fmt.Println()

	c.OutputDir = r.promptDefault("  Crawl output directory", c.OutputDir)
	fmt.Println()

	cSuccess.Printf("  ✓ Crawls go to %s\n\n", c.OutputDir)
}

// ── step 2: server ─────────────────────────────────────────────────

func (r *OnboardRunner) stepServer(s *config.ServerConfig, sch *config.SchedulerConfig) {
	r.printStepHeader("Step 2", "Control API")

	s.Bind = r.promptDefault("  Listen address", s.Bind)
	fmt.Println()

	if r.confirm("  Protect the API with a generated key?", !utils.IsLocalBind(s.Bind)) {
		s.APIKey = utils.RandStr(32)
		cDim.Printf("  API key: %s\n", s.APIKey)
	} else if !utils.IsLocalBind(s.Bind) {
		cWarn.Println("  ⚠ The API will be reachable from the network without a key.")
	}
	fmt.Println()

	for {
		tz := r.promptDefault("  Scheduler timezone", sch.Timezone)
		if _, err := time.LoadLocation(tz); err != nil {
			cError.Printf("  Unknown timezone %q.\n", tz)
			continue
		}
		sch.Timezone = tz
		break
	}
	fmt.Println()

	cSuccess.Printf("  ✓ API on %s, schedules in %s\n\n", s.Bind, sch.Timezone)
}

// ── step 3: notifier ───────────────────────────────────────────────

func (r *OnboardRunner) stepNotifier() (string, config.NotifierConfig, bool) {
	r.printStepHeader("Step 3", "Notifications")

	cDim.Println("  Select notifier type:")
	for i, n := range notifierOptions {
		fmt.Printf("    [%d] %s\n", i+1, n)
	}
	fmt.Println()

	idx := r.promptChoice("  Notifier type", 1, len(notifierOptions))
	typ := notifierOptions[idx-1]
	fmt.Println()
	if typ == "none" {
		cSuccess.Println("  ✓ Notifications: off")
		fmt.Println()
		return "", config.NotifierConfig{}, false
	}

	n := config.NotifierConfig{Type: typ, Enabled: true, Config: map[string]interface{}{}}
	if typ == "telegram" {
		n.Config["token"] = r.promptRequired("  Telegram Bot Token")
		fmt.Println()
		n.Config["chat_id"] = r.promptRequired("  Telegram Chat ID")
		fmt.Println()
	}

	id := typ + "-main"
	cSuccess.Printf("  ✓ Notifier: %s (%s)\n\n", id, typ)
	return id, n, true
}

// ── step 4: confirm & write ────────────────────────────────────────

func (r *OnboardRunner) stepConfirm(cfgPath string, cfg *config.Config) error {
	r.printStepHeader("Step 4", "Review")

	cDim.Printf("  Config file:   %s\n", cfgPath)
	cDim.Printf("  Executable:    %s\n", cfg.Crawler.Executable)
	cDim.Printf("  Output:        %s\n", cfg.Crawler.OutputDir)
	cDim.Printf("  Listen:        %s\n", cfg.Server.Bind)
	cDim.Printf("  Timezone:      %s\n", cfg.Scheduler.Timezone)
	cDim.Printf("  Notifiers:     %d\n", len(cfg.Notifiers))
	fmt.Println()

	if !r.confirm("  Write config?", true) {
		fmt.Println("  Aborted.")
		return nil
	}
	fmt.Println()

	if err := writeConfig(cfgPath, cfg); err != nil {
		cError.Printf("  ✗ Failed to write config: %v\n", err)
		return err
	}
	cSuccess.Printf("  ✓ Created %s\n", cfgPath)

	for _, dir := range []string{cfg.Crawler.OutputDir, cfg.Crawler.ConfigDir, cfg.Crawler.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			cWarn.Printf("  ⚠ Failed to create %s: %v\n", dir, err)
		}
	}

	fmt.Println()
	cSuccess.Println("  All set! Run \"crawlwatch serve\" to start.")
	fmt.Println()
	return nil
}

func writeConfig(path string, cfg *config.Config) error {
	if err := config.SetDefault(path, cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return config.Save()
}

// ── input helpers ──────────────────────────────────────────────────

func (r *OnboardRunner) prompt(label string) string {
	cPrompt.Printf("%s > ", label)
	if r.scanner.Scan() {
		return strings.TrimSpace(r.scanner.Text())
	}
	return ""
}

func (r *OnboardRunner) promptDefault(label string, defaultVal string) string {
	if defaultVal != "" {
		cPrompt.Printf("%s ", label)
		cDim.Printf("[%s]", defaultVal)
		cPrompt.Print(" > ")
	} else {
		cPrompt.Printf("%s > ", label)
	}

	if r.scanner.Scan() {
		val := strings.TrimSpace(r.scanner.Text())
		if val != "" {
			return val
		}
	}
	return defaultVal
}

func (r *OnboardRunner) promptRequired(label string) string {
	for {
		val := r.prompt(label)
		if val != "" {
			return val
		}
		cError.Println("  This field is required.")
	}
}

func (r *OnboardRunner) promptChoice(label string, min, max int) int {
	for {
		val := r.promptDefault(label, strconv.Itoa(min))
		n, err := strconv.Atoi(val)
		if err == nil && n >= min && n <= max {
			return n
		}
		cError.Printf("  Please enter a number between %d and %d.\n", min, max)
	}
}

func (r *OnboardRunner) confirm(label string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	cPrompt.Printf("%s %s > ", label, hint)
	if r.scanner.Scan() {
		val := strings.ToLower(strings.TrimSpace(r.scanner.Text()))
		if val == "" {
			return defaultYes
		}
		return val == "y" || val == "yes"
	}
	return defaultYes
}

func (r *OnboardRunner) printStepHeader(step string, title string) {
	cStep.Printf("═══ %s: %s ═══\n\n", step, title)
}
