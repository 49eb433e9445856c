// Command subprimectl is the interactive console for the factorization job
// engine: submit targets, watch their progress stream, and control their
// lifecycle, all in-process against an engine.Manager. It stands in for an
// out-of-scope HTTP/WS surface over the same engine.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/mattn/go-runewidth"

	"github.com/Deenyoro/SubPrimeDivide/internal/certificate"
	"github.com/Deenyoro/SubPrimeDivide/internal/config"
	"github.com/Deenyoro/SubPrimeDivide/internal/engine"
	"github.com/Deenyoro/SubPrimeDivide/internal/eventbus"
	"github.com/Deenyoro/SubPrimeDivide/internal/external"
	"github.com/Deenyoro/SubPrimeDivide/internal/jobstore"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "subprimectl: %v\n", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "subprimectl: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	bus := eventbus.New()
	solver := &external.SubprocessDriver{BinaryPath: cfg.ExternalGNFSPath, ExtraArgs: cfg.ExternalGNFSArgs}
	mgr := engine.NewManager(store, bus, solver, engine.WithWorkers(cfg.WorkerPoolSize), engine.WithCheckInterval(cfg.CheckInterval))

	homeDir, _ := os.UserHomeDir()
	histDir := filepath.Join(homeDir, ".cache", "subprimectl")
	_ = os.MkdirAll(histDir, 0755)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[36msubprimectl>\033[0m ",
		HistoryFile:       filepath.Join(histDir, "history"),
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "subprimectl: readline init: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("subprimectl — factorization job engine console (exit/Ctrl-D to quit)")
	fmt.Printf("jobstore=%s workers=%d external_gnfs=%v\n", cfg.JobStoreDriver, cfg.WorkerPoolSize, solver.Configured())

	ctx := context.Background()
	cli := &console{ctx: ctx, store: store, mgr: mgr, bus: bus}

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		cli.dispatch(line)
	}
}

func openStore(cfg *config.Config) (engine.Store, func(), error) {
	switch cfg.JobStoreDriver {
	case "leveldb":
		db, err := jobstore.OpenLevelDB(cfg.LevelDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening leveldb store at %s: %w", cfg.LevelDBPath, err)
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return jobstore.NewMemory(), func() {}, nil
	}
}

// console holds the CLI's dependencies and dispatches one REPL line at a
// time to the matching command handler.
type console struct {
	ctx   context.Context
	store engine.Store
	mgr   *engine.Manager
	bus   *eventbus.Bus
}

func (c *console) dispatch(line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	var err error
	switch cmd {
	case "submit":
		err = c.cmdSubmit(args)
	case "jobs":
		err = c.cmdJobs(args)
	case "show":
		err = c.cmdShow(args)
	case "cancel":
		err = c.cmdControl(args, engine.ActionCancel)
	case "pause":
		err = c.cmdControl(args, engine.ActionPause)
	case "resume":
		err = c.cmdControl(args, engine.ActionResume)
	case "cert":
		err = c.cmdCert(args)
	case "help":
		printHelp()
	default:
		err = fmt.Errorf("unknown command %q (try: help)", cmd)
	}
	if err != nil {
		fmt.Printf("\033[31merror:\033[0m %v\n", err)
	}
}

func printHelp() {
	fmt.Println(`commands:
  submit <n> [mode]   submit N for factorization (mode: auto|range_scan|csv|equation_guided, default auto)
  jobs                list all known jobs
  show <id>           show a job's state, progress, and log backlog
  cancel <id>          cancel a job
  pause <id>           pause a running job
  resume <id>          resume a paused job
  cert <id>            show the primality certificate attached to a job's prime result, if any
  exit                 quit`)
}

func (c *console) cmdSubmit(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: submit <n> [mode]")
	}
	req := engine.JobCreateRequest{N: args[0]}
	if len(args) >= 2 {
		req.Mode = engine.JobMode(args[1])
	}
	job, err := c.mgr.Submit(c.ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("submitted job %s (mode=%s, state=%s)\n", job.ID, job.Mode, job.State)
	go c.watch(job.ID)
	return nil
}

// watch subscribes to the bus for jobID and prints each event to the
// console until a `complete` event arrives, then returns.
func (c *console) watch(jobID string) {
	ch := c.bus.Subscribe(jobID)
	for evt := range ch {
		switch evt.Type {
		case eventbus.EventLog:
			if evt.LogEntry != nil {
				fmt.Printf("[%s] %-5s %-10s %s\n", jobID[:8], evt.LogEntry.Level, evt.LogEntry.Stage, evt.LogEntry.Message)
			}
		case eventbus.EventProgress:
			pct := 0.0
			if evt.Progress != nil {
				pct = *evt.Progress
			}
			fmt.Printf("[%s] %5.1f%%  candidate=%s\n", jobID[:8], pct, clip(evt.Candidate, 40))
		case eventbus.EventComplete:
			status := ""
			if evt.Status != nil {
				status = string(*evt.Status)
			}
			fmt.Printf("[%s] done: %s%s\n", jobID[:8], status, errSuffix(evt.ErrorMessage))
			return
		}
	}
}

func errSuffix(msg string) string {
	if msg == "" {
		return ""
	}
	return " (" + msg + ")"
}

// clip truncates s to at most w display columns using go-runewidth's
// double-width-aware measurement, appending an ellipsis if trimmed.
func clip(s string, w int) string {
	if runewidth.StringWidth(s) <= w {
		return s
	}
	return runewidth.Truncate(s, w-1, "") + "…"
}

func (c *console) cmdJobs(args []string) error {
	jobs, err := c.store.ListJobs(c.ctx)
	if err != nil {
		return err
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	if len(jobs) == 0 {
		fmt.Println("(no jobs)")
		return nil
	}
	for _, j := range jobs {
		fmt.Printf("%s  n=%-20s mode=%-16s state=%-10s progress=%5.1f%%\n",
			j.ID[:8], clip(j.N, 20), j.Mode, j.State, j.Progress)
	}
	return nil
}

func (c *console) cmdShow(args []string) error {
	id, err := resolveJobID(args, c.store, c.ctx)
	if err != nil {
		return err
	}
	logs, job, err := c.mgr.Stream(c.ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("job %s\n  n=%s mode=%s state=%s progress=%.1f%% candidate=%s\n",
		job.ID, job.N, job.Mode, job.State, job.Progress, job.CurrentCandidate)
	if job.ErrorMessage != "" {
		fmt.Printf("  error: %s\n", job.ErrorMessage)
	}
	if len(job.Factors) > 0 {
		fmt.Printf("  factors: %s\n", strings.Join(job.Factors, ", "))
	}
	results, err := c.store.ListResults(c.ctx, id)
	if err == nil && len(results) > 0 {
		fmt.Println("  results:")
		for _, r := range results {
			fmt.Printf("    %-24s prime=%-5v algorithm=%-16s %dms\n", r.Factor, r.IsPrime, r.Algorithm, r.ElapsedMillis)
		}
	}
	fmt.Println("  log:")
	for _, l := range logs {
		fmt.Printf("    [%d] %s %-5s %-10s %s\n", l.Sequence, l.Timestamp.Format(time.RFC3339), l.Level, l.Stage, l.Message)
	}
	return nil
}

func (c *console) cmdControl(args []string, action engine.ControlAction) error {
	id, err := resolveJobID(args, c.store, c.ctx)
	if err != nil {
		return err
	}
	job, err := c.mgr.Control(c.ctx, id, action)
	if err != nil {
		return err
	}
	fmt.Printf("job %s is now %s\n", job.ID, job.State)
	return nil
}

func (c *console) cmdCert(args []string) error {
	id, err := resolveJobID(args, c.store, c.ctx)
	if err != nil {
		return err
	}

	var certs [][]byte
	if job, err := c.store.GetJob(c.ctx, id); err == nil && job != nil && len(job.Certificate) > 0 {
		certs = append(certs, job.Certificate)
	}
	results, err := c.store.ListResults(c.ctx, id)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.IsPrime && len(r.Certificate) > 0 {
			certs = append(certs, r.Certificate)
		}
	}
	if len(certs) == 0 {
		return fmt.Errorf("no certificate attached to job %s", id)
	}

	for _, data := range certs {
		cert, err := certificate.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("unmarshalling certificate: %w", err)
		}
		fmt.Printf("certificate for %s (verified=%v, type=%s)\n", cert.N, cert.Verified, cert.Type)
		for i, step := range cert.Steps {
			fmt.Printf("  step %d: %s", i, step.Type)
			if step.Witness != "" {
				fmt.Printf(" witness=%s f=%s r=%s", step.Witness, step.F, step.R)
			}
			if step.Note != "" {
				fmt.Printf(" (%s)", step.Note)
			}
			fmt.Println()
		}
	}
	return nil
}

// resolveJobID accepts either a full job ID or an 8-character prefix as
// printed by `jobs`, disambiguating against the store's full job list.
func resolveJobID(args []string, store engine.Store, ctx context.Context) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("usage: <command> <id>")
	}
	want := args[0]
	if job, err := store.GetJob(ctx, want); err == nil && job != nil {
		return job.ID, nil
	}
	jobs, err := store.ListJobs(ctx)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, j := range jobs {
		if strings.HasPrefix(j.ID, want) {
			matches = append(matches, j.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no job matches id/prefix %q", want)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("prefix %q matches %d jobs, be more specific", want, len(matches))
	}
}
