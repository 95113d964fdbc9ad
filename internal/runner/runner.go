package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/subsort/subsort/internal/config"
	"github.com/subsort/subsort/internal/hostlist"
	"github.com/subsort/subsort/internal/modules"
	"github.com/subsort/subsort/internal/output"
	"github.com/subsort/subsort/internal/resume"
	"github.com/subsort/subsort/internal/scanner"
	"github.com/subsort/subsort/pkg/version"
)

// Run executes the full scan pipeline: read hosts, probe them through the
// bounded scheduler, and hand the ordered result to the output writer.
func Run(ctx context.Context, opts *config.Options) error {
	// 1. Validate configuration before touching the network.
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 2. Load and normalize the host list.
	hosts, err := hostlist.Load(opts.InputFile)
	if err != nil {
		return err
	}

	// 3. Build the enabled modules in fixed priority order. Defaults to
	// the status module, mirroring a bare invocation.
	if len(opts.Modules) == 0 {
		if !opts.Quiet {
			fmt.Fprintf(os.Stderr, "[*] No modules specified, enabling status\n")
		}
		opts.Modules = []string{"status"}
	}
	transport, err := scanner.NewTransport(opts)
	if err != nil {
		return fmt.Errorf("creating transport: %w", err)
	}
	defer transport.Close()

	mods, err := modules.Build(opts.Modules, transport)
	if err != nil {
		return fmt.Errorf("invalid module configuration: %w", err)
	}

	// 4. Resume support: skip hosts a previous interrupted run finished.
	var resumeState *resume.State
	if opts.ResumeFile != "" {
		existing, err := resume.Load(opts.ResumeFile)
		if err != nil {
			return err
		}
		if existing != nil {
			resumeState = existing
			if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "[+] Resuming: %d hosts already completed\n", len(existing.CompletedHosts))
			}
		} else {
			resumeState = resume.New(opts.ResumeFile, len(hosts))
		}
	}

	// 5. Banner.
	if !opts.Quiet {
		printBanner(opts, len(hosts), mods)
	}

	// 6. Pause toggle (Enter/Space) when stdin is a terminal and not
	// already consumed by host input.
	var pauser *scanner.Pauser
	cleanup := func() {}
	if opts.InputFile != "" {
		pauser, cleanup = startStdinToggle(opts.Quiet)
	}
	defer cleanup()

	// 7. Run the scheduler.
	progress := output.NewProgress(len(hosts), opts.Quiet)
	progress.Start()

	sched := &scanner.Scheduler{
		Opts:      opts,
		Transport: transport,
		Modules:   mods,
		Retry:     scanner.NewRetryPolicy(opts.Retries),
		Throttler: scanner.NewThrottler(opts.Delay, opts.AdaptiveThrottle, opts.Quiet),
		Pauser:    pauser,
		Progress:  progress.Observe,
	}
	if resumeState != nil {
		sched.Skip = resumeState.IsCompleted
	}

	result, err := sched.Run(ctx, hosts)
	progress.Stop()
	if err != nil {
		return err
	}

	// 8. Persist or clear resume state.
	if resumeState != nil {
		for i := range result.Records {
			resumeState.MarkCompleted(hostName(&result.Records[i]))
		}
		if result.Cancelled {
			if err := resumeState.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "[!] Could not save resume state: %v\n", err)
			} else if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "\n[*] Progress saved to %s — rerun with --resume-file to continue\n", opts.ResumeFile)
			}
		} else {
			_ = resumeState.Remove()
		}
	}

	// 9. Render the result.
	out, err := output.New(opts.OutputFormat, opts.OutputFile, opts.NoColor, opts.Quiet)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := out.WriteHeader(result); err != nil {
		return err
	}
	for i := range result.Records {
		if err := out.WriteRecord(&result.Records[i], result.FieldNames); err != nil {
			return err
		}
	}
	if err := out.WriteFooter(result); err != nil {
		return err
	}

	if !opts.Quiet {
		printSummary(opts, result)
	}
	return nil
}

// hostName extracts the normalized hostname from a record's original input.
func hostName(rec *scanner.Record) string {
	h, err := hostlist.Normalize(rec.Host)
	if err != nil {
		return rec.Host
	}
	return h.Name
}

func printSummary(opts *config.Options, result *scanner.ScanResult) {
	accessible := 0
	failed := 0
	for i := range result.Records {
		if result.Records[i].Failed() {
			failed++
		} else if result.Records[i].Accessible {
			accessible++
		}
	}
	fmt.Fprintf(os.Stderr, "\n[+] Scan complete: %d/%d hosts, %d accessible, %d unreachable (%s)\n",
		result.Completed, result.Total, accessible, failed, result.Duration.Round(10*time.Millisecond))
	if opts.OutputFile != "" {
		fmt.Fprintf(os.Stderr, "[+] Results saved to %s\n", opts.OutputFile)
	}
}

func printBanner(opts *config.Options, hostCount int, mods []scanner.Module) {
	const (
		cyan  = "\033[36m"
		white = "\033[97m"
		dim   = "\033[2m"
		reset = "\033[0m"
	)

	c, w, d, rs := cyan, white, dim, reset
	if opts.NoColor {
		c, w, d, rs = "", "", "", ""
	}

	fmt.Fprintf(os.Stderr, `
%s   _____       __   _____            __  %s
%s  / ___/__  __/ /_ / ___/____  _____/ /_ %s
%s  \__ \/ / / / __ \\__ \/ __ \/ ___/ __/ %s
%s ___/ / /_/ / /_/ /__/ / /_/ / /  / /_   %s
%s/____/\__,_/_.___/____/\____/_/   \__/   %s %sv%s%s
%s                                         %s
%s    Subdomain Reconnaissance Scanner     %s
`,
		c, rs,
		c, rs,
		c, rs,
		c, rs,
		c, rs, d, version.Version, rs,
		c, rs,
		w, rs,
	)

	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = m.Name()
	}

	fmt.Fprintf(os.Stderr, "%s  ───────────────────────────────────────%s\n", d, rs)
	fmt.Fprintf(os.Stderr, "  %sHosts:%s       %d\n", d, rs, hostCount)
	fmt.Fprintf(os.Stderr, "  %sModules:%s     %s\n", d, rs, strings.Join(names, ", "))
	fmt.Fprintf(os.Stderr, "  %sConcurrency:%s %d\n", d, rs, opts.Concurrency)
	fmt.Fprintf(os.Stderr, "  %sTimeout:%s     %s\n", d, rs, opts.Timeout)
	if opts.Retries > 0 {
		fmt.Fprintf(os.Stderr, "  %sRetries:%s     %d\n", d, rs, opts.Retries)
	}
	if opts.Delay > 0 {
		fmt.Fprintf(os.Stderr, "  %sDelay:%s       %s\n", d, rs, opts.Delay)
	}
	fmt.Fprintf(os.Stderr, "%s  ───────────────────────────────────────%s\n\n", d, rs)
}
