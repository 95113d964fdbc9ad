package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/subsort/subsort/internal/config"
	"github.com/subsort/subsort/internal/modules"
	"github.com/subsort/subsort/internal/runner"
	"github.com/subsort/subsort/pkg/version"
)

var (
	opts        config.Options
	headerFlags []string
	allModules  bool
	listModules bool
)

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"input", "modules", "all"}},
	{"RATE-LIMIT", []string{"concurrency", "timeout", "retries", "delay", "adaptive-throttle"}},
	{"HTTP", []string{"header", "user-agent", "proxy", "follow-redirects", "ignore-ssl"}},
	{"OUTPUT", []string{"output", "format", "quiet", "no-color"}},
	{"CONFIGURATION", []string{"resume-file", "list-modules"}},
}

var rootCmd = &cobra.Command{
	Use:     "subsort -i <file> [flags]",
	Short:   "Concurrent subdomain prober with pluggable analysis modules",
	Version: version.Version,
	Long: `subsort probes a list of subdomains over HTTP(S) and runs analysis
modules against each response: status and server fingerprinting, page
titles, auth surfaces, CNAME takeover checks, favicon hashing and more.
Results keep the input order regardless of completion order.`,
	Example: `  subsort -i subdomains.txt
  subsort -i subdomains.txt -m status,server,title
  subsort -i subdomains.txt --all -c 100 -o results.json --format json
  subsort -i subdomains.txt -m cname --format csv -o takeover.csv
  cat subdomains.txt | subsort -m status,title
  subsort -i subdomains.txt --resume-file scan.state`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if listModules {
			return nil
		}
		if allModules {
			opts.Modules = modules.Available()
		}
		stdinPiped := false
		if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
			stdinPiped = true
		}
		if opts.InputFile == "" && !stdinPiped {
			_ = cmd.Help()
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("input required: use -i or pipe hosts on stdin")
		}
		return opts.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if listModules {
			for _, name := range modules.Available() {
				fmt.Println(name)
			}
			return nil
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runner.Run(ctx, &opts)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()

	// Target
	f.StringVarP(&opts.InputFile, "input", "i", "", "File with one subdomain per line (default: stdin)")
	f.StringSliceVarP(&opts.Modules, "modules", "m", nil, "Analysis modules to run (comma-separated, default: status)")
	f.BoolVar(&allModules, "all", false, "Enable every analysis module")

	// Performance
	f.IntVarP(&opts.Concurrency, "concurrency", "c", 50, "Number of concurrent probes")
	f.DurationVar(&opts.Timeout, "timeout", 5*time.Second, "HTTP request timeout")
	f.IntVar(&opts.Retries, "retries", 3, "Retries per host on transient errors")
	f.DurationVar(&opts.Delay, "delay", 0, "Delay between probes per worker")
	f.BoolVar(&opts.AdaptiveThrottle, "adaptive-throttle", false, "Auto back-off on 429/rate limits")

	// HTTP
	f.StringSliceVarP(&headerFlags, "header", "H", nil, "Custom headers (Key: Value)")
	f.StringVar(&opts.UserAgent, "user-agent", "", "Custom User-Agent string (default: rotating pool)")
	f.StringVar(&opts.Proxy, "proxy", "", "HTTP/SOCKS proxy URL")
	f.BoolVar(&opts.FollowRedirects, "follow-redirects", true, "Follow HTTP redirects")
	f.BoolVarP(&opts.IgnoreSSL, "ignore-ssl", "k", false, "Skip TLS certificate verification")

	// Output
	f.StringVarP(&opts.OutputFile, "output", "o", "", "Output file path")
	f.StringVar(&opts.OutputFormat, "format", "text", "Output format: text, json, csv")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Minimal output")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")

	// Resume
	f.StringVar(&opts.ResumeFile, "resume-file", "", "File to save/load scan progress for resume")

	// Module listing
	f.BoolVar(&listModules, "list-modules", false, "Print available modules and exit")

	// Custom help: categorized flags like httpx.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		w := os.Stderr
		fmt.Fprint(w, helpBanner(cmd.Version))
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if f := cmd.Flags().Lookup(name); f != nil {
					fmt.Fprintln(w, formatFlag(f))
				}
			}
		}
		fmt.Fprintln(w)
	})

	// Parse headers from string slice into map in PreRun.
	rootCmd.PreRunE = chainPreRun(func(cmd *cobra.Command, args []string) error {
		if len(headerFlags) > 0 {
			opts.Headers = make(map[string]string, len(headerFlags))
			for _, h := range headerFlags {
				parts := strings.SplitN(h, ":", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid header format %q, expected 'Key: Value'", h)
				}
				opts.Headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			}
		}
		return nil
	}, rootCmd.PreRunE)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// chainPreRun combines two PreRunE functions.
func chainPreRun(first, second func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if first != nil {
			if err := first(cmd, args); err != nil {
				return err
			}
		}
		return second(cmd, args)
	}
}

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	// Pad to fixed column width for aligned descriptions.
	const col = 36
	for len(left) < col {
		left += " "
	}

	right := f.Usage
	// Show default for non-zero values.
	def := f.DefValue
	if def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}

	return "   " + left + right
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf(`
    _____       __   _____            __
   / ___/__  __/ /_ / ___/____  _____/ /_
   \__ \/ / / / __ \\__ \/ __ \/ ___/ __/
  ___/ / /_/ / /_/ /__/ / /_/ / /  / /_
 /____/\__,_/_.___/____/\____/_/   \__/   %s

`, ver)
}
