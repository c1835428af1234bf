package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:           "frameScope",
	Short:         "Hierarchical scope profiler for frame loops",
	Long:          `frameScope measures named, nested scopes per goroutine and reports them as a tree, to a terminal, a msgpack stream, Prometheus or Pyroscope.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(decodeCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// applyColor sets the global color mode from an auto|on|off value.
func applyColor(mode string) {
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stdout)
	}
}

type bannerInfo struct {
	appName      string
	pyroscopeURL string
	metricsAddr  string
	frames       int
	workers      int
	simulate     bool
	interval     float64
	batchLimit   int
	concurrent   int
	exclude      string
	tags         map[string]string
	debug        bool
}

func printWelcomeBanner(w io.Writer, info bannerInfo) {
	bannerLines := []string{
		"    ____                           _____                      ",
		"   / __/________ _____ ___  ___   / ___/_________  ____  ___ ",
		"  / /_/ ___/ __ `/ __ `__ \\/ _ \\  \\__ \\/ ___/ __ \\/ __ \\/ _ \\",
		" / __/ /  / /_/ / / / / / /  __/ ___/ / /__/ /_/ / /_/ /  __/",
		"/_/ /_/   \\__,_/_/ /_/ /_/\\___/ /____/\\___/\\____/ .___/\\___/ ",
		"                                               /_/           ",
	}

	banner := color.New(color.FgYellow)
	for _, line := range bannerLines {
		banner.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	label := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintln(w, "Starting frameScope with configuration:")
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "%s %s\n", label("Application Name:  "), info.appName)
	fmt.Fprintf(w, "%s %d (workers: %d, simulated clock: %v)\n", label("Frames:            "), info.frames, info.workers, info.simulate)
	if info.pyroscopeURL != "" {
		fmt.Fprintf(w, "%s %s\n", label("Pyroscope URL:     "), info.pyroscopeURL)
		fmt.Fprintf(w, "%s %.2f sec\n", label("Update Interval:   "), info.interval)
		fmt.Fprintf(w, "%s %d\n", label("Batch Limit:       "), info.batchLimit)
		fmt.Fprintf(w, "%s %d\n", label("Concurrent Limit:  "), info.concurrent)
	}
	if info.metricsAddr != "" {
		fmt.Fprintf(w, "%s %s\n", label("Metrics Address:   "), info.metricsAddr)
	}
	if info.exclude != "" {
		fmt.Fprintf(w, "%s %s\n", label("Exclude Pattern:   "), info.exclude)
	}
	if len(info.tags) > 0 {
		fmt.Fprintf(w, "%s\n", label("Tags:"))
		keys := make([]string, 0, len(info.tags))
		for k := range info.tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "   |- %s: %s\n", k, info.tags[k])
		}
	}
	fmt.Fprintf(w, "%s %v\n", label("Debug Mode:        "), info.debug)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w)
}

// parseTag splits a "key=value" string into separate key and value.
// Returns empty strings if the format is invalid.
func parseTag(tag string) (string, string) {
	parts := strings.Split(tag, "=")
	if len(parts) != 2 {
		return "", ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}
