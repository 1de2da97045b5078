// Package main is the entry point for the variable resolution engine
// service and the test-case lint tool.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pollyan/intent-test-tools-sub001/pkg/api"
	"github.com/pollyan/intent-test-tools-sub001/pkg/engine"
	"github.com/pollyan/intent-test-tools-sub001/pkg/testcase"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "intent-engine",
	Short: "Variable resolution engine for AI-assisted web UI tests",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resolution engine HTTP service",
	RunE:  runServe,
}

var lintCmd = &cobra.Command{
	Use:   "lint [files...]",
	Short: "Check test-case files for reference and schema problems",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLint,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("intent-engine version {{.Version}}\n")

	serveCmd.Flags().Int("port", 0, "HTTP server port (default 8791, env PORT)")
	serveCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	serveCmd.Flags().Int("suggest-limit", 0, "Max entries per suggestion query (default 10, env SUGGEST_LIMIT)")

	lintCmd.Flags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lintCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	port := envOrDefault("PORT", "8791")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	suggestLimit := 0
	if v := os.Getenv("SUGGEST_LIMIT"); v != "" {
		fmt.Sscanf(v, "%d", &suggestLimit)
	}
	if v, _ := cmd.Flags().GetInt("suggest-limit"); v != 0 {
		suggestLimit = v
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	eng := engine.New(engine.Config{SuggestLimit: suggestLimit})
	server := api.New(eng)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down engine...")
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Resolution engine listening on %s", addr)
	return server.Listen(addr)
}

func runLint(cmd *cobra.Command, args []string) error {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		color.NoColor = true
	}

	errMark := color.New(color.FgRed, color.Bold).SprintFunc()
	warnMark := color.New(color.FgYellow, color.Bold).SprintFunc()
	okMark := color.New(color.FgGreen, color.Bold).SprintFunc()

	failed := false
	for _, path := range args {
		tc, err := testcase.LoadFile(path)
		if err != nil {
			fmt.Printf("%s %s: %v\n", errMark("FAIL"), path, err)
			failed = true
			continue
		}

		issues := testcase.Lint(tc)
		if len(issues) == 0 {
			fmt.Printf("%s %s (%d steps)\n", okMark("OK"), path, len(tc.Steps))
			continue
		}

		if testcase.HasErrors(issues) {
			fmt.Printf("%s %s\n", errMark("FAIL"), path)
			failed = true
		} else {
			fmt.Printf("%s %s\n", warnMark("WARN"), path)
		}
		for _, issue := range issues {
			mark := warnMark("warning")
			if issue.Severity == "error" {
				mark = errMark("error")
			}
			fmt.Printf("  %s %s: %s\n", mark, issue.Path, issue.Message)
		}
	}

	if failed {
		return fmt.Errorf("lint found errors")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
