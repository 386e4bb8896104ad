package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/profilecore/internal/domain/profile"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check <target>",
	Short: "Validate a profile without archiving it",
	Long: `Check fetches, classifies, and evaluates target, reporting a
structured summary of validation errors and warnings.

Exit codes:
  0 - valid
  1 - validation errors present
  2 - fetch/resolution failure
  3 - unexpected internal error

Examples:
  profilecore check ./my-profile
  profilecore check ./my-profile --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	report, err := a.Check(context.Background(), args[0], profile.Options{})
	if err != nil {
		return err
	}

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printCheckText(report)
	}

	if !report.Summary.Valid {
		os.Exit(1)
	}
	return nil
}

func printCheckText(report profile.CheckReport) {
	if report.Summary.Valid {
		fmt.Printf("valid: %s (%d controls)\n", report.Summary.Profile, report.Summary.Controls)
	} else {
		fmt.Printf("invalid: %s (%d controls)\n", report.Summary.Profile, report.Summary.Controls)
	}
	for _, e := range report.Errors {
		fmt.Printf("  error: %s\n", formatDiagnostic(e))
	}
	for _, w := range report.Warnings {
		fmt.Printf("  warning: %s\n", formatDiagnostic(w))
	}
}

func formatDiagnostic(d profile.Diagnostic) string {
	loc := ""
	if d.File != "" {
		loc = fmt.Sprintf("%s:%d: ", d.File, d.Line)
	}
	if d.ControlID != "" {
		return fmt.Sprintf("%s[%s] %s", loc, d.ControlID, d.Msg)
	}
	return loc + d.Msg
}
