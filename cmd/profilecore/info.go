package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/profilecore/internal/domain/profile"
)

var (
	infoAttributes []string
	infoJSON       bool
	infoProfileID  string
)

var infoCmd = &cobra.Command{
	Use:   "info <target>",
	Short: "Print normalized profile metadata and controls",
	Long: `Info fetches, classifies, and evaluates target, printing its
normalized metadata, controls (impact-clamped, checks stripped), and
declared attributes.

Examples:
  profilecore info ./my-profile
  profilecore info ./my-profile.tar.gz --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().StringArrayVar(&infoAttributes, "attribute", nil, "attribute binding name=value (can be specified multiple times)")
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output as JSON")
	infoCmd.Flags().StringVar(&infoProfileID, "id", "", "override the profile id")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	bindings, err := parseAttributeFlags(infoAttributes)
	if err != nil {
		return err
	}

	info, err := a.Info(context.Background(), args[0], profile.Options{
		IDOverride: infoProfileID,
		Attributes: bindings,
	})
	if err != nil {
		return err
	}

	if infoJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	printInfoText(info)
	return nil
}

func printInfoText(info *profile.NormalizedParams) {
	fmt.Printf("%s", info.Name)
	if info.Version != "" {
		fmt.Printf(" (%s)", info.Version)
	}
	fmt.Println()
	if info.Summary != "" {
		fmt.Println(info.Summary)
	}

	ids := make([]string, 0, len(info.Controls))
	for id := range info.Controls {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("\nControls (%d):\n", len(ids))
	for _, id := range ids {
		c := info.Controls[id]
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %-30s impact=%.1f %s\n", id, c.Impact, title)
	}
}

func parseAttributeFlags(raw []string) (map[string]any, error) {
	bindings := map[string]any{}
	for _, item := range raw {
		name, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --attribute %q: expected name=value", item)
		}
		bindings[name] = value
	}
	return bindings, nil
}
