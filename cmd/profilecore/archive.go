package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/profilecore/internal/domain/archive"
	"github.com/felixgeelhaar/profilecore/internal/domain/profile"
)

var (
	archiveOutput    string
	archiveOverwrite bool
	archiveVariant   string
)

var archiveCmd = &cobra.Command{
	Use:   "archive <target>",
	Short: "Package a profile into a reproducible tar.gz or zip",
	Long: `Archive fetches and classifies target, then packages its
files into a deterministic archive (spec.md's archive generator): fixed
file order, dotfiles excluded, timestamps normalized.

Examples:
  profilecore archive ./my-profile
  profilecore archive ./my-profile --variant zip --output dist/my-profile.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func init() {
	archiveCmd.Flags().StringVar(&archiveOutput, "output", "", "destination path (default: derived from the profile name)")
	archiveCmd.Flags().BoolVar(&archiveOverwrite, "overwrite", false, "overwrite an existing destination")
	archiveCmd.Flags().StringVar(&archiveVariant, "variant", "", "tar.gz or zip (default: tar.gz, or profilecore.toml's default_archive_variant)")
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	requested := archiveVariant
	if requested == "" {
		requested = a.DefaultVariant()
	}
	variant, err := resolveVariant(requested)
	if err != nil {
		return err
	}

	ok, err := a.Archive(context.Background(), args[0], profile.ArchiveOptions{
		Output:    archiveOutput,
		Overwrite: archiveOverwrite,
		Variant:   variant,
	}, profile.Options{})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("archive: destination already exists (use --overwrite)")
	}

	fmt.Println("archive written")
	return nil
}

func resolveVariant(flag string) (archive.Variant, error) {
	switch flag {
	case "", "tar.gz":
		return archive.VariantTarGz, nil
	case "zip":
		return archive.VariantZip, nil
	default:
		return 0, fmt.Errorf("unknown --variant %q: expected tar.gz or zip", flag)
	}
}
