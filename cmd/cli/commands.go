package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Enochung/PhotoConsolidationBackEndSys/config"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/catalog"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/maintenance"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/metadata"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/report"
)

func newGenerateCmd() *cobra.Command {
	var raw metadata.Raw

	cmd := &cobra.Command{
		Use:   "generate <image>...",
		Short: "Build a report from local image files",
		Example: `  report-cli generate --title "Site A" a.jpg b.jpg c.png
  report-cli generate --title "Site B" --photographer Lin photos/*.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads := make([]report.Upload, 0, len(args))
			for _, path := range args {
				uploads = append(uploads, report.UploadFromFile(path))
			}

			file, err := report.NewGeneratorFromConfig(config.C).Generate(cmd.Context(), raw, uploads)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), file.Path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&raw.Title, "title", "", "Report title")
	f.StringVar(&raw.Description, "description", "", "Description shown in every table")
	f.StringVar(&raw.ShootingTime, "shooting-time", "", "Shooting date (YYYYMMDD), defaults to today")
	f.StringVar(&raw.ShootingLocation, "shooting-location", "", "Shooting location")
	f.StringVar(&raw.Photographer, "photographer", "", "Photographer")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List generated reports in the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := catalog.New(config.C.Storage.WorkDir).ListGenerated()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a file from the working directory by exact name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return catalog.New(config.C.Storage.WorkDir).DeleteNamed(args[0])
		},
	}
}

func newManifestCmd() *cobra.Command {
	var outDir string
	var workers int

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Write a SHA-256 manifest of all generated reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = config.C.Storage.WorkDir
			}
			abs, err := filepath.Abs(outDir)
			if err != nil {
				return err
			}
			path, err := maintenance.NewMaintenance(nil, workers).GenerateFileManifest(cmd.Context(), config.C.Storage.WorkDir, abs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: working directory)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Hash workers (default: number of CPUs)")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove request workspaces left behind by crashed runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("older-than") {
				olderThan = config.C.Storage.StaleWorkspace
			}
			removed, err := maintenance.NewMaintenance(nil, 1).SweepStaleWorkspaces(config.C.StagingPath(), olderThan)
			for _, id := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", time.Hour, "Only remove workspaces older than this")
	return cmd
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [file]",
		Short: "Write the default configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := "config.yaml"
			if len(args) == 1 {
				file = args[0]
			}
			if err := config.WriteDefault(file); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), file)
			return nil
		},
	}
}
