package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dentclaim/dentclaim/internal/domain/claim"
	"github.com/dentclaim/dentclaim/internal/domain/reference"
	"github.com/dentclaim/dentclaim/internal/platform/db"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, db.MigrationsFS(), logger).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.MigrationsFS(), logger).Status(ctx)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-30s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-30s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the reference tables with a YAML seed",
		Long:  "Loads fee items, billing patterns, drug and material masters, facility standards, receipt code mappings and diagnoses. Without --file the built-in seed is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			seed, err := loadSeed(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := reference.NewService(reference.NewRepoPG(pool), cfg.FeeRevision, cfg.BaselineRevision, logger)
			if err := db.WithTx(ctx, pool, func(ctx context.Context) error {
				return svc.Load(ctx, seed)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d fee items and %d patterns.\n", len(seed.FeeItems), len(seed.Patterns))
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to a seed YAML file")
	return cmd
}

func loadSeed(file string) (*reference.Seed, error) {
	if file == "" {
		return reference.DefaultSeed()
	}
	return reference.LoadSeedFile(file)
}

func receiptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Generate the monthly claim file",
		Long:  "Builds the claim file for every paid billing of --month. With --format uke the Shift_JIS file is written and the billings are marked billed; json writes a preview.",
		RunE: func(cmd *cobra.Command, args []string) error {
			month, _ := cmd.Flags().GetString("month")
			format, _ := cmd.Flags().GetString("format")
			dir, _ := cmd.Flags().GetString("out")
			if month == "" {
				return fmt.Errorf("--month is required")
			}

			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svcs := newServices(cfg, pool, logger, nil)
			var out *claim.Output
			err = db.WithTx(ctx, pool, func(ctx context.Context) error {
				var err error
				out, err = svcs.claim.GenerateMonthly(ctx, month, format)
				return err
			})
			if err != nil {
				return err
			}

			path, err := writeOutput(dir, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("month", "", "Claim month as YYYYMM")
	cmd.Flags().String("format", claim.FormatUKE, "Output format: uke or json")
	cmd.Flags().String("out", ".", "Output directory")
	return cmd
}

// writeOutput writes the claim file, or for json the preview text, into dir.
func writeOutput(dir string, out *claim.Output) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name, data := out.Filename, out.Data
	if out.Format != claim.FormatUKE {
		name = out.Filename + ".csv"
		data = []byte(out.Preview.CSV)
		for _, w := range out.Preview.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write claim file: %w", err)
	}
	return path, nil
}
