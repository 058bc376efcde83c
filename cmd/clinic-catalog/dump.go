package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/globalmed/clinic-catalog/pkg/catalog"
	"github.com/globalmed/clinic-catalog/pkg/client"
	"github.com/globalmed/clinic-catalog/pkg/pagination"
)

var (
	dumpSearch         string
	dumpSpecialization string
	dumpLocale         string
	dumpPerPage        int
	dumpMaxPages       int
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write a catalog collection to stdout as JSON",
}

var dumpDoctorsCmd = &cobra.Command{
	Use:   "doctors",
	Short: "Fetch every doctors page and write the merged list",
	Long: `Fetches page 1, then the remaining pages in parallel, and writes the
deduplicated doctors in page order. Pages that fail are reported and the
command exits non-zero after writing what was fetched.`,
	Args: cobra.NoArgs,
	RunE: runDumpDoctors,
}

var dumpCheckupsCmd = &cobra.Command{
	Use:   "checkups",
	Short: "Write all check-up programs",
	Args:  cobra.NoArgs,
	RunE:  runDumpCheckups,
}

var dumpAnalysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Write all laboratory analyses",
	Args:  cobra.NoArgs,
	RunE:  runDumpAnalyses,
}

var dumpAnalysisCmd = &cobra.Command{
	Use:   "analysis [slug]",
	Short: "Write a single laboratory analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpAnalysis,
}

func init() {
	dumpDoctorsCmd.Flags().StringVar(&dumpSearch, "search", "", "search text")
	dumpDoctorsCmd.Flags().StringVar(&dumpSpecialization, "specialization", "", "specialization filter")
	dumpDoctorsCmd.Flags().IntVar(&dumpPerPage, "per-page", 0, "page size requested from the API (0 = server default)")
	dumpDoctorsCmd.Flags().IntVar(&dumpMaxPages, "max-pages", 0, "stop after this many pages (0 = batch default)")
	dumpCmd.PersistentFlags().StringVar(&dumpLocale, "lang", "", "locale (ru, uz); defaults to the configured locale")

	dumpCmd.AddCommand(dumpDoctorsCmd, dumpCheckupsCmd, dumpAnalysesCmd, dumpAnalysisCmd)
}

// withService connects the API client for the duration of fn.
func withService(cmd *cobra.Command, fn func(*catalog.Service) error) error {
	ctx := cmd.Context()

	rdb, err := connectRedis(ctx, cfg, false)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	apiClient, err := newAPIClient(cfg, rdb)
	if err != nil {
		return err
	}
	defer apiClient.Close()

	return fn(catalog.NewService(apiClient))
}

func dumpLocaleOrDefault() string {
	if dumpLocale != "" {
		return dumpLocale
	}
	return cfg.Locale
}

func localeContext(cmd *cobra.Command) context.Context {
	return client.WithLocale(cmd.Context(), dumpLocaleOrDefault())
}

func runDumpDoctors(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(svc *catalog.Service) error {
		batchCfg := pagination.DefaultConfig()
		batchCfg.MaxConcurrency = cfg.BatchConcurrency
		batchCfg.Timeout = cfg.RequestTimeout
		if dumpMaxPages > 0 {
			batchCfg.MaxPages = dumpMaxPages
		}

		filters := catalog.DoctorFilters{
			Search:         dumpSearch,
			Specialization: dumpSpecialization,
			Locale:         dumpLocaleOrDefault(),
			PerPage:        dumpPerPage,
		}.Filters()

		res, fetchErr := pagination.NewBatchFetcher(svc.Doctors(), batchCfg).FetchAll(cmd.Context(), filters)
		if res == nil {
			return fetchErr
		}

		logger.Info().
			Int("doctors", len(res.Items)).
			Int("pages", res.FetchedPages).
			Int("total_pages", res.TotalPages).
			Ints("failed_pages", res.FailedPages).
			Msg("Doctors dumped")

		if err := writeJSON(cmd.OutOrStdout(), res.Items); err != nil {
			return err
		}
		return fetchErr
	})
}

func runDumpCheckups(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(svc *catalog.Service) error {
		checkups, err := svc.ListCheckups(localeContext(cmd))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), checkups)
	})
}

func runDumpAnalyses(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(svc *catalog.Service) error {
		analyses, err := svc.ListAnalyses(localeContext(cmd))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), analyses)
	})
}

func runDumpAnalysis(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(svc *catalog.Service) error {
		analysis, err := svc.GetAnalysis(localeContext(cmd), args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), analysis)
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
