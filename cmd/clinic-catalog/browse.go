package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/globalmed/clinic-catalog/internal/ui"
	"github.com/globalmed/clinic-catalog/pkg/catalog"
	"github.com/globalmed/clinic-catalog/pkg/logging"
	"github.com/globalmed/clinic-catalog/pkg/pager"
)

var (
	browseSearch         string
	browseSpecialization string
	browseLocale         string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse doctors in the terminal",
	Long: `Opens the doctors list. Keys:
  m, enter  show more
  /         search
  r         retry after an error
  q         quit`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseSearch, "search", "", "initial search text")
	browseCmd.Flags().StringVar(&browseSpecialization, "specialization", "", "specialization filter")
	browseCmd.Flags().StringVar(&browseLocale, "lang", "", "locale (ru, uz); defaults to the configured locale")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// The terminal is the screen now
	logger = logging.Setup(logging.Config{Level: logging.LevelDisabled})

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

	ctrl, err := pager.New(catalog.NewService(apiClient).Doctors(), cfg.PagerOptions("doctors"))
	if err != nil {
		return fmt.Errorf("create doctors list: %w", err)
	}

	locale := browseLocale
	if locale == "" {
		locale = cfg.Locale
	}

	return ui.Run(ui.Options{
		Context:    ctx,
		Controller: ctrl,
		Filters: catalog.DoctorFilters{
			Search:         browseSearch,
			Specialization: browseSpecialization,
			Locale:         locale,
		},
	})
}
