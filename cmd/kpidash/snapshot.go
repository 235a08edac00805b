package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/xela07ax/kpi-dashboard/internal/console/service"
	"github.com/xela07ax/kpi-dashboard/internal/infra"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c := newCore(cfg, nil, logger)
	st, err := c.loader.Load(cmd.Context())
	if st.Blocking() {
		return errors.New(st.Error)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		return enc.Encode(st)
	}
	return enc.Encode(service.NewViewBuilder(cfg.Dashboard.Location()).Dashboard(st))
}
