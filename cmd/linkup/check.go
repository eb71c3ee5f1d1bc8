package main

import (
	"context"
	"errors"
	"time"

	"github.com/linkupcampus/linkup/internal/app"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the Airtable tables with the configured credentials",
	RunE:  runCheck,
}

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Recreate the audit log tables",
	RunE:  runInitdb,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initdbCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	application := app.NewApplication(cfg)
	if err := application.InitServices(); err != nil {
		return err
	}
	defer application.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	status := application.ProbeUpstream(ctx)
	for _, res := range []app.ProbeResult{status.Services, status.Users} {
		if res.OK {
			cmd.Printf("%-20s ok (%s)\n", res.Table, res.Latency)
		} else {
			cmd.Printf("%-20s FAILED: %s\n", res.Table, res.Error)
		}
	}
	if !status.Healthy() {
		return errors.New("upstream check failed")
	}
	return nil
}

func runInitdb(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return errors.New("database is disabled in the config")
	}
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		return err
	}
	defer application.Release()
	if err := application.InitDb(); err != nil {
		return err
	}
	cmd.Println("audit tables recreated")
	return nil
}
