package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tinychart/internal/config"
	"tinychart/internal/logger"
	"tinychart/internal/models"
	"tinychart/internal/orchestrator"
	"tinychart/internal/server"
	"tinychart/internal/surface"
)

func main() {
	root := &cobra.Command{
		Use:   "tinychart",
		Short: "Lifecycle manager for small embedded chart instances",
	}
	root.AddCommand(newServeCommand(), newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	var definitionsPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chart service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(definitionsPath)
		},
	}
	cmd.Flags().StringVar(&definitionsPath, "definitions", "", "path to a JSON file of chart definitions to load on startup")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.GetVersion())
		},
	}
}

func runServe(definitionsPath string) error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.GetGlobalLogger().WithComponent("main")
	log.Info("starting tinychart", map[string]interface{}{
		"version":     config.GetVersion(),
		"environment": cfg.Environment,
		"port":        cfg.Port,
	})

	defs, err := loadDefinitions(definitionsPath)
	if err != nil {
		return err
	}

	doc := surface.NewDocument()
	for _, def := range defs {
		if doc.Lookup(def.RenderTargetID) == nil {
			if _, err := doc.Create(def.RenderTargetID, "div"); err != nil {
				return fmt.Errorf("failed to create render target %s: %w", def.RenderTargetID, err)
			}
		}
	}

	orch, err := orchestrator.New(ctx, cfg, orchestrator.Deps{Surface: doc})
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}

	orch.Start(ctx)
	if len(defs) > 0 {
		result := orch.Initialize(ctx, defs)
		log.Infof("loaded %d chart definitions (%d failed)", result.Processed, result.Failed)
	}

	srv := server.NewServer(cfg, orch)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("received signal %v, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", err)
	}
	if err := orch.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("orchestrator shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

// loadDefinitions reads chart definitions from a JSON file. An empty path
// yields no definitions; charts can still be migrated or created later.
func loadDefinitions(path string) ([]models.ChartDefinition, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file: %w", err)
	}

	var defs []models.ChartDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse definitions file: %w", err)
	}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("invalid definition in %s: %w", path, err)
		}
	}
	return defs, nil
}
