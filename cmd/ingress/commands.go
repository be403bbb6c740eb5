// cmd/ingress/commands.go
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/api"
	"github.com/David-Botos/cyberattack-ingress/pkg/cleaner"
	"github.com/David-Botos/cyberattack-ingress/pkg/connector"
	"github.com/David-Botos/cyberattack-ingress/pkg/merger"
	"github.com/David-Botos/cyberattack-ingress/pkg/phishing"
	"github.com/David-Botos/cyberattack-ingress/pkg/pipeline"
	"github.com/David-Botos/cyberattack-ingress/pkg/report"
)

func (a *app) newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Outer-join the two sources on attack type",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := merger.NewMerger(nil, a.logger)
			if err != nil {
				return err
			}
			result, err := m.MergeFiles(cmd.Context(), pipeline.JobFromConfig(a.cfg.Paths).Merge)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func (a *app) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Clean the merged dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeAudit, err := a.newCleaner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeAudit()

			result, err := c.CleanFile(cmd.Context(), a.cfg.Paths.MergedJSON, a.cfg.Paths.CleanedJSON)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func (a *app) newRunCmd() *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Merge the sources and clean the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := merger.NewMerger(nil, a.logger)
			if err != nil {
				return err
			}
			c, closeAudit, err := a.newCleaner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeAudit()

			runner, err := pipeline.NewRunner(m, c, a.logger)
			if err != nil {
				return err
			}

			summary, runErr := runner.Run(cmd.Context(), pipeline.JobFromConfig(a.cfg.Paths))
			if showMetrics && runner.LastMetrics() != nil {
				fmt.Println(runner.LastMetrics().GenerateMetricsReport())
			}
			if summary != nil {
				if err := printJSON(summary); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			if !summary.Success {
				return fmt.Errorf("pipeline run %s failed verification", summary.RunID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print the stage metrics report")
	return cmd
}

func (a *app) newReportCmd() *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the EDA report of the cleaned dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := report.NewAnalyzer(a.logger).LoadAndAnalyze(a.cfg.Paths.CleanedJSON)
			if err != nil {
				return err
			}

			if publish {
				urls, err := report.Publish(rep, a.cfg.ChartDir(), a.cfg.Server.BaseURL)
				if err != nil {
					return err
				}
				a.logger.Info("Published charts", zap.Int("count", len(urls)), zap.String("dir", a.cfg.ChartDir()))
			}
			return printJSON(rep)
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "Write chart specs into the static directory")
	return cmd
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the EDA and phishing lookup API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.VirusTotal.APIKey == "" {
				a.logger.Warn("VT_API_KEY is not set, phishing lookups will fail")
			}
			checker := phishing.NewClient(a.cfg.VirusTotal, a.logger)

			server, err := api.NewServer(a.cfg, report.NewAnalyzer(a.logger), checker, a.logger)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&a.addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}

// newCleaner builds a cleaner, attached to the audit store when one is
// configured. The returned func releases the store.
func (a *app) newCleaner(ctx context.Context) (*cleaner.DataCleaner, func(), error) {
	audit, err := connector.NewConnectorFactory(a.cfg, a.logger).CreateAuditConnector(ctx)
	if err != nil {
		return nil, nil, err
	}

	if audit == nil {
		c, err := cleaner.NewDataCleaner(nil, nil, a.logger)
		return c, func() {}, err
	}

	c, err := cleaner.NewDataCleaner(audit, nil, a.logger)
	if err != nil {
		audit.Close()
		return nil, nil, err
	}
	return c, func() { audit.Close() }, nil
}
