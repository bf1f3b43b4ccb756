// Package cmd wires internal/cfg, internal/logger and internal/metrics into
// a github.com/spf13/cobra root command, exactly as the teacher's own
// cmd/root.go wires gcsfuse's cfg.Config: cobra.OnInitialize, a persistent
// --config-file flag, viper.Unmarshal into a package-level BootConfig.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eduos/eduos/internal/cfg"
	"github.com/eduos/eduos/internal/diskimage"
	"github.com/eduos/eduos/internal/fsdisk"
	"github.com/eduos/eduos/internal/kernel"
	"github.com/eduos/eduos/internal/kernel/blockdev"
	"github.com/eduos/eduos/internal/logger"
	"github.com/eduos/eduos/internal/metrics"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	BootConfig    cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "eduosd",
	Short: "Run the eduos kernel simulator against a disk image",
	Long: `eduosd boots the eduos kernel simulator: a cooperative scheduler,
demand-paged virtual memory, mailboxes, and an on-disk filesystem, all
running as goroutines over a disk image built by cmd/mkimage.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		return run(BootConfig)
	},
}

// run constructs and boots exactly one Kernel, per SPEC_FULL.md's "cmd/eduosd
// constructs exactly one Kernel at boot" contract.
func run(c cfg.Config) error {
	logger.Init(logger.Options{
		Format:  c.Logging.Format,
		Level:   c.Logging.Severity,
		LogFile: c.Logging.FilePath,
		MaxSize: c.Logging.MaxSizeMB,
	})

	metricHandle, shutdown, err := selectMetrics(c)
	if err != nil {
		return fmt.Errorf("configuring metrics: %w", err)
	}
	if shutdown != nil {
		defer func() {
			if err := shutdown(); err != nil {
				logger.Errorf("metrics: shutdown: %v", err)
			}
		}()
	}

	dev, err := blockdev.OpenFile(c.FileSystem.DiskImagePath)
	if err != nil {
		return fmt.Errorf("opening disk image %q: %w", c.FileSystem.DiskImagePath, err)
	}
	defer dev.Close()

	layout, err := diskLayout(dev, c)
	if err != nil {
		return err
	}

	k, err := kernel.New(c, kernel.Options{
		Dev:         dev,
		Metrics:     metricHandle,
		Layout:      layout,
		NDataBlocks: c.FileSystem.NDataBlocks,
	})
	if err != nil {
		return fmt.Errorf("constructing kernel: %w", err)
	}

	k.Boot()
	return nil
}

// diskLayout reads the kernel region's sector count that cmd/mkimage
// patched into the bootblock and derives where the filesystem region
// begins (spec §4.6/§6: bootblock, then the kernel region, then the
// filesystem region).
func diskLayout(dev *blockdev.File, c cfg.Config) (fsdisk.Layout, error) {
	buf := make([]byte, blockdev.SectorSize)
	if err := dev.ReadSector(0, buf); err != nil {
		return fsdisk.Layout{}, fmt.Errorf("reading bootblock: %w", err)
	}
	kernelSectors := diskimage.KernelSectors(buf)
	return fsdisk.Layout{
		SuperBlockStart: 1 + int64(kernelSectors),
		MaxInodes:       c.FileSystem.MaxInodes,
	}, nil
}

// selectMetrics returns the no-op MetricHandle unless --metrics was
// passed, in which case it installs the OpenTelemetry+Prometheus
// provider and returns its shutdown func, mirroring the teacher's
// handle-selection pattern in common/otel_metrics.go.
func selectMetrics(c cfg.Config) (metrics.MetricHandle, func() error, error) {
	if !c.Metrics.Enabled {
		return metrics.NewNoopMetrics(), nil, nil
	}

	handler, shutdown, err := metrics.SetupPrometheusProvider()
	if err != nil {
		return nil, nil, err
	}
	addr := fmt.Sprintf(":%d", c.Metrics.PrometheusPort)
	go serveMetrics(addr, handler)

	handle, err := metrics.NewOTelMetrics()
	if err != nil {
		return nil, nil, err
	}
	return handle, func() error { return shutdown(context.Background()) }, nil
}

// serveMetrics runs the Prometheus scrape endpoint for the lifetime of the
// process. A listener failure is logged, not fatal: metrics are purely
// observational and must never affect kernel control flow.
func serveMetrics(addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Errorf("metrics: server exited: %v", err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the config file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&BootConfig)
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("error while reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&BootConfig)
}
