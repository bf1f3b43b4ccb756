// Package cfg binds the kernel simulator's tunables to flags and an optional
// YAML config file, in the style of gcsfuse's generated cfg package: a
// plain struct decorated with yaml tags, unmarshaled by viper after the
// flags are parsed.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eduos/eduos/internal/fsdisk"
)

// maxDirectFilesize is the largest file size representable with no
// indirect blocks (spec glossary: "Direct block ... no indirect blocks
// exist"): INODE_NDIRECT direct blocks of BlockSize bytes each.
const maxDirectFilesize = int64(fsdisk.InodeNDirect) * fsdisk.BlockSize

type Config struct {
	Kernel     KernelConfig     `yaml:"kernel"`
	VM         VMConfig         `yaml:"vm"`
	FileSystem FileSystemConfig `yaml:"file-system"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Debug      DebugConfig      `yaml:"debug"`
}

type KernelConfig struct {
	// Size of the static task-control-block table.
	MaxTasks int `yaml:"max-tasks"`

	// Per-task open-file table size. Parsed and bound to a flag, but not
	// passed on: internal/fs sizes every table at fs.DefaultMaxOpenFiles.
	MaxOpenFiles int `yaml:"max-open-files"`
}

type VMConfig struct {
	// Number of physical frames available for demand paging before the
	// random-eviction policy kicks in.
	PageablePages int `yaml:"pageable-pages"`

	// Seed for the eviction victim RNG. Zero means "seed from the wall
	// clock (time.Now().UnixNano()) at boot", matching the non-deterministic production
	// default; a nonzero seed pins victim selection for tests.
	RandSeed int64 `yaml:"rand-seed"`
}

type FileSystemConfig struct {
	MaxInodes     int    `yaml:"max-inodes"`
	MaxFilesize   int64  `yaml:"max-filesize"`
	DiskImagePath string `yaml:"disk-image-path"`

	// Number of data blocks the format reserves; must match the image's
	// layout on mount or fs.Init reformats (spec §4.5's fs_init contract).
	NDataBlocks int `yaml:"n-data-blocks"`
}

type LoggingConfig struct {
	// "text" or "json", forwarded to internal/logger.Options.Format.
	Format string `yaml:"format"`

	// One of TRACE/DEBUG/INFO/WARNING/ERROR.
	Severity string `yaml:"severity"`

	// Path to a log file; empty means stderr.
	FilePath string `yaml:"file-path"`

	// Megabytes per rotated log file (lumberjack.Logger.MaxSize).
	MaxSizeMB int `yaml:"max-size-mb"`
}

type MetricsConfig struct {
	// Enables the OpenTelemetry+Prometheus MetricHandle; the no-op handle
	// otherwise.
	Enabled bool `yaml:"enabled"`

	// Port the Prometheus scrape endpoint listens on.
	PrometheusPort int `yaml:"prometheus-port"`
}

// DebugConfig's fields are parsed and bound to flags, but no component
// reads them: neither setting changes the simulator's behaviour.
type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	LogMutex bool `yaml:"log-mutex"`
}

// BindFlags registers every Config field as a pflag and binds it into viper,
// mirroring gcsfuse's generated cfg.BindFlags.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.IntP("max-tasks", "", 64, "Size of the static task table.")
	if err = viper.BindPFlag("kernel.max-tasks", flagSet.Lookup("max-tasks")); err != nil {
		return err
	}

	flagSet.IntP("max-open-files", "", 16, "Per-task open-file table size. This flag is currently unused; tables have 16 entries.")
	if err = viper.BindPFlag("kernel.max-open-files", flagSet.Lookup("max-open-files")); err != nil {
		return err
	}

	flagSet.IntP("pageable-pages", "", 256, "Physical frames available before eviction begins.")
	if err = viper.BindPFlag("vm.pageable-pages", flagSet.Lookup("pageable-pages")); err != nil {
		return err
	}

	flagSet.Int64P("rand-seed", "", 0, "Seed for the eviction RNG; 0 seeds from the wall clock at boot.")
	if err = viper.BindPFlag("vm.rand-seed", flagSet.Lookup("rand-seed")); err != nil {
		return err
	}

	flagSet.IntP("max-inodes", "", 256, "Number of inodes the filesystem format reserves.")
	if err = viper.BindPFlag("file-system.max-inodes", flagSet.Lookup("max-inodes")); err != nil {
		return err
	}

	flagSet.Int64P("max-filesize", "", maxDirectFilesize, "Maximum bytes per file.")
	if err = viper.BindPFlag("file-system.max-filesize", flagSet.Lookup("max-filesize")); err != nil {
		return err
	}

	flagSet.StringP("disk-image-path", "", "eduos.img", "Path to the backing disk image.")
	if err = viper.BindPFlag("file-system.disk-image-path", flagSet.Lookup("disk-image-path")); err != nil {
		return err
	}

	flagSet.IntP("n-data-blocks", "", 1024, "Number of data blocks the filesystem format reserves.")
	if err = viper.BindPFlag("file-system.n-data-blocks", flagSet.Lookup("n-data-blocks")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "text", "Log encoding: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", "INFO", "Minimum severity logged: TRACE, DEBUG, INFO, WARNING, or ERROR.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to a log file; empty logs to stderr.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.IntP("log-rotate-max-size-mb", "", 10, "Megabytes per rotated log file.")
	if err = viper.BindPFlag("logging.max-size-mb", flagSet.Lookup("log-rotate-max-size-mb")); err != nil {
		return err
	}

	flagSet.BoolP("metrics", "", false, "Serve Prometheus metrics via OpenTelemetry instead of the no-op handle.")
	if err = viper.BindPFlag("metrics.enabled", flagSet.Lookup("metrics")); err != nil {
		return err
	}

	flagSet.IntP("metrics-port", "", 9090, "Port the Prometheus scrape endpoint listens on.")
	if err = viper.BindPFlag("metrics.prometheus-port", flagSet.Lookup("metrics-port")); err != nil {
		return err
	}

	flagSet.BoolP("debug_invariants", "", false, "Exit when internal invariants are violated. This flag is currently unused.")
	if err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug_invariants")); err != nil {
		return err
	}

	flagSet.BoolP("debug_mutex", "", false, "Print debug messages when a critical section is held too long. This flag is currently unused.")
	if err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug_mutex")); err != nil {
		return err
	}

	// Legacy flags from an earlier revision of this simulator, kept only so
	// scripts that still pass them get a deprecation message instead of a
	// flag-parse error.
	flagSet.BoolP("single-indirect-blocks", "", false, "This flag is currently unused.")
	if err = flagSet.MarkDeprecated("single-indirect-blocks", "Indirect blocks were never implemented; this flag has no effect."); err != nil {
		return err
	}

	flagSet.BoolP("preemptive-scheduling", "", false, "This flag is currently unused.")
	if err = flagSet.MarkDeprecated("preemptive-scheduling", "The scheduler is cooperative only; this flag has no effect."); err != nil {
		return err
	}

	return nil
}

// Default returns the configuration BindFlags would produce with no flags
// or config file supplied. Used directly by tests that construct a Kernel
// without going through cmd.
func Default() Config {
	return Config{
		Kernel: KernelConfig{
			MaxTasks:     64,
			MaxOpenFiles: 16,
		},
		VM: VMConfig{
			PageablePages: 256,
		},
		FileSystem: FileSystemConfig{
			MaxInodes:     256,
			MaxFilesize:   maxDirectFilesize,
			DiskImagePath: "eduos.img",
			NDataBlocks:   1024,
		},
		Logging: LoggingConfig{
			Format:    "text",
			Severity:  "INFO",
			MaxSizeMB: 10,
		},
		Metrics: MetricsConfig{
			PrometheusPort: 9090,
		},
	}
}
