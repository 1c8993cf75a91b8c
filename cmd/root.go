package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/editiondiff/internal/archive"
	"github.com/lepinkainen/editiondiff/internal/cache"
	"github.com/lepinkainen/editiondiff/internal/config"
	"github.com/lepinkainen/editiondiff/internal/fetch"
	"github.com/lepinkainen/editiondiff/internal/report"
	"github.com/lepinkainen/editiondiff/internal/storefront"
)

// reporter is the part of report.Reporter the commands drive.
type reporter interface {
	Compare(ctx context.Context, code, lang string) error
	Editions(ctx context.Context, code string) error
}

var (
	stdout io.Writer = os.Stdout

	newReporter = func(out io.Writer, settings config.Settings) reporter {
		f := fetch.New(
			fetch.WithTimeout(settings.Timeout),
			fetch.WithRetries(settings.Retries),
			fetch.WithRatePerSecond(settings.RatePerSecond),
			fetch.WithCache(settings.CacheEnabled),
		)
		return report.New(out,
			storefront.NewClient(f, storefront.WithBaseURL(settings.StorefrontURL)),
			archive.NewClient(f,
				archive.WithPrimaryURL(settings.ArchivePrimary),
				archive.WithMirrorURL(settings.ArchiveMirror),
			),
		)
	}
)

// CLI represents the complete command structure for the editiondiff application
type CLI struct {
	Debug bool `help:"Enable debug logging"`

	// Cache flags
	UseCache    bool   `help:"Cache API responses in a local SQLite database"`
	CacheDBFile string `help:"Path to cache SQLite database file (default ./cache.db)"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)"`

	Compare  CompareCmd  `cmd:"" default:"withargs" help:"Compare a product with one of its localized editions (default command)"`
	Editions EditionsCmd `cmd:"" help:"List the localized editions of a product"`
	Cache    CacheCmd    `cmd:"" help:"Manage the response cache"`
}

// CompareCmd represents the compare command
type CompareCmd struct {
	Code string `arg:"" optional:"" help:"Base product code" default:"${default_code}"`
	Lang string `help:"Language tag of the edition to compare against" default:"${default_lang}"`
}

// EditionsCmd represents the editions command
type EditionsCmd struct {
	Code string `arg:"" help:"Product code"`
}

// CacheCmd groups the cache maintenance subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Delete every cached response for a source"`
}

// cliVars feeds the configured defaults into the kong struct tags
var cliVars = kong.Vars{
	"default_code": config.DefaultBaseCode,
	"default_lang": config.DefaultEditionLang,
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx := kong.Parse(&cli,
		kong.Name("editiondiff"),
		kong.Description("Compare a DLsite product with its localized edition on the storefront and the ASMR archive."),
		kong.UsageOnError(),
		cliVars,
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	initLogging(cli.Debug)
	if err := initConfig(); err != nil {
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}
	updateGlobalConfig(&cli)

	err := kctx.Run()
	if closeErr := cache.ResetGlobalCache(); closeErr != nil {
		slog.Warn("Failed to close cache database", "error", closeErr)
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// initConfig registers defaults and reads config.yaml from the working
// directory when one exists. A missing file is not an error and nothing is
// ever written.
func initConfig() error {
	config.SetDefaults()

	viper.SetEnvPrefix("EDITIONDIFF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Debug("Config file not found, using defaults")
			return nil
		}
		return err
	}

	slog.Debug("Using config file", "file", viper.ConfigFileUsed())
	return nil
}

// updateGlobalConfig lets explicitly given flags override config and environment.
func updateGlobalConfig(cli *CLI) {
	if cli.UseCache {
		viper.Set("cache.enabled", true)
	}
	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
	if cli.CacheTTL != "" {
		viper.Set("cache.ttl", cli.CacheTTL)
	}
}

func (c *CompareCmd) Run(ctx context.Context) error {
	return newReporter(stdout, config.Load()).Compare(ctx, c.Code, c.Lang)
}

func (e *EditionsCmd) Run(ctx context.Context) error {
	return newReporter(stdout, config.Load()).Editions(ctx, e.Code)
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	// stdout carries the report, so logs go to stderr
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
