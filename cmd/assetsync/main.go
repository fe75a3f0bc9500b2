package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/handiism/assetsync/internal/app"
	"github.com/handiism/assetsync/internal/assets"
	"github.com/handiism/assetsync/internal/config"
	"github.com/handiism/assetsync/internal/download"
	"github.com/handiism/assetsync/internal/resolve"
)

func main() {
	// Command line flags
	var (
		configFlag      = pflag.String("config", "", "Path to config file (.json, .jsonc, .yaml)")
		packageFlag     = pflag.String("package", "", "Package name (overrides config)")
		hostFlag        = pflag.String("host", "", "Main host URL (overrides config)")
		fallbackFlag    = pflag.String("fallback-host", "", "Fallback host URL (overrides config)")
		cacheDirFlag    = pflag.String("cache-dir", "", "Cache root directory (overrides config)")
		builtinDirFlag  = pflag.String("builtin-dir", "", "Directory of bundles shipped with the client")
		allFlag         = pflag.Bool("all", false, "Download every bundle of the manifest")
		tagsFlag        = pflag.StringSlice("tags", nil, "Download untagged bundles plus bundles with these tags")
		pathsFlag       = pflag.StringSlice("paths", nil, "Download the bundles needed by these asset paths")
		unpackFlag      = pflag.Bool("unpack", false, "Unpack built-in bundles into the cache first")
		concurrencyFlag = pflag.Int("concurrency", 0, "Maximum concurrent downloads (overrides config)")
		retriesFlag     = pflag.Int("retries", -1, "Retries per bundle (overrides config)")
		timeoutFlag     = pflag.Duration("timeout", 0, "Batch timeout (overrides config)")
		timeTicksFlag   = pflag.Bool("append-time-ticks", false, "Append a timestamp to version requests")
		clearFlag       = pflag.String("clear", "", "Clear the cache: all or unused")
		offlineFlag     = pflag.Bool("offline", false, "Use the saved manifest instead of requesting one")
		dryRunFlag      = pflag.Bool("dry-run", false, "Resolve the work list without downloading")
		verboseFlag     = pflag.BoolP("verbose", "v", false, "Show verbose output")
	)

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "assetsync - Sync manifest-described asset bundles into a local cache")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  assetsync [--all | --tags dlc,hd | --paths Assets/A.prefab] [options]")
		fmt.Fprintln(os.Stderr, "  assetsync --clear unused")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "For interactive mode, use: assetsync-tui")
		fmt.Fprintln(os.Stderr)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	selections := 0
	for _, set := range []bool{*allFlag, len(*tagsFlag) > 0, len(*pathsFlag) > 0} {
		if set {
			selections++
		}
	}
	if selections > 1 {
		fmt.Fprintln(os.Stderr, "Error: --all, --tags and --paths are mutually exclusive")
		os.Exit(2)
	}
	if *clearFlag != "" && *clearFlag != "all" && *clearFlag != "unused" {
		fmt.Fprintf(os.Stderr, "Error: --clear must be all or unused, got %q\n", *clearFlag)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Apply flags
	if *packageFlag != "" {
		settings.PackageName = *packageFlag
	}
	if *hostFlag != "" {
		settings.DefaultHostServer = *hostFlag
	}
	if *fallbackFlag != "" {
		settings.FallbackHostServer = *fallbackFlag
	}
	if *cacheDirFlag != "" {
		settings.CacheRoot = *cacheDirFlag
	}
	if *builtinDirFlag != "" {
		settings.BuiltinRoot = *builtinDirFlag
	}
	if *concurrencyFlag > 0 {
		settings.MaxConcurrentDownloads = *concurrencyFlag
	}
	if *retriesFlag >= 0 {
		settings.DownloadMaxRetries = *retriesFlag
	}
	if *timeoutFlag > 0 {
		settings.BatchTimeoutSeconds = int((*timeoutFlag + time.Second - 1) / time.Second)
	}
	if pflag.CommandLine.Changed("append-time-ticks") {
		settings.AppendTimeTicks = *timeTicksFlag
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	pkg, err := app.Open(settings, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	onProgress := func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !*verboseFlag {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "✗ "
		case download.LevelWarning:
			prefix = "! "
		case download.LevelSuccess:
			prefix = "✓ "
		case download.LevelInfo:
			prefix = "› "
		default:
			prefix = "  "
		}

		fmt.Println(prefix + event.Message)
	}

	fmt.Printf("assetsync: package %s\n", settings.PackageName)
	fmt.Println("────────────────────────────────────────")

	if *clearFlag == "all" {
		n, err := pkg.ClearAllCache(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing cache: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed %d cached bundles\n", n)
		return
	}

	if err := activate(ctx, pkg, *offlineFlag, onProgress); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Manifest %s active\n", pkg.PackageVersion())

	if *clearFlag == "unused" {
		n, err := pkg.ClearUnusedCache(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing cache: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed %d unused bundles\n", n)
		return
	}

	if missing, err := pkg.CheckContents(); err != nil {
		fmt.Fprintf(os.Stderr, "Error checking cache: %v\n", err)
		os.Exit(1)
	} else if len(missing) > 0 {
		onProgress(download.ProgressEvent{Message: fmt.Sprintf("%d cached bundles are missing and will be fetched again", len(missing)), Level: download.LevelWarning})
	}

	if *unpackFlag {
		var unpacker *download.Batch
		if len(*tagsFlag) > 0 {
			unpacker, err = pkg.CreateUnpackerByTags(*tagsFlag, onProgress)
		} else {
			unpacker, err = pkg.CreateUnpackerByAll(onProgress)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !*dryRunFlag {
			run(ctx, unpacker, "Unpacked")
		}
	}

	var batch *download.Batch
	switch {
	case len(*pathsFlag) > 0:
		batch, err = pkg.CreateDownloaderByPaths(*pathsFlag, onProgress)
		if errors.Is(err, resolve.ErrInvalidSelection) && batch != nil {
			onProgress(download.ProgressEvent{Message: err.Error(), Level: download.LevelWarning})
			err = nil
		}
	case len(*tagsFlag) > 0:
		batch, err = pkg.CreateDownloaderByTags(*tagsFlag, onProgress)
	default:
		batch, err = pkg.CreateDownloaderByAll(onProgress)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *dryRunFlag {
		fmt.Println("\n[Dry run - not downloading]")
		for _, st := range batch.Items() {
			fmt.Printf("  %s  %s\n", st.Info.Bundle.FileName, st.Info.MainURL)
		}
		p := batch.Progress()
		fmt.Printf("%d bundles, %.2f MB\n", p.ItemsTotal, float64(p.BytesTotal)/1024/1024)
		return
	}

	fmt.Println("\nStarting downloads...")
	fmt.Println()
	run(ctx, batch, "Downloaded")
}

// activate makes a manifest active, falling back to the saved snapshot when
// the hosts cannot be reached.
func activate(ctx context.Context, pkg *assets.Package, offline bool, onProgress func(download.ProgressEvent)) error {
	if offline {
		_, err := pkg.LoadLocalManifest(ctx)
		return err
	}
	_, err := pkg.Update(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	onProgress(download.ProgressEvent{Message: fmt.Sprintf("Update failed, using saved manifest: %v", err), Level: download.LevelWarning})
	if _, lerr := pkg.LoadLocalManifest(ctx); lerr != nil {
		return errors.Join(err, lerr)
	}
	return nil
}

// run executes batch and exits the process on failure.
func run(ctx context.Context, batch *download.Batch, verb string) {
	err := batch.Run(ctx)
	p := batch.Progress()
	if err != nil {
		if errors.Is(err, download.ErrBatchCanceled) {
			fmt.Println("\nDownload cancelled.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "%s %d/%d bundles before stopping\n", verb, p.ItemsDone, p.ItemsTotal)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("────────────────────────────────────────")
	fmt.Printf("%s %d/%d bundles (%.2f MB)\n", verb, p.ItemsDone, p.ItemsTotal, float64(p.BytesDone)/1024/1024)
}
