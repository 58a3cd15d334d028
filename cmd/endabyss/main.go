// Command endabyss crawls a web application, discovering endpoints, forms,
// and parameters within the configured scope. See internal/controller for
// the orchestration this binary wires up.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/endabyss/endabyss/internal/config"
	"github.com/endabyss/endabyss/internal/controller"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("endabyss", flag.ContinueOnError)

	var targets stringSliceFlag
	fs.Var(&targets, "t", "Target URL (repeatable or comma-separated)")
	fs.Var(&targets, "target", "Target URL (repeatable or comma-separated)")
	targetFile := fs.String("tf", "", "File of target URLs, one per line")
	fs.StringVar(targetFile, "targetfile", "", "File of target URLs, one per line")

	mode := fs.String("m", "static", "Fetch backend: static or dynamic")
	fs.StringVar(mode, "mode", "static", "Fetch backend: static or dynamic")
	depth := fs.Int("d", 0, "Maximum crawl depth (0 = use default)")
	fs.IntVar(depth, "depth", 0, "Maximum crawl depth (0 = use default)")
	concurrency := fs.Int("c", 0, "Worker concurrency (0 = use default)")
	fs.IntVar(concurrency, "concurrency", 0, "Worker concurrency (0 = use default)")

	dirscan := fs.Bool("ds", false, "Enable directory probing")
	fs.BoolVar(dirscan, "dirscan", false, "Enable directory probing")
	var wordlist stringSliceFlag
	fs.Var(&wordlist, "w", "Directory-probe wordlist entry (repeatable or comma-separated)")
	fs.Var(&wordlist, "wordlist", "Directory-probe wordlist entry (repeatable or comma-separated)")
	wordlistFile := fs.String("wordlist-file", "", "File of directory-probe words, one per line")
	var statusCodes stringSliceFlag
	fs.Var(&statusCodes, "status-codes", "Dirscan status-code allowlist (comma-separated, default: 200,201,202,204,301,302,307,401,403)")

	delay := fs.Duration("delay", 0, "Fixed delay between requests")
	randomDelay := fs.Duration("random-delay", 0, "Random delay upper bound; each request waits the larger of -delay and a random duration up to this")
	var proxies stringSliceFlag
	fs.Var(&proxies, "proxy", "Outbound proxy URL (repeatable or comma-separated)")
	rateLimit := fs.Float64("rate-limit", 0, "Requests per second (0 = disabled)")
	scopeMode := fs.String("scope", "same-registered-domain", "same-registered-domain | same-host | exact-prefix")
	configFile := fs.String("config", "", "YAML config file; flags override its values")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus metrics listen address (empty disables)")
	runTimeout := fs.Duration("run-timeout", 0, "Overall run deadline (0 = none)")
	sessionFile := fs.String("s", "", "Session file: cookies as JSON or Netscape cookie-jar format")
	fs.StringVar(sessionFile, "session", "", "Session file: cookies as JSON or Netscape cookie-jar format")

	var excludeExt, includeExt, excludePath, includePath stringSliceFlag
	fs.Var(&excludeExt, "exclude-ext", "Exclude file extensions (repeatable or comma-separated, e.g. .css)")
	fs.Var(&includeExt, "include-ext", "Include only these file extensions (repeatable or comma-separated)")
	fs.Var(&excludePath, "exclude-path", "Exclude URL paths containing this substring (repeatable or comma-separated)")
	fs.Var(&includePath, "include-path", "Include only URL paths containing this substring (repeatable or comma-separated)")
	minParams := fs.Int("min-params", 0, "Minimum parameter count to keep a discovered parameter set")

	pipeURL := fs.Bool("pipeurl", false, "Emit one endpoint URL per line")
	pipeEndpoint := fs.Bool("pipeendpoint", false, "Emit method and URL per line")
	pipeParam := fs.Bool("pipeparam", false, "Emit URLs with discovered parameters")
	pipeJSON := fs.Bool("pipejson", false, "Emit the full result as one JSON document")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var cfg *config.Config
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			return 1
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	if len(targets) > 0 {
		cfg.Targets = targets
	}
	if *targetFile != "" {
		fileTargets, err := readLines(*targetFile)
		if err != nil {
			logger.Error("failed to read target file", "path", *targetFile, "error", err)
			return 1
		}
		cfg.Targets = append(cfg.Targets, fileTargets...)
	}
	if len(cfg.Targets) == 0 {
		fmt.Fprintln(os.Stderr, "endabyss: at least one target is required (-t or -tf)")
		return 1
	}

	if *mode == string(config.ModeDynamic) {
		cfg.Mode = config.ModeDynamic
	} else if *mode == string(config.ModeStatic) {
		cfg.Mode = config.ModeStatic
	}
	if *depth > 0 {
		cfg.Depth = *depth
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}
	cfg.DirScan = cfg.DirScan || *dirscan
	if len(wordlist) > 0 {
		cfg.Wordlist = append(cfg.Wordlist, wordlist...)
	}
	if *wordlistFile != "" {
		fileWords, err := readLines(*wordlistFile)
		if err != nil {
			logger.Error("failed to read wordlist file", "path", *wordlistFile, "error", err)
			return 1
		}
		cfg.Wordlist = append(cfg.Wordlist, fileWords...)
	}
	if *delay > 0 {
		cfg.Delay = *delay
	}
	if *randomDelay > 0 {
		cfg.RandomDelayRange = *randomDelay
	}
	if len(proxies) > 0 {
		cfg.Proxies = proxies
	}
	if *rateLimit > 0 {
		cfg.RateLimit = *rateLimit
	}
	if *scopeMode != "" {
		cfg.Scope = *scopeMode
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *runTimeout > 0 {
		cfg.RunTimeout = *runTimeout
	}
	if len(excludeExt) > 0 {
		cfg.ExcludeExtensions = excludeExt
	}
	if len(includeExt) > 0 {
		cfg.IncludeExtensions = includeExt
	}
	if len(excludePath) > 0 {
		cfg.ExcludePaths = excludePath
	}
	if len(includePath) > 0 {
		cfg.IncludePaths = includePath
	}
	if *minParams > 0 {
		cfg.MinParams = *minParams
	}
	if len(statusCodes) > 0 {
		codes, err := parseStatusCodes(statusCodes)
		if err != nil {
			logger.Error("invalid -status-codes", "error", err)
			return 1
		}
		cfg.StatusCodes = codes
	}
	if *sessionFile != "" {
		cookies, headers, err := loadSession(*sessionFile)
		if err != nil {
			logger.Error("failed to load session file", "path", *sessionFile, "error", err)
			return 1
		}
		cfg.Cookies = append(cfg.Cookies, cookies...)
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			cfg.Headers[k] = v
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	interrupted := false
	go func() {
		<-sigCh
		interrupted = true
		logger.Warn("interrupt received, shutting down gracefully")
		cancel()
	}()
	defer signal.Stop(sigCh)

	start := time.Now()
	result, err := controller.Run(ctx, cfg, logger)
	if err != nil {
		logger.Error("run failed", "error", err)
		return 1
	}
	result.Stats.Elapsed = time.Since(start)

	if err := writeResult(os.Stdout, result, *pipeURL, *pipeEndpoint, *pipeParam, *pipeJSON); err != nil {
		logger.Error("failed to write result", "error", err)
		return 1
	}

	if interrupted {
		return 130
	}
	if result.Stats.Fetched == 0 && result.Stats.Failed > 0 {
		return 2
	}
	return 0
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
