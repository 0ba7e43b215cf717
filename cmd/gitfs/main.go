// Command gitfs mounts a remote git repository as a FUSE filesystem with a
// writable "current" view and a read-only, commit-indexed "history" view.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/gitfsio/gitfs/auth"
	"github.com/gitfsio/gitfs/internal/metrics"
	"github.com/gitfsio/gitfs/mount"
)

func registerGitfsMetrics(registerer prometheus.Registerer) {
	metrics.Enable(registerer)
}

var (
	loggerLevel = new(slog.LevelVar)
	logger      *slog.Logger

	levelStrings = map[string]slog.Level{
		"trace": slog.Level(-8),
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

func init() {
	loggerLevel.Set(slog.LevelInfo)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: loggerLevel,
	}))
}

func usage() {
	fmt.Fprintf(os.Stderr, "NAME:\n")
	fmt.Fprintf(os.Stderr, "\tgitfs - mount a remote git repository as a read/write FUSE filesystem.\n")
	fmt.Fprintf(os.Stderr, "\nUSAGE:\n")
	fmt.Fprintf(os.Stderr, "\tgitfs <remote_url> <mount_point> [-o KEY=VALUE,...]\n")
	fmt.Fprintf(os.Stderr, "\nOPTIONS:\n")
	fmt.Fprintf(os.Stderr, "\t-o value            comma-separated KEY=VALUE mount options (repeatable)\n")
	fmt.Fprintf(os.Stderr, "\t-http-bind-address  (default: ':9090') metrics server bind address\n")
	fmt.Fprintf(os.Stderr, "\t-v                  print version and exit\n")
	fmt.Fprintf(os.Stderr, "\nRecognized -o keys:\n")
	fmt.Fprintf(os.Stderr, "\trepo_path, user, group, branch, username, password, ssh_user, ssh_key,\n")
	fmt.Fprintf(os.Stderr, "\tgithub_app_id, github_app_installation_id, github_app_private_key,\n")
	fmt.Fprintf(os.Stderr, "\tforeground, allow_other, allow_root, committer_name, committer_email,\n")
	fmt.Fprintf(os.Stderr, "\tmax_size, max_offset, fetch_timeout, merge_timeout, idle_fetch_timeout,\n")
	fmt.Fprintf(os.Stderr, "\tmin_idle_times, current_path, history_path, ignore_file, hard_ignore,\n")
	fmt.Fprintf(os.Stderr, "\tmax_open_files, debug, log, log_level, config\n")
	os.Exit(2)
}

// optionList accumulates repeated "-o a=b,c=d" flags into a single map.
type optionList struct{ opts map[string]string }

func (o *optionList) String() string { return "" }

func (o *optionList) Set(value string) error {
	if o.opts == nil {
		o.opts = map[string]string{}
	}
	for _, kv := range strings.Split(value, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid -o option %q, expected KEY=VALUE", kv)
		}
		o.opts[parts[0]] = parts[1]
	}
	return nil
}

// mergeConfigFile loads "-o config=path.yaml" (if set) and layers opts from
// the command line on top, command line winning on key collision. This is
// the one CLI surface SPEC_FULL.md adds beyond the literal -o k=v list.
func mergeConfigFile(opts map[string]string) (map[string]string, error) {
	path, ok := opts["config"]
	if !ok {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read -o config file: %w", err)
	}
	fromFile := map[string]string{}
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("parse -o config file: %w", err)
	}
	for k, v := range opts {
		fromFile[k] = v
	}
	return fromFile, nil
}

// logWriter resolves the -o log target: "syslog" or a file path, appended
// to so an external rotator can move it out from underneath the mount.
func logWriter(target string) (io.Writer, error) {
	if target == "syslog" {
		return syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, "gitfs")
	}
	return os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}

func boolOpt(opts map[string]string, key string) bool {
	v, ok := opts[key]
	if !ok {
		return false
	}
	parsed, err := strconv.ParseBool(v)
	return err == nil && parsed
}

func intOpt(opts map[string]string, key string) int64 {
	v, ok := opts[key]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func durationOpt(opts map[string]string, key string) time.Duration {
	n := intOpt(opts, key)
	if n == 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func optionsToMountOptions(remote, mountPoint string, opts map[string]string) mount.Options {
	var hardIgnore []string
	if v := opts["hard_ignore"]; v != "" {
		hardIgnore = strings.Split(v, ":")
	}

	return mount.Options{
		Remote:           remote,
		MountPoint:       mountPoint,
		RepoPath:         opts["repo_path"],
		Branch:           opts["branch"],
		User:             opts["user"],
		Group:            opts["group"],
		Credentials:      auth.ParseCredentialsOption(opts),
		CommitterName:    opts["committer_name"],
		CommitterEmail:   opts["committer_email"],
		MaxSize:          intOpt(opts, "max_size") * 1024 * 1024,
		MaxOffset:        intOpt(opts, "max_offset") * 1024 * 1024,
		FetchTimeout:     durationOpt(opts, "fetch_timeout"),
		MergeTimeout:     durationOpt(opts, "merge_timeout"),
		IdleFetchTimeout: durationOpt(opts, "idle_fetch_timeout"),
		MinIdleTimes:     int(intOpt(opts, "min_idle_times")),
		CurrentPath:      opts["current_path"],
		HistoryPath:      opts["history_path"],
		IgnoreFile:       opts["ignore_file"],
		HardIgnore:       hardIgnore,
		Foreground:       boolOpt(opts, "foreground"),
		AllowOther:       boolOpt(opts, "allow_other"),
		AllowRoot:        boolOpt(opts, "allow_root"),
		Debug:            boolOpt(opts, "debug"),
		MaxOpenFiles:     int(intOpt(opts, "max_open_files")),
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	var oFlags optionList
	flag.Var(&oFlags, "o", "comma-separated KEY=VALUE mount options")
	flagHttpBind := flag.String("http-bind-address", ":9090", "metrics server bind address")
	flagVersion := flag.Bool("v", false, "print version and exit")

	flag.Usage = usage
	flag.Parse()

	info, _ := debug.ReadBuildInfo()

	if *flagVersion {
		fmt.Printf("version=%s go=%s\n", info.Main.Version, info.GoVersion)
		return
	}

	if flag.NArg() != 2 {
		usage()
	}
	remote, mountPoint := flag.Arg(0), flag.Arg(1)

	opts, err := mergeConfigFile(oFlags.opts)
	if err != nil {
		logger.Error("unable to resolve mount options", "err", err)
		os.Exit(1)
	}

	if v, ok := levelStrings[strings.ToLower(opts["log_level"])]; ok {
		loggerLevel.Set(v)
	} else if boolOpt(opts, "debug") {
		loggerLevel.Set(slog.LevelDebug)
	}

	if target := opts["log"]; target != "" {
		w, err := logWriter(target)
		if err != nil {
			logger.Error("unable to open log target", "log", target, "err", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: loggerLevel}))
	}

	if n := intOpt(opts, "max_open_files"); n > 0 {
		limit := syscall.Rlimit{Cur: uint64(n), Max: uint64(n)}
		if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
			logger.Warn("unable to raise open-files limit", "max_open_files", n, "err", err)
		}
	}

	if opts == nil {
		opts = map[string]string{}
	}
	if opts["repo_path"] == "" {
		dir, err := os.MkdirTemp("", "gitfs-")
		if err != nil {
			logger.Error("unable to create repo_path", "err", err)
			os.Exit(1)
		}
		opts["repo_path"] = dir
	}

	logger.Info("version", "app", info.Main.Version, "go", info.GoVersion)
	logger.Info("mounting", "remote", remote, "mount_point", mountPoint)

	registry := prometheus.NewRegistry()
	registerGitfsMetrics(registry)

	mountOpts := optionsToMountOptions(remote, mountPoint, opts)

	driver, err := mount.New(ctx, mountOpts, logger.With("component", "mount"))
	if err != nil {
		logger.Error("unable to construct mount driver", "err", err)
		os.Exit(1)
	}

	driver.Start()
	logger.Info("mounted", "options", mountOpts.FuseOptionString())

	server := &http.Server{
		Addr:              *flagHttpBind,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       5 * time.Second,
		ReadHeaderTimeout: 1 * time.Second,
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server.Handler = mux

	go func() {
		logger.Info("starting metrics server", "addr", *flagHttpBind)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server terminated", "err", err)
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down...")
	cancel()
	_ = server.Shutdown(context.Background())
	driver.Stop()
	logger.Info("unmounted")
}
