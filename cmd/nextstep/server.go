package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/nextstep/internal/api"
	"github.com/kalambet/nextstep/internal/config"
	"github.com/kalambet/nextstep/internal/logging"
	"github.com/kalambet/nextstep/internal/profile"
	"github.com/kalambet/nextstep/internal/progress"
	"github.com/kalambet/nextstep/internal/roadmap"
	"github.com/kalambet/nextstep/internal/skills"
	"github.com/kalambet/nextstep/internal/storage"
	"github.com/kalambet/nextstep/internal/watch"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nextstep server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running nextstep server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show nextstep server and profile status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", true, "serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "nextstep.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func loadCatalog(path string, logger *zap.Logger) (*skills.Catalog, error) {
	if path == "" {
		return skills.DefaultCatalog(), nil
	}
	catalog, err := skills.LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	for _, issue := range skills.Validate(catalog.Skills()) {
		logger.Warn("skill catalog issue", zap.String("skill_id", issue.SkillID), zap.String("issue", issue.Message))
	}
	return catalog, nil
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "nextstep version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("nextstep is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("nextstep is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing storage", zap.Error(err))
		}
	}()

	profiles, err := profile.NewStore(store, profile.WithLogger(logger.Named("profile")))
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	unsubscribe := profiles.Subscribe(func(snap profile.Snapshot) {
		if snap.Profile == nil {
			logger.Debug("state changed", zap.Bool("onboarded", snap.IsOnboardingComplete))
			return
		}
		logger.Debug("state changed",
			zap.Bool("onboarded", snap.IsOnboardingComplete),
			zap.Int("xp", snap.Profile.XP),
			zap.Int("level", snap.Profile.Level),
		)
	})
	defer unsubscribe()

	catalog, err := loadCatalog(cfg.Roadmap.CatalogPath, logger)
	if err != nil {
		return fmt.Errorf("loading skill catalog: %w", err)
	}
	svc := roadmap.NewService(catalog, profiles, cfg.Roadmap.SkillXP, logger.Named("roadmap"))

	watcher := watch.New(store, profiles,
		watch.WithDir(cfg.Storage.DataDir, storage.FileName),
		watch.WithPollInterval(cfg.Sync.PollInterval),
		watch.WithLogger(logger.Named("watch")),
	)

	handler := api.NewAppHandler(api.AppDeps{
		Profile: profiles,
		Roadmap: svc,
		Account: store,
		Token:   cfg.APIToken,
		Logger:  logger.Named("http"),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", addr), zap.Int("skills", catalog.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return watcher.Run(gctx)
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Profile: profiles, Roadmap: svc})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("MCP stdio server error", zap.Error(err))
			}
			return nil
		})
		logger.Info("MCP server started (stdio transport)")
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("nextstep is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop nextstep (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to nextstep (PID %d)", pid)
	return nil
}

type stateSummary struct {
	profile.Snapshot
	Progress *progress.Progress `json:"progress,omitempty"`
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	running := false
	if resp, err := client.get(ctx, "/health"); err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if running {
		var st stateSummary
		if err := client.call(ctx, http.MethodGet, "/state", nil, &st); err == nil {
			printStateSummary(st)
		} else {
			printWarning("could not read state: %v", err)
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

