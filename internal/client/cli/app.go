package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/client/client"
	"github.com/katlaang/pestscan-sub001/internal/client/config"
	"github.com/katlaang/pestscan-sub001/internal/client/services"
	"github.com/katlaang/pestscan-sub001/internal/filex"
	"github.com/katlaang/pestscan-sub001/internal/logging"
	sm "github.com/katlaang/pestscan-sub001/internal/server/models"
	"github.com/katlaang/pestscan-sub001/internal/timex"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// syncer is the part of services.SyncAgent the shell drives.
type syncer interface {
	Record(ctx context.Context, in sm.UpsertObservationInput) (string, error)
	Push(ctx context.Context) (services.PushReport, error)
	Pull(ctx context.Context) (services.PullReport, error)
	SyncOnce(ctx context.Context) error
	Run(ctx context.Context, interval time.Duration)
	UploadPhoto(ctx context.Context, in sm.RegisterPhotoInput, path string) (*sm.Photo, error)
}

type App struct {
	config *config.Config
	logger logging.Logger
	client client.Client
	repos  *client.Repositories
	agent  syncer
	Mode   Mode
	reader *bufio.Reader
	out    io.Writer
}

// getSecret is swapped in tests.
var getSecret = GetSecret

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	logger := logging.New(os.Stderr, c.LogLevel, false)

	if err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}
	repos, err := client.InitDatabase(ctx, c.DatabasePath, timex.SystemClock{})
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	token := c.AccessToken
	if token == "" {
		b, err := getSecret("Access token", os.Stdout)
		if err != nil {
			_ = repos.DB.Close()
			return nil, err
		}
		token = strings.TrimSpace(string(b))
	}

	device := sm.Device{DeviceID: c.DeviceID, DeviceType: c.DeviceType, Location: c.Location}
	apiClient, err := client.NewScoutingClient(c.ServerEndpointAddr, token, device)
	if err != nil {
		_ = repos.DB.Close()
		return nil, err
	}

	agent := services.NewSyncAgent(apiClient, repos, c.FarmID, services.Options{Logger: logger})

	return &App{
		config: c,
		logger: logger,
		client: apiClient,
		repos:  repos,
		agent:  agent,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.logger.Info(ctx, fmt.Sprintf("switched to %s mode", mode))
	}
}

// Run starts the background sync loop and blocks in the shell until the user
// exits or ctx is canceled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		_ = a.client.Close()
		_ = a.repos.DB.Close()
	}()

	go a.StartOnlineStatusWatcher(ctx, a.config.SyncInterval)
	go a.agent.Run(ctx, a.config.SyncInterval)

	fmt.Fprintln(a.out, "PestScan device shell (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// RunSync performs one push and pull without the shell.
func (a *App) RunSync(ctx context.Context) error {
	defer func() {
		_ = a.client.Close()
		_ = a.repos.DB.Close()
	}()
	return a.agent.SyncOnce(ctx)
}

func (a *App) getStatus() string {
	if a.Mode == "" {
		return a.config.FarmID
	}
	return fmt.Sprintf("%s %s", a.config.FarmID, a.Mode)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.client.Ping(pingCtx)
		cancel()

		if err != nil {
			a.setMode(ctx, ModeOffline)
		} else {
			a.setMode(ctx, ModeOnline)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
