package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/chantube/internal/client/client"
	"github.com/dmitrijs2005/chantube/internal/client/config"
	"github.com/dmitrijs2005/chantube/internal/client/services"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	userName    string
	reader      *bufio.Reader
	out         io.Writer

	mu   sync.Mutex
	Mode Mode
}

func NewApp(c *config.Config) *App {
	apiClient := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)

	return &App{
		config:      c,
		authService: services.NewAuthService(apiClient),
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
}

func (app *App) setMode(mode Mode) {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.Mode != mode {
		app.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.authService.LoggedIn()
}

// StartOnlineStatusWatcher probes the server every interval and flips Mode
// accordingly until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
