package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/taskman/internal/config"
	"github.com/kazz187/taskman/internal/event"
	"github.com/kazz187/taskman/internal/loader"
	"github.com/kazz187/taskman/internal/server"
	"github.com/kazz187/taskman/internal/session"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/taskman"
	"github.com/kazz187/taskman/pkg/cerr"
	"github.com/kazz187/taskman/pkg/panicerr"
)

// Daemon wires the event bus, the task management system, and the HTTP
// server into one long-running process.
type Daemon struct {
	env      *config.Env
	bus      *event.Bus
	sys      *taskman.System
	sessions *session.Manager
	server   *server.Server
	watcher  *loader.Watcher
}

// New assembles a daemon from the resolved configuration. The scenario
// file, when configured, is loaded before the server starts so clients
// never observe a half-built system.
func New(env *config.Env) (*Daemon, error) {
	bus, err := event.NewBus()
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	eventLogger := event.NewLogger(slog.Default())
	if err := eventLogger.Attach(bus); err != nil {
		return nil, fmt.Errorf("failed to attach event logger: %w", err)
	}

	broadcaster, err := server.NewBroadcaster(bus)
	if err != nil {
		return nil, fmt.Errorf("failed to create event broadcaster: %w", err)
	}

	sys := taskman.New(simtime.Time{}, bus)
	sessions := session.NewManager()

	d := &Daemon{
		env:      env,
		bus:      bus,
		sys:      sys,
		sessions: sessions,
		server:   server.NewServer(config.BaseEnvFromEnv(env), sys, sessions, broadcaster),
	}

	scenario := config.ScenarioEnvFromEnv(env)
	if scenario.Path != "" {
		if _, err := loader.Load(scenario.Path, sys, sessions); err != nil {
			return nil, fmt.Errorf("failed to load scenario %s: %w", scenario.Path, err)
		}
		slog.Info("loaded scenario", "path", scenario.Path)
		if scenario.Watch {
			w, err := loader.NewWatcher(scenario.Path, d.reloadScenario)
			if err != nil {
				return nil, fmt.Errorf("failed to watch scenario %s: %w", scenario.Path, err)
			}
			d.watcher = w
		}
	}
	return d, nil
}

// Run blocks until ctx is cancelled or a component fails. All components
// run in one pool; the first error cancels the rest.
func (d *Daemon) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(panicerr.SafeContext(d.bus.Start))

	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		// Publishing before the router runs would drop subscriber output.
		select {
		case <-d.bus.Running():
		case <-ctx.Done():
			return ctx.Err()
		}
		err := d.server.ListenAndServe(ctx)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}))

	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		<-ctx.Done()
		shutdownCtx := context.WithoutCancel(ctx)
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown failed", "error", err)
		}
		return nil
	}))

	if d.watcher != nil {
		p.Go(panicerr.SafeContext(d.watcher.Run))
	}

	err := p.Wait()
	if stopErr := d.bus.Stop(); stopErr != nil {
		slog.Warn("event bus stop failed", "error", stopErr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// System exposes the running system, for callers embedding the daemon.
func (d *Daemon) System() *taskman.System {
	return d.sys
}

// reloadScenario applies a changed scenario file additively: users,
// projects, and tasks that already exist are kept as they are, new ones
// are created. Destructive edits require a restart.
func (d *Daemon) reloadScenario(path string) {
	s, err := loader.ParseFile(path)
	if err != nil {
		slog.Warn("scenario reload failed", "path", path, "error", err)
		return
	}
	if s.InitialTime.After(d.sys.Clock()) {
		if err := d.sys.AdvanceTime(s.InitialTime); err != nil {
			slog.Warn("scenario reload could not advance clock", "error", err)
		}
	}
	for _, u := range s.Users {
		if err := d.sessions.Register(u.Name, u.Roles); err != nil {
			if cerr.CodeOf(err) != cerr.InvalidArgument {
				slog.Warn("scenario reload skipped user", "user", u.Name, "error", err)
			}
		}
	}
	for _, p := range s.Projects {
		if err := d.sys.CreateProject(p.Name, p.Description, p.DueTime); err != nil {
			if cerr.CodeOf(err) != cerr.ProjectNameAlreadyInUse {
				slog.Warn("scenario reload skipped project", "project", p.Name, "error", err)
				continue
			}
		}
		for _, t := range p.Tasks {
			err := d.sys.AddTaskToProject(p.Name, t.Name, t.Description, t.Estimated, t.Deviation, t.Roles, t.PrevTasks, nil)
			if err != nil && cerr.CodeOf(err) != cerr.TaskNameAlreadyInUse {
				slog.Warn("scenario reload skipped task", "project", p.Name, "task", t.Name, "error", err)
			}
		}
	}
	slog.Info("scenario reloaded", "path", path)
}
