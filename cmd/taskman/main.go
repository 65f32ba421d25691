package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/taskman/internal/config"
	"github.com/kazz187/taskman/internal/daemon"
	"github.com/kazz187/taskman/internal/loader"
	"github.com/kazz187/taskman/internal/session"
	"github.com/kazz187/taskman/internal/simtime"
	"github.com/kazz187/taskman/internal/taskman"
	"github.com/kazz187/taskman/pkg/clog"
	"github.com/kazz187/taskman/pkg/color"
)

var (
	app        = kingpin.New("taskman", "Collaborative project and task execution tool")
	configPath = app.Flag("config", "Path to taskman.yaml").Default(config.DefaultFilePath).String()

	serveCmd      = app.Command("serve", "Start the taskman server")
	serveScenario = serveCmd.Flag("scenario", "Scenario file to load at startup").String()
	serveWatch    = serveCmd.Flag("watch", "Reload the scenario file when it changes").Bool()

	runCmd      = app.Command("run", "Load a scenario and print an execution report")
	runScenario = runCmd.Arg("scenario", "Scenario file").Required().String()

	showCmd      = app.Command("show", "Load a scenario and print the system state as JSON")
	showScenario = showCmd.Arg("scenario", "Scenario file").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	setupLogger(env)

	switch command {
	case serveCmd.FullCommand():
		if *serveScenario != "" {
			env.ScenarioEnv.Path = *serveScenario
		}
		if *serveWatch {
			env.ScenarioEnv.Watch = true
		}
		handleServe(env)
	case runCmd.FullCommand():
		handleRun(*runScenario)
	case showCmd.FullCommand():
		handleShow(*showScenario)
	}
}

func setupLogger(env *config.Env) {
	if !env.LogColor {
		color.Disable()
	}
	handler := clog.NewAttributesHandler(clog.NewTextHandler(
		os.Stderr,
		clog.WithColor(env.LogColor),
		clog.WithLevel(env.SlogLevel()),
	))
	slog.SetDefault(slog.New(handler))
}

func handleServe(env *config.Env) {
	d, err := daemon.New(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error running daemon: %v\n", err)
		os.Exit(1)
	}
}

// load replays a scenario into a fresh offline system. No bus is attached,
// so nothing is published.
func load(path string) (*taskman.System, error) {
	sys := taskman.New(simtime.Time{}, nil)
	sessions := session.NewManager()
	if _, err := loader.Load(path, sys, sessions); err != nil {
		return nil, err
	}
	return sys, nil
}

func handleRun(path string) {
	sys, err := load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenario: %v\n", err)
		os.Exit(1)
	}
	printReport(sys)
}

func printReport(sys *taskman.System) {
	view := sys.GetSystemView()
	fmt.Printf("system time: %s\n", view.Clock)
	for _, p := range view.Projects {
		fmt.Printf("\nproject %s (%s) due %s\n", p.Name, p.Status, p.DueTime)
		for _, t := range p.Tasks {
			fmt.Printf("  %-24s %s", t.Name, color.Status(string(t.Status)))
			for user := range t.Assignees {
				fmt.Printf(" %s", color.UserPrefix(user))
			}
			if len(t.PrevTasks) > 0 {
				fmt.Printf(" after %v", t.PrevTasks)
			}
			fmt.Println()
		}
		for _, t := range p.ReplacedTasks {
			fmt.Printf("  %-24s %s (replaced by %s)\n", t.Name, color.Status(string(t.Status)), t.ReplacedBy)
		}
	}
}

func handleShow(path string) {
	sys, err := load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenario: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sys.GetSystemView()); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding system view: %v\n", err)
		os.Exit(1)
	}
}
