package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"lightpilot/clock"
	"lightpilot/config"
	"lightpilot/debug"
	"lightpilot/midi"
	"lightpilot/pilot"
	"lightpilot/tui"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath  string
		projectPath string
		headless    bool
		debugLog    bool
	)

	cmd := &cobra.Command{
		Use:   "lightpilot",
		Short: "Phrase-locked lighting sequences driven by an external MIDI clock",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, projectPath, headless, debugLog)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/lightpilot/config.yaml)")
	cmd.Flags().StringVar(&projectPath, "project", "", "path to project.json (default ~/.config/lightpilot/project.json)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run without the terminal UI")
	cmd.Flags().BoolVar(&debugLog, "debug", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, configPath, projectPath string, headless, debugLog bool) error {
	var err error
	if configPath == "" {
		if configPath, err = config.Path(); err != nil {
			return err
		}
	}
	if projectPath == "" {
		if projectPath, err = config.ProjectPath(); err != nil {
			return err
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Debug || debugLog {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	project, err := config.LoadProject(projectPath)
	if err != nil {
		return err
	}

	tracker := clock.NewTracker(cfg.Clock.BeatsPerBar, cfg.Clock.BarsPerPhrase)
	output := midi.NewOutput(cfg.Output.PortName, cfg.Output.Channel)

	p := pilot.New(tracker, output, project)
	defer p.Close()

	watcher := midi.NewWatcher(cfg.Clock.DeviceKeyword, p.Handlers())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watcher.Run(ctx)

	if headless {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		fmt.Printf("lightpilot: waiting for clock on %q, %d rule(s), %d sequence(s)\n",
			cfg.Clock.DeviceKeyword, len(project.Rules), len(project.Sequences))
		<-ctx.Done()
		return nil
	}

	prog := tea.NewProgram(tui.NewModel(p), tea.WithAltScreen())
	_, err = prog.Run()
	return err
}
