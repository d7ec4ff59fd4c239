package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"gia/internal/logger"
	"gia/internal/platform"
)

const (
	envFileName  = "gia.env"
	configDirEnv = "GIA_CONFIG_DIR"
)

var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Version   kong.VersionFlag `help:"Print version and exit."`
	ConfigDir string           `help:"Directory holding settings, state and logs." env:"GIA_CONFIG_DIR" type:"path"`
	Debug     bool             `help:"Log at debug level and mirror logs to stderr." env:"GIA_DEBUG"`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Run        RunCmd        `cmd:"" help:"Run Gia in the system tray." default:"1"`
	Status     StatusCmd     `cmd:"" help:"Show the break schedule of the running instance."`
	Pause      PauseCmd      `cmd:"" help:"Pause break reminders."`
	Resume     ResumeCmd     `cmd:"" help:"Resume break reminders."`
	Exit       ExitCmd       `cmd:"" help:"Stop reminders until resumed."`
	Snooze     SnoozeCmd     `cmd:"" help:"Delay the next break."`
	Break      BreakCmd      `cmd:"" help:"Take a short break now."`
	Disable    DisableCmd    `cmd:"" help:"Disable reminders for a number of hours."`
	Demo       DemoCmd       `cmd:"" help:"Show a short and a long break in quick succession."`
	Reschedule RescheduleCmd `cmd:"" help:"Restart the 20-minute cadence from now."`
	Stats      StatsCmd      `cmd:"" help:"Show break history statistics."`
	Autostart  struct {
		Enable  AutostartEnableCmd  `cmd:"" help:"Start Gia at login."`
		Disable AutostartDisableCmd `cmd:"" help:"Do not start Gia at login."`
		Status  AutostartStatusCmd  `cmd:"" help:"Report whether Gia starts at login." default:"1"`
	} `cmd:"" help:"Manage start at login."`
	Settings struct {
		Show SettingsShowCmd `cmd:"" help:"Print the current settings." default:"1"`
		Path SettingsPathCmd `cmd:"" help:"Print the settings file location."`
	} `cmd:"" help:"Inspect settings."`
}

// appContext is bound into every command's Run method.
type appContext struct {
	Globals   *Globals
	ConfigDir string
	Platform  platform.Service
}

func main() {
	service := platform.NewService()
	configDir, err := resolveConfigDir(service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Values already in the environment win over the env file.
	_ = godotenv.Load(filepath.Join(configDir, envFileName))

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("gia"),
		kong.Description("20-20-20 eye break reminders"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": version},
	)

	if cli.ConfigDir != "" {
		configDir = cli.ConfigDir
	}
	if err := logger.Init(logger.Config{Debug: cli.Debug, ConfigDir: configDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	appCtx := &appContext{
		Globals:   &cli.Globals,
		ConfigDir: configDir,
		Platform:  service,
	}
	if err := ctx.Run(appCtx); err != nil {
		logger.Error("command failed", "command", ctx.Command(), "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func resolveConfigDir(service platform.Service) (string, error) {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return dir, nil
	}
	return service.ConfigDir()
}
