package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/vectorpad/pkg/robot"
)

type Options struct {
	Config string `long:"config" short:"c" default:"vectorpad.json" description:"Configuration file"`

	Setup  SetupCommand  `command:"setup" description:"Pick a robot and optionally calibrate a servo rig"`
	Drive  DriveCommand  `command:"drive" alias:"teleop" description:"Drive the robot with the keyboard"`
	Robots RobotsCommand `command:"robots" description:"List robots known to the server"`
	Status StatusCommand `command:"status" description:"Show robot status and servo rig positions"`
	Intent IntentCommand `command:"intent" description:"Ask the robot to run a named intent"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Vectorpad - keyboard teleoperation for Vector robots"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config and applies
// environment overrides.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mustLoadConfig is loadConfig for commands that cannot run without one.
func mustLoadConfig() *robot.Config {
	cfg, err := loadConfig()
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "No configuration found. Run 'vectorpad setup' first.")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
