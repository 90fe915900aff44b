package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/multierr"

	"github.com/gwillem/vectorpad/pkg/remote"
	"github.com/gwillem/vectorpad/pkg/robot"
)

type StatusCommand struct{}

// controlClient is the part of remote.Client that takes and gives up control.
type controlClient interface {
	Claim(ctx context.Context) error
	Release(ctx context.Context) error
}

// withControl claims the robot, runs fn and releases control again. The
// server only answers the session in control. Each request gets its own
// timeout.
func withControl(client controlClient, timeout time.Duration, fn func(ctx context.Context) error) (err error) {
	claimCtx, cancel := context.WithTimeout(context.Background(), timeout)
	err = client.Claim(claimCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("claim control: %w", err)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if relErr := client.Release(ctx); relErr != nil {
			err = multierr.Append(err, fmt.Errorf("release control: %w", relErr))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx)
}

func (c *StatusCommand) Execute(args []string) error {
	cfg := mustLoadConfig()

	client, err := remote.NewClient(cfg.Server, cfg.Serial)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(cfg.Serial) + dimStyle.Render(" on "+cfg.Server))
	var status map[string]any
	err = withControl(client, requestTimeout, func(ctx context.Context) error {
		var err error
		status, err = client.Status(ctx)
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not read status: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(renderStatus(status))

	if cfg.Servos == nil {
		return nil
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("Servo rig on " + cfg.Servos.Port))
	openCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	rig, err := robot.OpenRig(openCtx, *cfg.Servos)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open rig: %v\n", err)
		os.Exit(1)
	}
	defer rig.Close()

	readCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	positions, err := rig.Positions(readCtx)
	if err != nil {
		return err
	}
	for _, name := range robot.AllJoints() {
		fmt.Printf("  %-5s %6.1f\n", name, positions[name])
	}
	return nil
}

// renderStatus shows the status fields sorted by key.
func renderStatus(status map[string]any) string {
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprint(status[k])})
	}

	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return cellStyle
		}).
		Render()
}

