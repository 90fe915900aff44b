package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/vectorpad/pkg/remote"
	"github.com/gwillem/vectorpad/pkg/robot"
)

type RobotsCommand struct {
	Server string `long:"server" description:"Server URL (default from config)"`
}

func (c *RobotsCommand) Execute(args []string) error {
	server, selected := c.Server, ""
	if cfg, err := loadConfig(); err == nil {
		selected = cfg.Serial
		if server == "" {
			server = cfg.Server
		}
	}
	if server == "" {
		server = robot.DefaultServer
	}

	client, err := remote.NewClient(server, selected)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	robots, err := client.Robots(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not list robots on %s: %v\n", server, err)
		os.Exit(1)
	}
	if len(robots) == 0 {
		fmt.Printf("No robots on %s\n", server)
		return nil
	}

	fmt.Println(renderRobots(robots, selected))
	return nil
}

func renderRobots(robots []string, selected string) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(robots))
	for _, serial := range robots {
		mark := ""
		if serial == selected {
			mark = "●"
		}
		rows = append(rows, []string{serial, mark})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Serial", "Configured").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 1:
				return successStyle.Padding(0, 1)
			default:
				return tableCellStyle
			}
		})
	return t.Render()
}
