package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/vectorpad/pkg/keyboard"
	"github.com/gwillem/vectorpad/pkg/logging"
	"github.com/gwillem/vectorpad/pkg/remote"
	"github.com/gwillem/vectorpad/pkg/robot"
	"github.com/gwillem/vectorpad/pkg/teleop"
)

type DriveCommand struct {
	Hz       int           `long:"hz" description:"Control loop frequency (default from config)"`
	Hold     time.Duration `long:"hold" description:"How long a key counts as held after its last press"`
	Disabled bool          `long:"disabled" description:"Start with keyboard control off (toggle with tab)"`
}

const (
	headerHeight = 4 // title + states + blank line
	legendHeight = 2 // legend row + stats
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border

	drainTimeout   = 2 * time.Second
	requestTimeout = 5 * time.Second
)

// Wheel colors
var wheelColors = map[string]string{
	"left":  "51",  // cyan
	"right": "201", // magenta
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	movingStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	enabledStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")).Padding(0, 1)
	disabledStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("9")).Padding(0, 1)
)

// controller is the part of teleop.Controller the TUI uses.
type controller interface {
	States() <-chan teleop.State
	Logs() <-chan string
	Hz() int
	Enabled() bool
	SetEnabled(bool)
}

// keyRecorder is the part of keyboard.Tracker the TUI uses.
type keyRecorder interface {
	Press(key string)
	ReleaseAll()
}

type driveModel struct {
	ctrl     controller
	keys     keyRecorder
	stats    func() remote.Stats
	serial   string
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool
	state    teleop.State
	wheels   teleop.Command // last drive command sent
}

func (m *driveModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *driveModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *driveModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func newDriveModel(ctrl controller, keys keyRecorder, stats func() remote.Stats, serial string) driveModel {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(-teleop.MaxWheelSpeed, teleop.MaxWheelSpeed),
	)

	for name, color := range wheelColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return driveModel{
		ctrl:   ctrl,
		keys:   keys,
		stats:  stats,
		serial: serial,
		chart:  &chart,
		wheels: teleop.WheelCommand(0, 0),
	}
}

func (m driveModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.BlurMsg:
		// Key presses stop arriving when the terminal loses focus.
		m.keys.ReleaseAll()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case keyboard.QuitKey, keyboard.InterruptKey:
			m.quitting = true
			return m, tea.Quit
		case keyboard.ToggleKey:
			enabled := !m.ctrl.Enabled()
			if !enabled {
				m.keys.ReleaseAll()
			}
			m.ctrl.SetEnabled(enabled)
			return m, nil
		}
		m.keys.Press(msg.String())
		return m, nil

	case stateMsg:
		m.state = teleop.State(msg)
		for _, cmd := range m.state.Commands {
			if cmd.Subsystem == teleop.Drive {
				m.wheels = cmd
			}
		}
		m.chart.PushDataSet("left", float64(m.wheels.Left))
		m.chart.PushDataSet("right", float64(m.wheels.Right))
		m.chart.DrawAll()
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m driveModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Vectorpad"))
	sb.WriteString(fmt.Sprintf(" %s - %d Hz ", m.serial, m.ctrl.Hz()))
	if m.ctrl.Enabled() {
		sb.WriteString(enabledStyle.Render("KEYBOARD ON"))
	} else {
		sb.WriteString(disabledStyle.Render("KEYBOARD OFF"))
	}
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(renderStates(m.state.Memory))
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend and dispatch counters
	sb.WriteString(renderLegend(m.wheels))
	sb.WriteString("\n")
	if m.stats != nil {
		s := m.stats()
		sb.WriteString(statusStyle.Render(fmt.Sprintf("sent %d  failed %d  dropped %d", s.Sent, s.Failed, s.Dropped)))
	}
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Hold w/a/s/d to drive, r/f lift, t/g head. Tab toggles keyboard, esc quits")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderStates(mem teleop.Memory) string {
	items := make([]string, 0, 3)
	for _, sub := range teleop.AllSubsystems() {
		value := mem.State(sub).String()
		if mem.Moving(sub) {
			value = movingStyle.Render(value)
		}
		items = append(items, statusStyle.Render(sub.String()+": ")+value)
	}
	return strings.Join(items, "   ")
}

func renderLegend(wheels teleop.Command) string {
	var items []string
	for _, name := range []string{"left", "right"} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(wheelColors[name])).Bold(true)
		value := wheels.Left
		if name == "right" {
			value = wheels.Right
		}
		items = append(items, fmt.Sprintf("%s %s wheel %d", colorStyle.Render("━━"), name, value))
	}
	return strings.Join(items, "  ")
}

func (c *DriveCommand) Execute(args []string) error {
	cfg := mustLoadConfig()
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	if c.Hold > 0 {
		cfg.HoldMs = int(c.Hold / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'vectorpad setup' to fix it.")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := remote.NewClient(cfg.Server, cfg.Serial, remote.WithClientLogger(logger.Named("remote")))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	err = client.Claim(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not take control of %s: %v\n", cfg.Serial, err)
		os.Exit(1)
	}
	fmt.Printf("Controlling %s via %s\n", cfg.Serial, cfg.Server)

	dispatchers := []*remote.Dispatcher{
		remote.NewDispatcher(client, cfg.QueueSize, logger.Named("dispatch")),
	}
	robotOut := dispatchers[0]
	router := teleop.Router{
		teleop.Drive: robotOut,
		teleop.Lift:  robotOut,
		teleop.Head:  robotOut,
	}

	var rig *robot.Rig
	if cfg.Servos != nil {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		rig, err = robot.OpenRig(ctx, *cfg.Servos)
		cancel()
		if err != nil {
			return fmt.Errorf("open servo rig: %w", err)
		}
		defer rig.Close()

		rigOut := remote.NewDispatcher(rig, cfg.QueueSize, logger.Named("rig"))
		dispatchers = append(dispatchers, rigOut)
		router[teleop.Lift] = teleop.Broadcast{robotOut, rigOut}
		router[teleop.Head] = teleop.Broadcast{robotOut, rigOut}
		fmt.Printf("Mirroring lift and head on %s\n", cfg.Servos.Port)
	}

	cal, err := cfg.TeleopCalibration()
	if err != nil {
		return err
	}
	tracker := keyboard.NewTracker(keyboard.WithHold(cfg.Hold()))
	ctrl, err := teleop.NewController(teleop.Config{
		Hz:          cfg.Hz,
		KeyMap:      cfg.Keys,
		Calibration: &cal,
		Disabled:    c.Disabled,
	}, tracker, router, logger.Named("teleop"))
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	// Dispatchers outlive the controller so its final stop commands still go out.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	ctrlCtx, stopCtrl := context.WithCancel(context.Background())
	defer stopCtrl()

	var g errgroup.Group
	for _, d := range dispatchers {
		g.Go(func() error { return ignoreCanceled(d.Run(dispatchCtx)) })
	}
	g.Go(func() error {
		err := ctrl.Start(ctrlCtx)
		for _, d := range dispatchers {
			d.Close()
		}
		return ignoreCanceled(err)
	})
	g.Go(func() error {
		return ignoreCanceled(client.KeepAlive(ctrlCtx, cfg.Heartbeat(), ctrl.Resync))
	})

	// Run TUI
	p := tea.NewProgram(newDriveModel(ctrl, tracker, robotOut.Stats, cfg.Serial), tea.WithAltScreen(), tea.WithReportFocus())
	_, runErr := p.Run()

	stopCtrl()
	drain := time.AfterFunc(drainTimeout, stopDispatch)
	err = g.Wait()
	drain.Stop()

	ctx, cancel = context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if relErr := client.Release(ctx); relErr != nil {
		logger.Warn("release failed", zap.Error(relErr))
	}

	if runErr != nil {
		return fmt.Errorf("run TUI: %w", runErr)
	}
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
