package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/vectorpad/pkg/remote"
	"github.com/gwillem/vectorpad/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Servo IDs probed when looking for a rig.
const (
	scanMinID = 1
	scanMaxID = 12
)

type SetupCommand struct {
	SkipRig bool `long:"skip-rig" description:"Do not look for a local servo rig"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Vectorpad Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	config, err := loadConfig()
	if errors.Is(err, fs.ErrNotExist) {
		cfg := robot.DefaultConfig()
		config, err = &cfg, nil
	}
	if err != nil {
		return err
	}

	// Step 1: Server and robot
	chooseRobot(config)

	// Save before the optional rig step
	if err := config.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	// Step 2: Servo rig
	if !c.SkipRig {
		setupRig(config)
		if err := config.SaveTo(opts.Config); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("vectorpad drive"))

	return nil
}

func chooseRobot(config *robot.Config) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("The robot control server").
				Value(&config.Server).
				Validate(func(s string) error {
					_, err := remote.NewClient(s, "")
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	robots := fetchRobots(config.Server)

	var field huh.Field
	if len(robots) > 0 {
		options := make([]huh.Option[string], 0, len(robots))
		for _, serial := range robots {
			options = append(options, huh.NewOption(serial, serial))
		}
		field = huh.NewSelect[string]().
			Title("Which robot do you want to drive?").
			Options(options...).
			Value(&config.Serial)
	} else {
		field = huh.NewInput().
			Title("Robot serial").
			Description("The server did not list any robots").
			Value(&config.Serial).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("serial is required")
				}
				return nil
			})
	}

	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	config.Serial = strings.TrimSpace(config.Serial)
	fmt.Printf("Robot: %s\n", config.Serial)
}

func fetchRobots(server string) []string {
	client, err := remote.NewClient(server, "")
	if err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	robots, err := client.Robots(ctx)
	if err != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("Could not list robots: %v", err)))
		return nil
	}
	return robots
}

type busInfo struct {
	port   string
	servos []feetech.FoundServo
}

func setupRig(config *robot.Config) {
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Servo Rig ━━━"))
	fmt.Println()

	want := config.Servos != nil
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Mirror lift and head on a local servo rig?").
				Value(&want),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	if !want {
		config.Servos = nil
		return
	}

	fmt.Println("Scanning for servo buses...")
	buses := findBuses()
	if len(buses) == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the rig is connected and powered on.")
		return
	}

	bus := chooseBus(buses)

	rig := &robot.RigConfig{Port: bus.port}
	var prev robot.Calibration
	if config.Servos != nil {
		rig.TravelMs = config.Servos.TravelMs
		prev = config.Servos.Calibration
	}
	liftID, headID := assignJoints(bus, prev)
	ids := map[robot.JointName]int{
		robot.LiftJoint: liftID,
		robot.HeadJoint: headID,
	}
	rig.Calibration = calibrateRig(bus, ids)
	if err := rig.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Rig not saved: %v\n", err)
		return
	}
	config.Servos = rig
}

func findBuses() []busInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var buses []busInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, servos, err := connectToBus(port)
		if err != nil {
			continue
		}
		bus.Close()

		if len(servos) < 2 {
			continue
		}
		fmt.Printf("  Found %d servo(s) on %s\n", len(servos), port)
		buses = append(buses, busInfo{port: port, servos: servos})
	}
	return buses
}

func chooseBus(buses []busInfo) busInfo {
	if len(buses) == 1 {
		return buses[0]
	}

	options := make([]huh.Option[int], 0, len(buses))
	for i, b := range buses {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%d servos)", b.port, len(b.servos)), i))
	}
	var idx int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Which bus is the rig on?").
				Options(options...).
				Value(&idx),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return buses[idx]
}

// jointDefaults labels the servos found on a bus and preselects the lift and
// head servos of the previous calibration when they are still on the bus.
func jointDefaults(servos []feetech.FoundServo, prev robot.Calibration) (options []huh.Option[int], liftID, headID int) {
	liftID, headID = servos[0].ID, servos[1].ID
	prevHead := false
	for _, s := range servos {
		label := "servo " + strconv.Itoa(s.ID)
		if name, _, ok := prev.ByID(s.ID); ok {
			label += " (" + string(name) + ")"
			switch name {
			case robot.LiftJoint:
				liftID = s.ID
			case robot.HeadJoint:
				headID, prevHead = s.ID, true
			}
		}
		options = append(options, huh.NewOption(label, s.ID))
	}

	if liftID == headID {
		for _, s := range servos {
			if s.ID == liftID {
				continue
			}
			if prevHead {
				liftID = s.ID
			} else {
				headID = s.ID
			}
			break
		}
	}
	return options, liftID, headID
}

func assignJoints(bus busInfo, prev robot.Calibration) (liftID, headID int) {
	options, liftID, headID := jointDefaults(bus.servos, prev)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Lift servo").
				Options(options...).
				Value(&liftID),
			huh.NewSelect[int]().
				Title("Head servo").
				Options(options...).
				Value(&headID).
				Validate(func(id int) error {
					if id == liftID {
						return errors.New("lift and head need different servos")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return liftID, headID
}

func calibrateRig(info busInfo, ids map[robot.JointName]int) robot.Calibration {
	fmt.Printf("Calibrating rig on %s\n", info.port)
	fmt.Println()

	bus, found, err := connectToBus(info.port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to rig: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	byID := make(map[int]feetech.FoundServo, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	// Disable joints so the user can move them freely
	ctx := context.Background()
	joints := robot.AllJoints()
	servos := make(map[robot.JointName]positionReader, len(joints))
	for _, name := range joints {
		sv, ok := byID[ids[name]]
		if !ok {
			fmt.Fprintf(os.Stderr, "Servo %d for %s not found on %s\n", ids[name], name, info.port)
			os.Exit(1)
		}
		s := feetech.NewServo(bus, sv.ID, sv.Model)
		if err := s.Disable(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Could not release %s servo, it may resist moving: %v\n", name, err)
		}
		servos[name] = s
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move the lift and the head to their lowest AND highest positions.")
	fmt.Println()

	p := tea.NewProgram(newCalibrationModel(ctx, joints, servos))
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}

	cm := finalModel.(calibrationModel)
	calibration := make(robot.Calibration, len(joints))
	for _, name := range joints {
		calibration[name] = robot.JointCalibration{
			ID:       ids[name],
			RangeMin: cm.minPositions[name],
			RangeMax: cm.maxPositions[name],
		}
	}

	fmt.Println()
	fmt.Println("Rig calibrated.")
	return calibration
}

func connectToBus(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	servos, err := bus.Scan(ctx, scanMinID, scanMaxID)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return bus, servos, nil
}

// positionReader is the part of feetech.Servo calibration reads.
type positionReader interface {
	Position(ctx context.Context) (int, error)
}

// Calibration TUI model
type calibrationModel struct {
	ctx          context.Context
	joints       []robot.JointName
	servos       map[robot.JointName]positionReader
	seen         map[robot.JointName]bool
	curPositions map[robot.JointName]int
	minPositions map[robot.JointName]int
	maxPositions map[robot.JointName]int
	quitting     bool
}

type tickMsg time.Time

func newCalibrationModel(ctx context.Context, joints []robot.JointName, servos map[robot.JointName]positionReader) calibrationModel {
	return calibrationModel{
		ctx:          ctx,
		joints:       joints,
		servos:       servos,
		seen:         make(map[robot.JointName]bool),
		curPositions: make(map[robot.JointName]int),
		minPositions: make(map[robot.JointName]int),
		maxPositions: make(map[robot.JointName]int),
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.sample()
		return m, tick()
	}

	return m, nil
}

// sample reads every joint and widens its recorded range.
func (m calibrationModel) sample() {
	for _, name := range m.joints {
		pos, err := m.servos[name].Position(m.ctx)
		if err != nil {
			continue
		}
		m.curPositions[name] = pos
		if !m.seen[name] || pos < m.minPositions[name] {
			m.minPositions[name] = pos
		}
		if !m.seen[name] || pos > m.maxPositions[name] {
			m.maxPositions[name] = pos
		}
		m.seen[name] = true
	}
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Table styles
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableJointStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.joints))
	ranges := make([]int, 0, len(m.joints))
	for _, name := range m.joints {
		rangeSize := m.maxPositions[name] - m.minPositions[name]
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			string(name),
			strconv.Itoa(m.curPositions[name]),
			strconv.Itoa(m.minPositions[name]),
			strconv.Itoa(m.maxPositions[name]),
			strconv.Itoa(rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableJointStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
