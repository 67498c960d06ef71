package graphics

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// frameMsg carries a freshly rendered NES frame into the bubbletea model.
type frameMsg struct {
	buffer [256 * 240]uint32
}

// quitMsg asks the running bubbletea program to exit.
type quitMsg struct{}

// terminalModel is the bubbletea Model backing TerminalWindow. bubbletea
// owns the render loop and raw-terminal input; this package's Window
// interface is pull-based (the host calls RenderFrame/PollEvents/SwapBuffers
// on its own cadence), so RenderFrame forwards each frame as a tea.Msg and
// PollEvents drains key presses the model collects from tea.KeyMsg.
type terminalModel struct {
	frame  [256 * 240]uint32
	events chan InputEvent
}

func newTerminalModel(events chan InputEvent) terminalModel {
	return terminalModel{events: events}
}

func (m terminalModel) Init() tea.Cmd { return nil }

func (m terminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = msg.buffer
		return m, nil

	case quitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if ev, ok := terminalKeyToInputEvent(msg); ok {
			select {
			case m.events <- ev:
			default:
				// Drop the event rather than block the bubbletea loop; the
				// host polls faster than a human can hold a key anyway.
			}
			if ev.Type == InputEventTypeQuit {
				return m, tea.Quit
			}
		}
		return m, nil

	default:
		return m, nil
	}
}

// View renders the current frame as a grid of background-colored cells,
// downsampled 4x horizontally and 8x vertically to fit a terminal
// reasonably. Replaces the teacher's plain-ASCII block/space rendering with
// real per-cell color via lipgloss.
func (m terminalModel) View() string {
	var b strings.Builder
	for y := 0; y < 240; y += 8 {
		for x := 0; x < 256; x += 4 {
			px := m.frame[y*256+x]
			r, g, bch := uint8(px>>16), uint8(px>>8), uint8(px)
			style := lipgloss.NewStyle().Background(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, bch)))
			b.WriteString(style.Render("  "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// terminalKeyToInputEvent maps a terminal keypress to the NES controller
// layout this package's Button enum describes. Unmapped keys return false.
func terminalKeyToInputEvent(msg tea.KeyMsg) (InputEvent, bool) {
	switch msg.String() {
	case "z":
		return InputEvent{Type: InputEventTypeButton, Button: ButtonA, Pressed: true}, true
	case "x":
		return InputEvent{Type: InputEventTypeButton, Button: ButtonB, Pressed: true}, true
	case "enter":
		return InputEvent{Type: InputEventTypeButton, Button: ButtonStart, Pressed: true}, true
	case "backspace", "tab":
		return InputEvent{Type: InputEventTypeButton, Button: ButtonSelect, Pressed: true}, true
	case "up":
		return InputEvent{Type: InputEventTypeButton, Button: ButtonUp, Pressed: true}, true
	case "down":
		return InputEvent{Type: InputEventTypeButton, Button: ButtonDown, Pressed: true}, true
	case "left":
		return InputEvent{Type: InputEventTypeButton, Button: ButtonLeft, Pressed: true}, true
	case "right":
		return InputEvent{Type: InputEventTypeButton, Button: ButtonRight, Pressed: true}, true
	case "esc", "ctrl+c":
		return InputEvent{Type: InputEventTypeQuit}, true
	default:
		return InputEvent{}, false
	}
}

// TerminalBackend implements Backend using a bubbletea program as the
// terminal renderer.
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow implements Window by driving a running bubbletea program.
type TerminalWindow struct {
	title         string
	width, height int

	program *tea.Program
	events  chan InputEvent
	done    chan struct{}
}

// NewTerminalBackend creates a new terminal graphics backend.
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend.
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow starts a bubbletea program and returns the Window driving it.
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	events := make(chan InputEvent, 64)
	model := newTerminalModel(events)
	program := tea.NewProgram(model)

	done := make(chan struct{})
	go func() {
		program.Run()
		close(done)
	}()

	return &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		program: program,
		events:  events,
		done:    done,
	}, nil
}

// Cleanup releases all terminal resources.
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has visible output).
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name.
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// SetTitle sets the window title. Terminal windows have no OS chrome, so
// this only stores the title in the window's title field.
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
}

// GetSize returns the configured window dimensions.
func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose reports whether the underlying bubbletea program has exited.
func (w *TerminalWindow) ShouldClose() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// SwapBuffers is a no-op: bubbletea redraws on every Update, which RenderFrame
// already triggers by sending a frameMsg.
func (w *TerminalWindow) SwapBuffers() {}

// PollEvents drains key events collected since the last call.
func (w *TerminalWindow) PollEvents() []InputEvent {
	var out []InputEvent
	for {
		select {
		case ev := <-w.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// RenderFrame forwards buf to the bubbletea program for its next View().
func (w *TerminalWindow) RenderFrame(frameBuffer [256 * 240]uint32) error {
	w.program.Send(frameMsg{buffer: frameBuffer})
	return nil
}

// Cleanup stops the bubbletea program and waits for it to exit.
func (w *TerminalWindow) Cleanup() error {
	w.program.Send(quitMsg{})
	<-w.done
	return nil
}
