package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Batch is the outcome of one distributor processing step.
type Batch struct {
	Iterations int
	Payouts    int
	Paid       string // formatted reward amount
	Cursor     int
	Holders    int
	// Done reports that there is nothing left to pay out.
	Done bool
}

// StepFunc runs one processing step.
type StepFunc func() (Batch, error)

type batchMsg struct {
	batch Batch
	err   error
}

type autoTickMsg struct{}

// ProcessModel is the Bubble Tea model that steps distributor batches one
// key press at a time, or continuously in auto mode.
type ProcessModel struct {
	Title    string
	Symbol   string
	Batches  []Batch
	Err      error
	Auto     bool
	Running  bool
	Quitting bool

	step     StepFunc
	interval time.Duration
	frame    int
}

// NewProcessModel returns a model that calls step for each batch.
func NewProcessModel(title, symbol string, interval time.Duration, step StepFunc) ProcessModel {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return ProcessModel{Title: title, Symbol: symbol, step: step, interval: interval}
}

// NewProcessProgram wraps NewProcessModel in a program.
func NewProcessProgram(title, symbol string, step StepFunc) *tea.Program {
	return tea.NewProgram(NewProcessModel(title, symbol, 0, step))
}

// Finished reports whether the last batch had nothing left to do or failed.
func (m ProcessModel) Finished() bool {
	if m.Err != nil {
		return true
	}
	return len(m.Batches) > 0 && m.Batches[len(m.Batches)-1].Done
}

func (m ProcessModel) Init() tea.Cmd { return nil }

func (m ProcessModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "enter", " ", "n":
			return m.next()
		case "a":
			m.Auto = !m.Auto
			if m.Auto {
				return m.next()
			}
		}

	case autoTickMsg:
		if m.Auto {
			return m.next()
		}

	case batchMsg:
		m.Running = false
		m.frame++
		if msg.err != nil {
			m.Err = msg.err
			m.Auto = false
			return m, nil
		}
		m.Batches = append(m.Batches, msg.batch)
		if msg.batch.Done {
			m.Auto = false
			return m, nil
		}
		if m.Auto {
			return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return autoTickMsg{} })
		}
	}
	return m, nil
}

// next schedules a step unless one is in flight or processing has finished.
func (m ProcessModel) next() (tea.Model, tea.Cmd) {
	if m.Running || m.Finished() {
		return m, nil
	}
	m.Running = true
	step := m.step
	return m, func() tea.Msg {
		b, err := step()
		return batchMsg{batch: b, err: err}
	}
}

func (m ProcessModel) View() string {
	if m.Quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(m.Title) + "\n")

	const (
		wN    = 5
		wIter = 8
		wPay  = 8
		wPaid = 24
	)
	sb.WriteString(
		padR(StyleDim.Render("#"), wN) + "  " +
			padR(StyleDim.Render("VISITED"), wIter) + "  " +
			padR(StyleDim.Render("PAYOUTS"), wPay) + "  " +
			padR(StyleDim.Render("PAID"), wPaid) + "  " +
			StyleDim.Render("CURSOR") + "\n",
	)
	sb.WriteString(StyleMeta.Render(strings.Repeat("─", wN+wIter+wPay+wPaid+16)) + "\n")

	if len(m.Batches) == 0 {
		sb.WriteString(StyleMeta.Render("  no batches yet") + "\n")
	}
	for i, b := range m.Batches {
		paid := StyleDim.Render("0 " + m.Symbol)
		if b.Payouts > 0 {
			paid = Amount(b.Paid, m.Symbol)
		}
		sb.WriteString(
			padR(StyleMeta.Render(fmt.Sprintf("%d", i+1)), wN) + "  " +
				padR(StyleValue.Render(fmt.Sprintf("%d", b.Iterations)), wIter) + "  " +
				padR(StyleSuccess.Render(fmt.Sprintf("%d", b.Payouts)), wPay) + "  " +
				padR(paid, wPaid) + "  " +
				StyleMeta.Render(fmt.Sprintf("%d/%d", b.Cursor, b.Holders)) + "\n",
		)
	}

	sb.WriteString("\n")
	switch {
	case m.Err != nil:
		sb.WriteString(Err(m.Err.Error()))
	case m.Finished():
		sb.WriteString(Success("all holders paid up"))
	case m.Running:
		sb.WriteString(StyleInfo.Render(abSpin[m.frame%len(abSpin)] + " processing…"))
	default:
		sb.WriteString(processControls(m.Auto))
	}
	sb.WriteString("\n")
	return sb.String()
}

var abSpin = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func processControls(auto bool) string {
	sep := StyleMeta.Render("   ")
	mode := "auto"
	if auto {
		mode = "pause"
	}
	var sb strings.Builder
	sb.WriteString(StyleInfo.Render("[ enter ]"))
	sb.WriteString(StyleMeta.Render(" next batch"))
	sb.WriteString(sep)
	sb.WriteString(StyleWarning.Render("[ a ]"))
	sb.WriteString(StyleMeta.Render(" " + mode))
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ q ]"))
	sb.WriteString(StyleMeta.Render(" quit"))
	return sb.String()
}
