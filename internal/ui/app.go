// Package ui is the Bubble Tea application: compose a strategy description,
// watch the staged analysis stream in, and explore the resulting connection
// diagram.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"ecoweave/internal/analysis"
	"ecoweave/internal/config"
	"ecoweave/internal/journal"
	"ecoweave/internal/logging"
	"ecoweave/internal/protocol"
	"ecoweave/internal/ui/graphview"
)

type viewMode int

const (
	modeCompose viewMode = iota
	modeStream
)

// App is the root model.
type App struct {
	cfg    *config.Config
	client *analysis.Client
	jrnl   *journal.Journal // nil when journaling is disabled
	runner *analysis.Runner

	mode     viewMode
	input    textarea.Model
	spin     spinner.Model
	snapshot analysis.Snapshot
	graph    graphview.Model

	events <-chan protocol.Event
	gen    uint64

	width, height int
	animating     bool
}

// NewApp wires the application together.
func NewApp(cfg *config.Config, client *analysis.Client, jrnl *journal.Journal) *App {
	input := textarea.New()
	input.Placeholder = "Describe the building strategy, e.g. a green roof with rainwater capture and timber cladding..."
	input.Focus()
	input.SetHeight(5)
	input.CharLimit = 0

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &App{
		cfg:    cfg,
		client: client,
		jrnl:   jrnl,
		runner: &analysis.Runner{},
		input:  input,
		spin:   spin,
		graph:  graphview.New(),
	}
}

func (a *App) Init() tea.Cmd {
	return textarea.Blink
}

// waitForEvent blocks on the run's channel and converts one delivery into a
// message. The generation travels with the message so stale runs can be
// filtered on arrival.
func waitForEvent(ch <-chan protocol.Event, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{Gen: gen}
		}
		return streamEventMsg{Gen: gen, Event: ev}
	}
}

func scrollTick() tea.Cmd {
	return tea.Tick(time.Second/60, func(time.Time) tea.Msg {
		return scrollTickMsg{}
	})
}

// submit starts a new run, superseding any live one.
func (a *App) submit(description string) tea.Cmd {
	ctx, run := a.runner.Begin(context.Background())
	a.gen = run.Gen
	a.snapshot = analysis.Snapshot{}
	a.graph = graphview.New()
	a.graph.SetSize(a.width, a.graphHeight())
	a.mode = modeStream

	var obs analysis.FrameObserver
	if a.jrnl != nil {
		if rec := a.jrnl.NewRecorder(run.ID.String(), description); rec != nil {
			obs = rec.Observe
		}
	}

	logging.Info("submitting analysis", "run", run.ID, "gen", run.Gen)
	a.events = a.client.StreamObserved(ctx, description, obs)
	return tea.Batch(waitForEvent(a.events, a.gen), a.spin.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.SetWidth(msg.Width - 4)
		a.graph.SetSize(msg.Width, a.graphHeight())
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.runner.Stop()
			return a, tea.Quit
		}
		if a.mode == modeCompose {
			return a.updateCompose(msg)
		}
		return a.updateStream(msg)

	case streamEventMsg:
		if msg.Gen != a.gen {
			// superseded run, drop silently and stop pumping its channel
			return a, nil
		}
		a.snapshot = analysis.Reduce(a.snapshot, msg.Event)
		a.refreshGraph()
		return a, waitForEvent(a.events, a.gen)

	case streamClosedMsg:
		if msg.Gen != a.gen {
			return a, nil
		}
		a.events = nil
		return a, nil

	case scrollTickMsg:
		if a.graph.Tick() {
			a.animating = false
			return a, nil
		}
		return a, scrollTick()

	case spinner.TickMsg:
		if a.mode != modeStream || a.snapshot.Stage.Terminal() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	if a.mode == modeCompose {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		desc := strings.TrimSpace(a.input.Value())
		if desc == "" {
			return a, nil
		}
		return a, a.submit(desc)
	case "esc":
		a.input.Reset()
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateStream(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		a.graph.MoveCursor(1)
		return a, a.animate()
	case "k", "up":
		a.graph.MoveCursor(-1)
		return a, a.animate()
	case "tab", "h", "l", "left", "right":
		a.graph.SwitchSide()
		return a, a.animate()
	case "enter":
		a.graph.ToggleSelect()
		a.graph.SetSize(a.width, a.graphHeight())
		return a, nil
	case "n", "esc":
		// fresh submission: stop the live run and reset everything
		a.runner.Stop()
		a.gen = 0
		a.events = nil
		a.snapshot = analysis.Snapshot{}
		a.input.Reset()
		a.input.Focus()
		a.mode = modeCompose
		return a, textarea.Blink
	}
	return a, nil
}

// animate kicks the scroll spring loop if it is not already running.
func (a *App) animate() tea.Cmd {
	if a.animating {
		return nil
	}
	a.animating = true
	return scrollTick()
}

func (a *App) refreshGraph() {
	g := analysis.BuildGraph(a.snapshot)
	a.graph.SetData(g, a.snapshot.ServiceDetails)
	a.graph.SetSize(a.width, a.graphHeight())
}

func (a *App) graphHeight() int {
	// title + stage checklist + chips + footer + padding
	h := a.height - 12
	if h < 4 {
		h = 4
	}
	return h
}

func (a *App) View() string {
	if a.mode == modeCompose {
		return a.viewCompose()
	}
	return a.viewStream()
}

func (a *App) viewCompose() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ecoweave") + subtleStyle.Render("  material flow analysis") + "\n\n")
	b.WriteString(composeBoxStyle.Render(a.input.View()) + "\n\n")
	b.WriteString(helpStyle.Render("enter submit · esc clear · ctrl+c quit"))
	return b.String()
}

func (a *App) viewStream() string {
	s := a.snapshot

	var b strings.Builder
	b.WriteString(titleStyle.Render("ecoweave") + "\n\n")
	b.WriteString(a.viewStages() + "\n")

	if len(s.ExtractedMaterials) > 0 {
		var chips []string
		for _, m := range s.ExtractedMaterials {
			chips = append(chips, chipStyle.Render(m))
		}
		b.WriteString(strings.Join(chips, "") + "\n")
	}
	b.WriteString("\n")

	b.WriteString(a.graph.View() + "\n")

	if s.Stage == analysis.StageError {
		b.WriteString(errorStyle.Render("✗ "+s.Err) + "\n")
	}
	if r := s.Result; r != nil {
		b.WriteString(footerStyle.Render(fmt.Sprintf("done in %.1fs · $%.4f", r.ProcessingTimeMS/1000, r.CostUSD)) + "\n")
	}

	b.WriteString(helpStyle.Render("j/k move · tab switch column · enter details · n new · ctrl+c quit"))
	return b.String()
}

func (a *App) viewStages() string {
	s := a.snapshot

	type stageRow struct {
		label string
		at    analysis.Stage
	}
	rows := []stageRow{
		{"extract materials", analysis.StageExtract},
		{"match flows", analysis.StageMatch},
		{"link ecosystem services", analysis.StageLink},
	}

	var b strings.Builder
	for _, row := range rows {
		label := row.label
		if row.at == analysis.StageMatch && s.TotalChunks > 0 {
			label = fmt.Sprintf("%s (%d/%d)", label, s.DoneChunks, s.TotalChunks)
		}

		switch {
		case s.Stage != analysis.StageError && s.Stage > row.at:
			b.WriteString(stageDoneStyle.Render("✓ " + label))
		case s.Stage == row.at:
			b.WriteString(a.spin.View() + stageActiveStyle.Render(label))
			if s.Message != "" {
				b.WriteString(subtleStyle.Render("  " + s.Message))
			}
			if s.ElapsedMS > 0 {
				b.WriteString(subtleStyle.Render(fmt.Sprintf("  %.1fs", s.ElapsedMS/1000)))
			}
		default:
			b.WriteString(stagePendingStyle.Render("· " + label))
		}
		b.WriteString("\n")
	}
	return b.String()
}
