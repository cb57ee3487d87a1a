package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/exp/slices"
	"golang.org/x/term"

	"github.com/tably-dev/tably/client/convert"
	"github.com/tably-dev/tably/client/data"
	"github.com/tably-dev/tably/client/hctx"
	"github.com/tably-dev/tably/client/lib"
	"github.com/tably-dev/tably/client/quota"
)

const LIST_HEIGHT = 14
const PREVIEW_LINES = 10

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	blockStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 2)
	selectedOptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
)

// step is the wizard's explicit state. Illegal combinations (like configuring
// options with no format selected) are prevented by the transition helpers.
type step int

const (
	stepSelectFormat step = iota
	stepConfigureOptions
	stepRunAndDownload
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Toggle  key.Binding
	Back    key.Binding
	Retry   key.Binding
	Another key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Back, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Toggle},
		{k.Back, k.Retry, k.Another, k.Quit},
	}
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑ ", "move up "),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓ ", "move down "),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select / continue "),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle / edit option "),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "left"),
		key.WithHelp("esc", "go back "),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry conversion "),
	),
	Another: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "convert another "),
	),
	Help: key.NewBinding(
		key.WithKeys("ctrl+h"),
		key.WithHelp("ctrl+h", "help "),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "ctrl+d"),
		key.WithHelp("ctrl+c", "exit "),
	),
}

type formatItem struct {
	format convert.Format
}

func (i formatItem) Title() string { return i.format.DisplayName }
func (i formatItem) Description() string {
	return fmt.Sprintf("%s (.%s)", i.format.Description, i.format.Extension)
}
func (i formatItem) FilterValue() string { return i.format.ID + " " + i.format.DisplayName }

type conversionFinishedMsg struct {
	content    string
	outputPath string
	err        error
}

type model struct {
	dataset data.Dataset
	// Output file stem; the extension comes from the selected format.
	stem    string
	tracker *quota.Tracker
	authed  bool
	// Fire-and-forget analytics hook. Nil in tests.
	track func(event string, properties map[string]any)

	step       step
	formatList list.Model
	selected   *convert.Format

	options      convert.Options
	optionKeys   []string
	optionCursor int
	editing      bool
	optionInput  textinput.Model

	spinner       spinner.Model
	converting    bool
	resultContent string
	outputPath    string
	convErr       error

	// Whether the blocking daily-limit prompt is showing.
	limitBlocked bool
	// How many times the limit prompt has been raised. One per blocked attempt.
	blockedPrompts int

	help     help.Model
	width    int
	quitting bool
}

func newWizardModel(ds data.Dataset, stem string, tracker *quota.Tracker, authed bool, track func(string, map[string]any)) model {
	items := make([]list.Item, 0)
	for _, format := range convert.Catalog() {
		items = append(items, formatItem{format: format})
	}
	width, _, err := getTerminalSize()
	if err != nil {
		width = 80
	}
	formatList := list.New(items, list.NewDefaultDelegate(), width, LIST_HEIGHT)
	formatList.Title = "Step 1 of 3: Choose an output format"
	formatList.SetShowHelp(false)
	formatList.SetShowStatusBar(false)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	optionInput := textinput.New()
	optionInput.CharLimit = 100

	return model{
		dataset:     ds,
		stem:        stem,
		tracker:     tracker,
		authed:      authed,
		track:       track,
		step:        stepSelectFormat,
		formatList:  formatList,
		spinner:     s,
		optionInput: optionInput,
		help:        help.New(),
		width:       width,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

// blockOnLimit is the quota gate: every transition that would start a
// conversion (selecting a format, running one, retrying one) consults the
// tracker first. A blocked attempt raises the blocking prompt and stays put.
func (m model) blockOnLimit() (model, bool) {
	if limit := m.tracker.CheckLimit(m.authed); !limit.Allowed {
		m.limitBlocked = true
		m.blockedPrompts += 1
		return m, true
	}
	return m, false
}

func (m model) attemptSelectFormat(format convert.Format) model {
	if blocked, ok := m.blockOnLimit(); ok {
		return blocked
	}
	return m.selectFormat(format)
}

func (m model) selectFormat(format convert.Format) model {
	m.selected = &format
	m.options = convert.DefaultOptions(format.ID)
	m.optionKeys = optionKeys(m.options)
	m.optionCursor = 0
	m.editing = false
	m.resultContent = ""
	m.outputPath = ""
	m.convErr = nil
	m.step = stepConfigureOptions
	return m
}

func optionKeys(opts convert.Options) []string {
	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// advanceToRun moves 2→3 and kicks off the conversion. Without a selected
// format there is nothing to run, so the model stays where it is. The quota
// gate applies here too: back-navigating after an earlier conversion must not
// sidestep an exhausted limit.
func (m model) advanceToRun() (model, tea.Cmd) {
	if m.selected == nil {
		return m, nil
	}
	if blocked, ok := m.blockOnLimit(); ok {
		return blocked, nil
	}
	m.step = stepRunAndDownload
	m.converting = true
	m.resultContent = ""
	m.outputPath = ""
	m.convErr = nil
	return m, tea.Batch(m.spinner.Tick, m.runConversionCmd())
}

func (m model) runConversionCmd() tea.Cmd {
	if m.selected == nil {
		return nil
	}
	formatID := m.selected.ID
	ds := m.dataset
	opts := m.options
	stem := m.stem
	return func() tea.Msg {
		content, err := convert.Convert(formatID, ds, opts)
		if err != nil {
			return conversionFinishedMsg{err: err}
		}
		outputPath, err := lib.WriteOutputFile(content, stem, formatID)
		if err != nil {
			return conversionFinishedMsg{err: err}
		}
		return conversionFinishedMsg{content: content, outputPath: outputPath}
	}
}

// resetForAnother loops the session back to step 1 rather than terminating.
func (m model) resetForAnother() model {
	m.step = stepSelectFormat
	m.selected = nil
	m.options = nil
	m.optionKeys = nil
	m.resultContent = ""
	m.outputPath = ""
	m.convErr = nil
	return m
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.limitBlocked {
			// The prompt is blocking: any key dismisses it, nothing else happens.
			m.limitBlocked = false
			return m, nil
		}
		switch m.step {
		case stepSelectFormat:
			return m.updateSelectFormat(msg)
		case stepConfigureOptions:
			return m.updateConfigureOptions(msg)
		case stepRunAndDownload:
			return m.updateRunAndDownload(msg)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.formatList.SetSize(msg.Width, LIST_HEIGHT)
		return m, nil
	case conversionFinishedMsg:
		m.converting = false
		if msg.err != nil {
			m.convErr = msg.err
			return m, nil
		}
		m.resultContent = msg.content
		m.outputPath = msg.outputPath
		m.convErr = nil
		// Hub responsibility: a completed conversion counts against the quota
		// and emits an analytics event.
		m.tracker.IncrementCount(m.authed)
		if m.track != nil {
			m.track("conversion_completed", map[string]any{
				"format": m.selected.ID,
				"rows":   len(m.dataset.Rows),
				"source": "wizard",
			})
		}
		return m, nil
	default:
		if m.converting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) updateSelectFormat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Select):
		if item, ok := m.formatList.SelectedItem().(formatItem); ok {
			return m.attemptSelectFormat(item.format), nil
		}
		return m, nil
	case key.Matches(msg, keys.Back):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	default:
		var cmd tea.Cmd
		m.formatList, cmd = m.formatList.Update(msg)
		return m, cmd
	}
}

func (m model) updateConfigureOptions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch {
		case key.Matches(msg, keys.Select):
			m.options[m.optionKeys[m.optionCursor]] = m.optionInput.Value()
			m.editing = false
			return m, nil
		case key.Matches(msg, keys.Back):
			m.editing = false
			return m, nil
		default:
			var cmd tea.Cmd
			m.optionInput, cmd = m.optionInput.Update(msg)
			return m, cmd
		}
	}
	switch {
	case key.Matches(msg, keys.Up):
		if m.optionCursor > 0 {
			m.optionCursor -= 1
		}
		return m, nil
	case key.Matches(msg, keys.Down):
		if m.optionCursor < len(m.optionKeys)-1 {
			m.optionCursor += 1
		}
		return m, nil
	case key.Matches(msg, keys.Toggle):
		if len(m.optionKeys) == 0 {
			return m, nil
		}
		name := m.optionKeys[m.optionCursor]
		switch value := m.options[name].(type) {
		case bool:
			m.options[name] = !value
		case string:
			m.optionInput.SetValue(value)
			m.optionInput.Focus()
			m.editing = true
		}
		return m, nil
	case key.Matches(msg, keys.Select):
		next, cmd := m.advanceToRun()
		return next, cmd
	case key.Matches(msg, keys.Back):
		m.step = stepSelectFormat
		return m, nil
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

func (m model) updateRunAndDownload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.converting {
		// No cancellation: the conversion is synchronous CPU-bound work.
		return m, nil
	}
	switch {
	case key.Matches(msg, keys.Retry):
		if m.convErr != nil {
			if blocked, ok := m.blockOnLimit(); ok {
				return blocked, nil
			}
			m.converting = true
			m.convErr = nil
			return m, tea.Batch(m.spinner.Tick, m.runConversionCmd())
		}
		return m, nil
	case key.Matches(msg, keys.Back):
		m.step = stepConfigureOptions
		return m, nil
	case key.Matches(msg, keys.Another):
		return m.resetForAnother(), nil
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.limitBlocked {
		status := m.tracker.GetStatus(m.authed)
		reset := m.tracker.GetRemainingTime()
		prompt := fmt.Sprintf("%s\n\nYour free conversions reset in %d hour(s) (at %s).\nRun `tably login YOUR_API_KEY` to remove the limit.\n\n%s",
			errStyle.Render(status.Message),
			reset.HoursUntilReset, reset.ResetTimeLabel,
			dimStyle.Render("press any key to dismiss"))
		return blockStyle.Render(prompt) + "\n"
	}
	var body string
	switch m.step {
	case stepSelectFormat:
		body = m.formatList.View()
	case stepConfigureOptions:
		body = m.viewConfigureOptions()
	case stepRunAndDownload:
		body = m.viewRunAndDownload()
	}
	return fmt.Sprintf("\n%s\n%s", body, m.help.View(keys))
}

func (m model) viewConfigureOptions() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Step 2 of 3: Options for %s", m.selected.DisplayName)))
	sb.WriteString("\n\n")
	if len(m.optionKeys) == 0 {
		sb.WriteString(dimStyle.Render("This format has no options."))
		sb.WriteString("\n")
	}
	for i, name := range m.optionKeys {
		line := fmt.Sprintf("%s = %v", name, m.options[name])
		if i == m.optionCursor {
			if m.editing {
				line = fmt.Sprintf("%s = %s", name, m.optionInput.View())
			} else {
				line = selectedOptStyle.Render(line)
			}
		}
		sb.WriteString("  " + line + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("space: toggle/edit an option, enter: convert"))
	return sb.String()
}

func (m model) viewRunAndDownload() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Step 3 of 3: Convert & download"))
	sb.WriteString("\n\n")
	switch {
	case m.converting:
		sb.WriteString(fmt.Sprintf("%s Converting %d row(s) to %s...\n", m.spinner.View(), len(m.dataset.Rows), m.selected.DisplayName))
	case m.convErr != nil:
		sb.WriteString(errStyle.Render(fmt.Sprintf("Conversion failed: %v", m.convErr)))
		sb.WriteString("\n\n")
		sb.WriteString(dimStyle.Render("r: retry, esc: back to options"))
		sb.WriteString("\n")
	case m.resultContent != "":
		sb.WriteString(okStyle.Render(fmt.Sprintf("Wrote %s", m.outputPath)))
		sb.WriteString("\n\n")
		for _, line := range previewLines(m.resultContent, m.width) {
			sb.WriteString(dimStyle.Render(line) + "\n")
		}
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("n: convert another, esc: back, ctrl+c: exit"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func previewLines(content string, width int) []string {
	if width <= 0 {
		width = 80
	}
	lines := strings.Split(content, "\n")
	if len(lines) > PREVIEW_LINES {
		lines = append(lines[:PREVIEW_LINES], "...")
	}
	truncated := make([]string, 0, len(lines))
	for _, line := range lines {
		truncated = append(truncated, runewidth.Truncate(line, width-2, "…"))
	}
	return truncated
}

func getTerminalSize() (int, int, error) {
	return term.GetSize(2)
}

// RunWizard loads the input file and starts the interactive conversion flow.
func RunWizard(ctx context.Context, inputPath string, parseDates bool) error {
	config := hctx.GetConf(ctx)
	ds, err := data.LoadFile(inputPath, parseDates, config.TimestampFormat)
	if err != nil {
		return err
	}
	stem := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	tracker := lib.NewQuotaTracker(ctx)
	authed := config.IsAuthenticated()
	track := func(event string, properties map[string]any) {
		lib.TrackEvent(ctx, event, properties)
	}
	lipgloss.SetColorProfile(termenv.ANSI)
	p := tea.NewProgram(newWizardModel(ds, stem, tracker, authed, track), tea.WithOutput(os.Stderr))
	_, err = p.Run()
	if err != nil {
		return fmt.Errorf("failed to run the conversion wizard: %w", err)
	}
	return nil
}
