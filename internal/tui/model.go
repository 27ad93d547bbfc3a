package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
)

// ---------- messages sent from the shell goroutine via program.Send() ----------

type readInputMsg struct {
	password bool
	prompt   string
}

type inputResult struct {
	text string
	err  error
}

type statusMsg struct {
	text  string
	isErr bool
}
type commentMsg struct{ text string }
type systemMsg struct{ text string }
type errorMsg struct{ text string }
type controlsMsg struct{ controls app.Controls }
type pageMsg struct{ page nav.Page }
type doneMsg struct{ err error }

// TUIConfig carries version/server info for the welcome page.
type TUIConfig struct {
	Version     string
	Server      string
	ShowWelcome bool
}

// ---------- styles ----------

var (
	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	statusBarBgStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235"))

	statusPageStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("2")).
			Bold(true)

	statusErrStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("203"))

	controlOnStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252"))

	controlOffStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("240"))

	commentBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1)

	pageBannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	welcomeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("8")).
				Padding(0, 1)

	welcomeTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("2")).
				Bold(true)

	welcomeLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("8"))

	welcomeValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))
)

var shutterSpinner = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    120 * time.Millisecond,
}

// ---------- Model ----------

// Model is the bubbletea model managing the full TUI state.
type Model struct {
	textinput textinput.Model
	spinner   spinner.Model
	width     int
	height    int

	inputMode    bool
	passwordMode bool
	slashSel     int

	page      nav.Page
	controls  app.Controls
	status    string
	statusErr bool

	inputCh chan inputResult

	noiseDropCount int
	quitting       bool

	cfg TUIConfig

	mdRenderer      *glamour.TermRenderer
	mdRendererWidth int
}

const defaultPrompt = "❯ "

// NewModel creates the initial bubbletea model.
func NewModel(inputCh chan inputResult, cfg TUIConfig) Model {
	ti := textinput.New()
	ti.Prompt = defaultPrompt
	ti.CharLimit = 4096

	sp := spinner.New()
	sp.Spinner = shutterSpinner
	sp.Style = spinnerStyle

	return Model{
		textinput: ti,
		spinner:   sp,
		inputCh:   inputCh,
		page:      nav.PageLogin,
		cfg:       cfg,
	}
}

func (m Model) Init() tea.Cmd {
	if m.cfg.ShowWelcome {
		return tea.Println(renderWelcome(m.cfg))
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textinput.Width = m.width - 4

	case spinner.TickMsg:
		if m.controls.Generating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		s := msg.String()
		if isTerminalNoiseKey(s) {
			m.noiseDropCount = 4
			return m, nil
		}
		if m.noiseDropCount > 0 && len(s) <= 2 {
			m.noiseDropCount--
			return m, nil
		}
		switch s {
		case "ctrl+c":
			if m.inputMode {
				m.inputCh <- inputResult{err: fmt.Errorf("interrupted")}
				m.inputMode = false
				m.textinput.Blur()
			}
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.inputMode {
				text := strings.TrimSpace(m.textinput.Value())
				if !m.passwordMode && text != "" {
					cmds = append(cmds, tea.Println(userStyle.Render(string(m.page)+" ❯ "+text)))
				}
				m.finishInput()
				m.inputCh <- inputResult{text: text}
			}
			return m, tea.Batch(cmds...)
		case "tab":
			if items := m.slashItems(); len(items) > 0 {
				m.textinput.SetValue(items[m.slashIndex(len(items))].Name + " ")
				m.textinput.CursorEnd()
				m.slashSel = 0
			}
			return m, nil
		case "up":
			if len(m.slashItems()) > 0 && m.slashSel > 0 {
				m.slashSel--
			}
			return m, nil
		case "down":
			if n := len(m.slashItems()); n > 0 && m.slashSel < n-1 {
				m.slashSel++
			}
			return m, nil
		}

		if m.inputMode {
			if isControlKeyMsg(s) {
				return m, nil
			}
			var cmd tea.Cmd
			m.textinput, cmd = m.textinput.Update(msg)
			m.slashSel = 0
			cmds = append(cmds, cmd)
		}

	// ---------- custom messages from the shell goroutine ----------

	case readInputMsg:
		m.inputMode = true
		m.passwordMode = msg.password
		if msg.password {
			m.textinput.EchoMode = textinput.EchoPassword
			m.textinput.EchoCharacter = '•'
			m.textinput.Prompt = msg.prompt
		} else {
			m.textinput.EchoMode = textinput.EchoNormal
			m.textinput.Prompt = defaultPrompt
		}
		cmds = append(cmds, m.textinput.Focus())

	case statusMsg:
		m.status = msg.text
		m.statusErr = msg.isErr
		if msg.isErr {
			cmds = append(cmds, tea.Println(errorStyle.Render("✗ "+msg.text)))
		} else {
			cmds = append(cmds, tea.Println(successStyle.Render("✓ "+msg.text)))
		}

	case commentMsg:
		if msg.text != "" {
			cmds = append(cmds, tea.Println(m.renderComment(msg.text)))
		}

	case controlsMsg:
		wasGenerating := m.controls.Generating
		m.controls = msg.controls
		if m.controls.Generating && !wasGenerating {
			cmds = append(cmds, m.spinner.Tick)
		}

	case pageMsg:
		if msg.page != m.page {
			m.page = msg.page
			cmds = append(cmds, tea.Println(pageBannerStyle.Render("── "+pageTitle(msg.page)+" ──")))
		}

	case systemMsg:
		cmds = append(cmds, tea.Println(systemStyle.Render(msg.text)))

	case errorMsg:
		cmds = append(cmds, tea.Println(errorStyle.Render("Error: "+msg.text)))

	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, tea.Batch(cmds...)
}

// finishInput resets the text input after a submission.
func (m *Model) finishInput() {
	m.textinput.SetValue("")
	m.textinput.Blur()
	m.textinput.EchoMode = textinput.EchoNormal
	m.textinput.Prompt = defaultPrompt
	m.inputMode = false
	m.passwordMode = false
	m.slashSel = 0
}

// slashItems returns the commands matching the current input while the
// user is still typing a command word.
func (m *Model) slashItems() []SlashMenuItem {
	if !m.inputMode || m.passwordMode {
		return nil
	}
	v := m.textinput.Value()
	if !strings.HasPrefix(v, "/") || strings.Contains(v, " ") {
		return nil
	}
	return filterSlashItems(markUnavailable(ShellSlashCommands(), m.page, m.controls), v)
}

func (m *Model) slashIndex(n int) int {
	if m.slashSel >= n {
		return n - 1
	}
	return m.slashSel
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var parts []string
	if m.controls.Generating {
		parts = append(parts, spinnerStyle.Render(m.spinner.View())+hintStyle.Render(" Generating comment…"))
	}
	if items := m.slashItems(); len(items) > 0 {
		parts = append(parts, renderSlashMenu(items, m.slashIndex(len(items)), m.width))
	}

	var input string
	if m.inputMode {
		if !m.passwordMode {
			if preview := renderWrappedInputPreview(m.textinput.Value(), m.width-4, 4); preview != "" {
				parts = append(parts, preview)
			}
		}
		input = m.textinput.View()
	} else {
		input = systemStyle.Render("❯")
	}

	parts = append(parts, input, m.renderStatusBar())
	return strings.Join(parts, "\n")
}

// renderStatusBar renders the bottom separator + page/controls/status bar.
func (m *Model) renderStatusBar() string {
	bar := statusPageStyle.Render(" " + pageTitle(m.page))
	if m.page == nav.PageMain {
		bar += statusBarStyle.Render("│") +
			renderControl("capture", m.controls.CanCapture) +
			renderControl("stop", m.controls.CanStopRecording) +
			renderControl("generate", m.controls.CanGenerate)
	}
	if m.status != "" {
		avail := m.width - lipgloss.Width(bar) - 4
		text := m.status
		if avail > 0 {
			if lines := wrapByDisplayWidth(text, avail); len(lines) > 1 {
				text = runewidth.Truncate(text, avail, "…")
			}
		}
		style := statusBarStyle
		if m.statusErr {
			style = statusErrStyle.Padding(0, 1)
		}
		bar += statusBarStyle.Render("│") + style.Render(text)
	}
	return separatorStyle.Width(m.width).Render(strings.Repeat("─", m.width)) + "\n" +
		statusBarBgStyle.Width(m.width).Render(bar)
}

func renderControl(name string, on bool) string {
	if on {
		return controlOnStyle.Render(" ● " + name)
	}
	return controlOffStyle.Render(" ○ " + name)
}

func pageTitle(p nav.Page) string {
	switch p {
	case nav.PageLogin:
		return "Log in"
	case nav.PageSignup:
		return "Sign up"
	case nav.PageVerify:
		return "Verify email"
	case nav.PageMain:
		return "Capture"
	}
	return string(p)
}

// ---------- comment rendering ----------

func (m *Model) getMarkdownRenderer() *glamour.TermRenderer {
	width := m.width
	if width <= 0 {
		width = 80
	}
	wrapWidth := width - 8
	if m.mdRenderer != nil && m.mdRendererWidth == wrapWidth {
		return m.mdRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return nil
	}
	m.mdRenderer = r
	m.mdRendererWidth = wrapWidth
	return r
}

func (m *Model) renderMarkdown(text string) string {
	r := m.getMarkdownRenderer()
	if r == nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}

func (m *Model) renderComment(text string) string {
	return commentBorderStyle.Render(m.renderMarkdown(text))
}

// ---------- welcome page ----------

func renderWelcome(cfg TUIConfig) string {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	lines := []string{
		welcomeLabelStyle.Render("Server: ") + welcomeValueStyle.Render(cfg.Server),
		"",
		hintStyle.Render("/help commands  tab complete  ctrl+c quit"),
	}
	title := welcomeTitleStyle.Render(fmt.Sprintf("quipcam %s", version))
	return title + "\n" + welcomeBorderStyle.Render(strings.Join(lines, "\n"))
}

// ---------- wrapping ----------

// wrapByDisplayWidth splits s into lines no wider than width terminal cells.
func wrapByDisplayWidth(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	var (
		lines []string
		cur   strings.Builder
		w     int
	)
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > width && cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
			w = 0
		}
		cur.WriteRune(r)
		w += rw
	}
	if cur.Len() > 0 || len(lines) == 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// renderWrappedInputPreview shows input that no longer fits on the prompt
// line, keeping the last maxLines lines. Returns "" for input that fits.
func renderWrappedInputPreview(text string, width, maxLines int) string {
	if width <= 0 || runewidth.StringWidth(text) <= width {
		return ""
	}
	lines := wrapByDisplayWidth(text, width)
	if maxLines > 1 && len(lines) > maxLines {
		hidden := len(lines) - (maxLines - 1)
		lines = append([]string{fmt.Sprintf("… +%d lines", hidden)}, lines[hidden:]...)
	}
	return hintStyle.Render(strings.Join(lines, "\n"))
}

// ---------- key event helpers ----------

func isTerminalNoiseKey(s string) bool {
	if strings.Contains(s, ";rgb:") || strings.HasPrefix(s, "]") || strings.HasPrefix(s, "alt+]") {
		return true
	}
	if (strings.HasSuffix(s, "M") || strings.HasSuffix(s, "m")) && strings.Contains(s, ";") {
		return true
	}
	if strings.HasPrefix(s, "[<") || strings.HasPrefix(s, "alt+[<") {
		return true
	}
	if strings.HasPrefix(s, "[?") || strings.HasPrefix(s, "alt+[?") {
		return true
	}
	if len(s) > 1 && s[0] == '[' && s[1] >= '0' && s[1] <= '9' {
		return true
	}
	return false
}

func isControlKeyMsg(s string) bool {
	for _, r := range s {
		if r == '\x1b' || (r < 0x20 && r != '\t' && r != '\n' && r != '\r') {
			return true
		}
	}
	return false
}
