package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
)

// SlashMenuItem is one entry in the slash command dropdown.
type SlashMenuItem struct {
	Name     string // "/upload"
	Args     string // "<path>"
	Desc     string
	Disabled bool
}

// ShellSlashCommands returns the shell commands as menu items.
func ShellSlashCommands() []SlashMenuItem {
	items := make([]SlashMenuItem, 0, len(app.ShellCommands))
	for _, c := range app.ShellCommands {
		_, args, _ := strings.Cut(c.Usage, " ")
		items = append(items, SlashMenuItem{Name: c.Name(), Args: args, Desc: c.Desc})
	}
	return items
}

// markUnavailable flags the capture and generate entries that the current
// page and controls would reject.
func markUnavailable(items []SlashMenuItem, page nav.Page, c app.Controls) []SlashMenuItem {
	out := make([]SlashMenuItem, len(items))
	for i, it := range items {
		switch it.Name {
		case "/camera", "/screen", "/clipboard", "/upload", "/record":
			it.Disabled = page != nav.PageMain || !c.CanCapture
		case "/stop":
			it.Disabled = !c.CanStopRecording
		case "/generate":
			it.Disabled = page != nav.PageMain || !c.CanGenerate
		}
		out[i] = it
	}
	return out
}

// filterSlashItems returns items whose Name starts with prefix, ignoring case.
func filterSlashItems(items []SlashMenuItem, prefix string) []SlashMenuItem {
	if prefix == "" || prefix == "/" {
		return items
	}
	lower := strings.ToLower(prefix)
	var out []SlashMenuItem
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Name), lower) {
			out = append(out, it)
		}
	}
	return out
}

var (
	slashMenuBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	slashMenuItemNormal = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	slashMenuItemSelected = lipgloss.NewStyle().
				Foreground(lipgloss.Color("220")).
				Bold(true)

	slashMenuItemDisabled = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	slashMenuArgs = lipgloss.NewStyle().
			Foreground(lipgloss.Color("109"))

	slashMenuDesc = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	slashMenuDescSelected = lipgloss.NewStyle().
				Foreground(lipgloss.Color("178"))
)

// renderSlashMenu renders the dropdown with sel highlighted, fitted to width.
func renderSlashMenu(items []SlashMenuItem, sel int, width int) string {
	if len(items) == 0 {
		return ""
	}

	maxName, maxArgs := 0, 0
	for _, it := range items {
		maxName = max(maxName, runewidth.StringWidth(it.Name))
		maxArgs = max(maxArgs, runewidth.StringWidth(it.Args))
	}

	lines := make([]string, 0, len(items))
	for i, it := range items {
		name := runewidth.FillRight(it.Name, maxName)
		args := runewidth.FillRight(it.Args, maxArgs)

		nameStyle, descStyle := slashMenuItemNormal, slashMenuDesc
		switch {
		case i == sel:
			nameStyle, descStyle = slashMenuItemSelected, slashMenuDescSelected
		case it.Disabled:
			nameStyle, descStyle = slashMenuItemDisabled, slashMenuItemDisabled
		}
		line := nameStyle.Render(name) + " " + slashMenuArgs.Render(args) + "  " + descStyle.Render(it.Desc)
		lines = append(lines, line)
	}

	maxWidth := max(width-6, 30)
	return slashMenuBorder.MaxWidth(maxWidth).Render(strings.Join(lines, "\n"))
}
