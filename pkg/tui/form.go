// Package tui implements the full-screen form of the poster generator. It
// collects the same fields the flags cover: city, radius, style, paper,
// output file, and the context layers.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/osmatelier/osmatelier/pkg/osm"
	"github.com/osmatelier/osmatelier/pkg/render"
)

const maxRadiusKm = 50.0

// Params holds the settings collected by the form.
type Params struct {
	City      string
	RadiusKm  float64
	Style     string
	Paper     string
	Output    string
	ShowNames bool
	Layers    osm.LayerOptions
}

// Form fields, top to bottom.
const (
	fieldCity = iota
	fieldRadius
	fieldStyle
	fieldPaper
	fieldOutput
	fieldLayers
	fieldSubmit
	fieldCount
)

var toggleNames = []string{"street names", "buildings", "water", "parks"}

// Styles
var (
	baseFg    = lipgloss.Color("#E6E6E6")
	baseDimFg = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	accentFg  = lipgloss.Color("#2B6CB0")
	borderCol = lipgloss.Color("#243141")

	appStyle    = lipgloss.NewStyle().Foreground(baseFg)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderCol).Padding(1, 2)
	titleStyle  = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(baseDimFg)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53E3E"))
)

// Form is the bubbletea model for the poster options form.
type Form struct {
	width  int
	height int

	focus int

	city   textinput.Model
	radius textinput.Model
	output textinput.Model

	styleNames []string
	styleIdx   int
	paperNames []string
	paperIdx   int

	toggles   [4]bool
	toggleIdx int

	status    string
	submitted bool
	canceled  bool
	result    Params
}

// NewForm creates a form pre-filled with the given defaults.
func NewForm(defaults Params) Form {
	f := Form{
		styleNames: render.StyleNames(),
		paperNames: render.PaperNames(),
	}

	f.city = textinput.New()
	f.city.Placeholder = "Portland, Oregon"
	f.city.CharLimit = 120
	f.city.SetValue(defaults.City)
	f.city.Focus()

	f.radius = textinput.New()
	f.radius.CharLimit = 6
	f.radius.SetValue(strconv.FormatFloat(defaults.RadiusKm, 'f', -1, 64))

	f.output = textinput.New()
	f.output.Placeholder = "<city>.svg"
	f.output.CharLimit = 200
	f.output.SetValue(defaults.Output)

	for i, name := range f.styleNames {
		if name == defaults.Style {
			f.styleIdx = i
		}
	}
	for i, name := range f.paperNames {
		if name == defaults.Paper {
			f.paperIdx = i
		}
	}

	f.toggles = [4]bool{
		defaults.ShowNames,
		defaults.Layers.Buildings,
		defaults.Layers.Water,
		defaults.Layers.Parks,
	}

	return f
}

// Submitted reports whether the form was completed.
func (f Form) Submitted() bool { return f.submitted }

// Canceled reports whether the user backed out of the form.
func (f Form) Canceled() bool { return f.canceled }

// Result returns the collected parameters; valid only after Submitted.
func (f Form) Result() Params { return f.result }

func (f Form) Init() tea.Cmd { return textinput.Blink }

func (f Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.width = msg.Width
		f.height = msg.Height
		return f, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			f.canceled = true
			return f, tea.Quit
		case "tab", "down":
			f.setFocus((f.focus + 1) % fieldCount)
			return f, nil
		case "shift+tab", "up":
			f.setFocus((f.focus + fieldCount - 1) % fieldCount)
			return f, nil
		case "enter":
			if f.focus == fieldSubmit {
				return f.submit()
			}
			f.setFocus(f.focus + 1)
			return f, nil
		case "left", "right":
			if f.focus == fieldStyle || f.focus == fieldPaper || f.focus == fieldLayers {
				f.adjust(msg.String())
				return f, nil
			}
		case " ":
			if f.focus == fieldLayers {
				f.toggles[f.toggleIdx] = !f.toggles[f.toggleIdx]
				return f, nil
			}
		}
	}

	var cmd tea.Cmd
	switch f.focus {
	case fieldCity:
		f.city, cmd = f.city.Update(msg)
	case fieldRadius:
		f.radius, cmd = f.radius.Update(msg)
	case fieldOutput:
		f.output, cmd = f.output.Update(msg)
	}
	return f, cmd
}

func (f *Form) setFocus(field int) {
	f.focus = field
	f.status = ""
	f.city.Blur()
	f.radius.Blur()
	f.output.Blur()

	switch field {
	case fieldCity:
		f.city.Focus()
	case fieldRadius:
		f.radius.Focus()
	case fieldOutput:
		f.output.Focus()
	}
}

// adjust moves the selection on the choice rows.
func (f *Form) adjust(dir string) {
	delta := 1
	if dir == "left" {
		delta = -1
	}
	switch f.focus {
	case fieldStyle:
		f.styleIdx = (f.styleIdx + delta + len(f.styleNames)) % len(f.styleNames)
	case fieldPaper:
		f.paperIdx = (f.paperIdx + delta + len(f.paperNames)) % len(f.paperNames)
	case fieldLayers:
		f.toggleIdx = (f.toggleIdx + delta + len(toggleNames)) % len(toggleNames)
	}
}

// submit validates the fields and quits on success. On a validation error
// the focus jumps back to the offending field.
func (f Form) submit() (tea.Model, tea.Cmd) {
	city := strings.TrimSpace(f.city.Value())
	if city == "" {
		f.status = "a city name is required"
		f.setFocus(fieldCity)
		return f, nil
	}

	radius, err := strconv.ParseFloat(strings.TrimSpace(f.radius.Value()), 64)
	if err != nil || radius <= 0 || radius > maxRadiusKm {
		f.status = fmt.Sprintf("radius must be between 0 and %.0f km", maxRadiusKm)
		f.setFocus(fieldRadius)
		return f, nil
	}

	f.result = Params{
		City:      city,
		RadiusKm:  radius,
		Style:     f.styleNames[f.styleIdx],
		Paper:     f.paperNames[f.paperIdx],
		Output:    strings.TrimSpace(f.output.Value()),
		ShowNames: f.toggles[0],
		Layers: osm.LayerOptions{
			Buildings: f.toggles[1],
			Water:     f.toggles[2],
			Parks:     f.toggles[3],
		},
	}
	f.submitted = true
	return f, tea.Quit
}

func (f Form) View() string {
	rows := []string{
		f.inputRow(fieldCity, "City", f.city.View()),
		f.inputRow(fieldRadius, "Radius (km)", f.radius.View()),
		f.choiceRow(fieldStyle, "Style", f.styleNames, f.styleIdx),
		f.choiceRow(fieldPaper, "Paper", f.paperNames, f.paperIdx),
		f.inputRow(fieldOutput, "Output", f.output.View()),
		f.layerRow(),
		"",
		f.submitRow(),
	}

	title := titleStyle.Render(" mapart - poster options ")
	help := dimStyle.Render("  tab/↑↓ move  ←→ choose  space toggle  enter next  esc quit")

	out := lipgloss.JoinVertical(lipgloss.Left,
		title,
		boxStyle.Render(strings.Join(rows, "\n")),
		help,
	)
	if f.status != "" {
		out = lipgloss.JoinVertical(lipgloss.Left, out, statusStyle.Render("  "+f.status))
	}
	return appStyle.Render(out)
}

func (f Form) marker(field int) string {
	if f.focus == field {
		return titleStyle.Render("> ")
	}
	return "  "
}

func (f Form) inputRow(field int, label, input string) string {
	return f.marker(field) + fmt.Sprintf("%-12s", label) + input
}

func (f Form) choiceRow(field int, label string, options []string, idx int) string {
	var b strings.Builder
	for i, opt := range options {
		if i > 0 {
			b.WriteString("  ")
		}
		if i == idx {
			b.WriteString(titleStyle.Render("[" + opt + "]"))
		} else {
			b.WriteString(dimStyle.Render(opt))
		}
	}
	return f.marker(field) + fmt.Sprintf("%-12s", label) + b.String()
}

func (f Form) layerRow() string {
	var b strings.Builder
	for i, name := range toggleNames {
		if i > 0 {
			b.WriteString("  ")
		}
		mark := "[ ] "
		if f.toggles[i] {
			mark = "[x] "
		}
		item := mark + name
		if f.focus == fieldLayers && i == f.toggleIdx {
			item = titleStyle.Render(item)
		} else {
			item = dimStyle.Render(item)
		}
		b.WriteString(item)
	}
	return f.marker(fieldLayers) + fmt.Sprintf("%-12s", "Layers") + b.String()
}

func (f Form) submitRow() string {
	label := "[ Generate ]"
	if f.focus == fieldSubmit {
		return f.marker(fieldSubmit) + titleStyle.Render(label)
	}
	return "  " + dimStyle.Render(label)
}
