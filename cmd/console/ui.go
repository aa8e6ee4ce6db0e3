package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/storylines/internal/engine"
	"github.com/jwebster45206/storylines/internal/handlers"
	"github.com/jwebster45206/storylines/pkg/actor"
	"github.com/jwebster45206/storylines/pkg/scenario"
	"github.com/jwebster45206/storylines/pkg/state"
	"github.com/jwebster45206/storylines/pkg/textfilter"
)

type phase int

const (
	phaseMenu phase = iota
	phaseCreate
	phasePlay
)

const requestTimeout = 90 * time.Second

var formLabels = [...]string{"Name", "Class", "Background"}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Next   key.Binding
	Delete key.Binding
	Copy   key.Binding
	Menu   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Next:   key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Copy:   key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy scene")),
		Menu:   key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "characters")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	api  *apiClient
	keys keyMap

	phase      phase
	characters []actor.Character
	selected   int // len(characters) selects "new character"
	form       [len(formLabels)]textinput.Model
	focus      int

	game         *state.GameState
	sceneView    viewport.Model
	metaView     viewport.Model
	loading      bool
	progressTick int
	status       string
	err          error

	showQuitModal bool
	width         int
	height        int
	ready         bool
}

type charactersMsg struct {
	characters []actor.Character
	err        error
}

type turnMsg struct {
	turn *handlers.TurnResponse
	err  error
}

type gameStateMsg struct {
	gameState *state.GameState
	err       error
}

type deletedMsg struct{ err error }

type progressTickMsg struct{}

var (
	scenePanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3).
			PaddingRight(1)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")). // dark grey
			Italic(true)

	endingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(api *apiClient) ConsoleUI {
	m := ConsoleUI{
		api:       api,
		keys:      defaultKeyMap(),
		phase:     phaseMenu,
		sceneView: viewport.New(50, 20),
		metaView:  viewport.New(20, 20),
		loading:   true,
	}
	m.sceneView.MouseWheelEnabled = true

	limits := [...]int{engine.MaxNameLength, engine.MaxClassLength, 1000}
	for i := range m.form {
		ti := textinput.New()
		ti.Prompt = promptStyle.Render(":: ")
		ti.Placeholder = formLabels[i]
		ti.CharLimit = limits[i]
		ti.Width = 50
		m.form[i] = ti
	}
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadCharacters()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		return m, nil

	case charactersMsg:
		m.loading = false
		m.err = msg.err
		m.characters = msg.characters
		if m.selected > len(m.characters) {
			m.selected = len(m.characters)
		}
		return m, nil

	case gameStateMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.enterPlay(msg.gameState)
		return m, nil

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.status = ""
			m.err = msg.err
			var apiErr *apiError
			if errors.As(msg.err, &apiErr) && apiErr.Status == http.StatusConflict && m.game != nil {
				// Someone else moved the story on; resync
				m.loading = true
				return m, m.loadGameState(m.game.Character.ID)
			}
			m.refreshScene()
			return m, nil
		}
		m.enterPlay(msg.turn.GameState)
		return m, nil

	case deletedMsg:
		m.err = msg.err
		m.loading = true
		return m, m.loadCharacters()

	case progressTickMsg:
		if m.loading && m.phase == phasePlay {
			m.progressTick++
			m.refreshScene()
			return m, progressTick()
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.showQuitModal = true
			return m, nil
		}
		switch m.phase {
		case phaseMenu:
			return m.updateMenu(msg)
		case phaseCreate:
			return m.updateCreate(msg)
		case phasePlay:
			return m.updatePlay(msg)
		}
	}

	if m.phase == phaseCreate {
		var cmd tea.Cmd
		m.form[m.focus], cmd = m.form[m.focus].Update(msg)
		return m, cmd
	}
	if m.phase == phasePlay {
		var vpCmd tea.Cmd
		m.sceneView, vpCmd = m.sceneView.Update(msg)
		return m, vpCmd
	}
	return m, nil
}

func (m ConsoleUI) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.characters) {
			m.selected++
		}
	case key.Matches(msg, m.keys.Delete):
		if m.selected < len(m.characters) {
			m.loading = true
			return m, m.deleteCharacter(m.characters[m.selected].ID)
		}
	case key.Matches(msg, m.keys.Select):
		m.err = nil
		if m.selected == len(m.characters) {
			m.phase = phaseCreate
			m.focus = 0
			for i := range m.form {
				m.form[i].Reset()
				m.form[i].Blur()
			}
			m.form[0].Focus()
			return m, textinput.Blink
		}
		m.loading = true
		return m, m.loadGameState(m.characters[m.selected].ID)
	}
	return m, nil
}

func (m ConsoleUI) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Menu):
		m.phase = phaseMenu
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Select) && m.focus < len(m.form)-1:
		step := 1
		if msg.String() == "shift+tab" {
			step = len(m.form) - 1
		}
		m.form[m.focus].Blur()
		m.focus = (m.focus + step) % len(m.form)
		m.form[m.focus].Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Select):
		in := engine.StartInput{
			Name:       m.form[0].Value(),
			Class:      m.form[1].Value(),
			Background: m.form[2].Value(),
		}
		if _, err := in.Normalize(); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.loading = true
		m.status = "Writing the opening scene..."
		return m, m.startGame(in)
	}

	var cmd tea.Cmd
	m.form[m.focus], cmd = m.form[m.focus].Update(msg)
	return m, cmd
}

func (m ConsoleUI) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Menu):
		if m.loading {
			return m, nil
		}
		m.phase = phaseMenu
		m.game = nil
		m.err = nil
		m.loading = true
		return m, m.loadCharacters()
	case key.Matches(msg, m.keys.Copy):
		if m.game == nil {
			return m, nil
		}
		if err := clipboard.WriteAll(m.game.CurrentScene.Description); err != nil {
			m.err = fmt.Errorf("copy scene: %w", err)
		} else {
			m.status = "Scene copied to clipboard"
		}
		m.refreshScene()
		return m, nil
	}

	if choice, ok := m.choiceForKey(msg.String()); ok && !m.loading {
		m.loading = true
		m.progressTick = 0
		m.err = nil
		m.status = fmt.Sprintf("You chose: %s", choice.Text)
		m.refreshScene()
		scene := m.game.CurrentScene
		return m, tea.Batch(m.nextScene(m.game.Character.ID, scene.ID, choice.ID), progressTick())
	}

	var vpCmd tea.Cmd
	m.sceneView, vpCmd = m.sceneView.Update(msg)
	return m, vpCmd
}

// choiceForKey maps "1".."9" to the choice at that position.
func (m ConsoleUI) choiceForKey(k string) (scenario.Choice, bool) {
	if m.game == nil || m.game.GameProgress.IsGameOver || len(k) != 1 || k[0] < '1' || k[0] > '9' {
		return scenario.Choice{}, false
	}
	idx := int(k[0] - '1')
	choices := m.game.CurrentScene.Choices
	if idx >= len(choices) {
		return scenario.Choice{}, false
	}
	return choices[idx], true
}

func (m *ConsoleUI) enterPlay(gs *state.GameState) {
	m.phase = phasePlay
	m.game = gs
	m.err = nil
	m.status = ""
	m.layout()
	m.refreshScene()
	m.sceneView.GotoTop()
}

func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	sceneWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - sceneWidth - 6
	m.sceneView.Width = sceneWidth - 4
	m.sceneView.Height = m.height - 3
	m.metaView.Width = metaWidth
	m.metaView.Height = m.height - 2
	if m.phase == phasePlay {
		m.refreshScene()
	}
}

// refreshScene rebuilds both panels for the current width.
func (m *ConsoleUI) refreshScene() {
	if m.game == nil {
		return
	}
	content := sceneContent(m.game, m.sceneView.Width)
	if m.status != "" {
		content += promptStyle.Render(m.status) + "\n\n"
	}
	if m.loading {
		content += m.renderProgressBar() + "\n"
	}
	if m.err != nil {
		content += errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	m.sceneView.SetContent(content)
	if m.loading || m.err != nil {
		m.sceneView.GotoBottom()
	}
	m.metaView.SetContent(writeMetadata(m.game))
}

func sceneContent(gs *state.GameState, width int) string {
	if width < 20 {
		width = 20
	}
	scene := gs.CurrentScene

	var content strings.Builder
	content.WriteString(titleStyle.Render(fmt.Sprintf("SCENE %d", scene.SceneNumber)) + "\n\n")
	content.WriteString(wordwrap.String(scene.Description, width) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	if scene.IsEnding {
		label := "THE END"
		if scene.EndingType != "" {
			label = fmt.Sprintf("THE END (%s)", scene.EndingType)
		}
		content.WriteString(endingStyle.Render(label) + "\n\n")
		content.WriteString(promptStyle.Render("ctrl+b returns to your characters") + "\n\n")
		return content.String()
	}

	for i, choice := range scene.Choices {
		line := wordwrap.String(fmt.Sprintf("%d. %s", i+1, choice.Text), width)
		content.WriteString(choiceStyle.Render(line) + "\n")
		for _, req := range choice.Requirements {
			content.WriteString(lockedStyle.Render("   requires "+requirementLabel(req)) + "\n")
		}
	}
	content.WriteString("\n" + promptStyle.Render("Press a number to choose") + "\n\n")
	return content.String()
}

func requirementLabel(req scenario.Requirement) string {
	switch req.Type {
	case scenario.RequirementItem:
		return req.Target
	case scenario.RequirementWorldFlag:
		return fmt.Sprintf("flag %s %s %v", req.Target, req.Operator, req.Value)
	}
	return fmt.Sprintf("%s %s %v", req.Target, req.Operator, req.Value)
}

func writeMetadata(gs *state.GameState) string {
	c := gs.Character
	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(c.Name)) + "\n")
	content.WriteString(fmt.Sprintf("Level %d %s\n\n", c.Stats.Level, textfilter.DisplayName(c.Class)))

	content.WriteString(fmt.Sprintf("Health: %d/%d\n", c.Stats.Health, c.Stats.MaxHealth))
	content.WriteString(fmt.Sprintf("Mana:   %d/%d\n", c.Stats.Mana, c.Stats.MaxMana))
	content.WriteString(fmt.Sprintf("XP:     %d\n", c.Stats.Experience))
	content.WriteString(fmt.Sprintf("Gold:   %d\n\n", c.Stats.Gold))

	content.WriteString(fmt.Sprintf("STR %d  INT %d  DEX %d\n", c.Stats.Strength, c.Stats.Intelligence, c.Stats.Dexterity))
	content.WriteString(fmt.Sprintf("CHA %d  WIS %d  CON %d\n\n", c.Stats.Charisma, c.Stats.Wisdom, c.Stats.Constitution))

	content.WriteString("Inventory:\n")
	if len(c.Inventory) == 0 {
		content.WriteString("Empty\n")
	}
	for _, item := range c.Inventory {
		if item.Quantity > 1 {
			content.WriteString(fmt.Sprintf("• %s x%d\n", item.Name, item.Quantity))
		} else {
			content.WriteString(fmt.Sprintf("• %s\n", item.Name))
		}
	}

	content.WriteString(fmt.Sprintf("\nScene %d of this tale\n", gs.GameProgress.CurrentSceneNumber))
	content.WriteString(fmt.Sprintf("World flags: %d\n\n", len(gs.WorldFlags)))

	content.WriteString("Commands:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• Ctrl+Y: Copy scene\n")
	content.WriteString("• Ctrl+B: Characters\n")
	content.WriteString("• Esc: Quit\n")
	return content.String()
}

func (m ConsoleUI) loadCharacters() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		chars, err := m.api.characters(ctx)
		return charactersMsg{chars, err}
	}
}

func (m ConsoleUI) loadGameState(characterID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		gs, err := m.api.gameState(ctx, characterID)
		return gameStateMsg{gs, err}
	}
}

func (m ConsoleUI) startGame(in engine.StartInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		turn, err := m.api.startGame(ctx, in)
		return turnMsg{turn, err}
	}
}

func (m ConsoleUI) nextScene(characterID, sceneID int64, choiceID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		turn, err := m.api.nextScene(ctx, characterID, sceneID, choiceID)
		return turnMsg{turn, err}
	}
}

func (m ConsoleUI) deleteCharacter(characterID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deletedMsg{m.api.deleteCharacter(ctx, characterID)}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.phase == phaseCreate {
					m.form[m.focus].Focus()
					return m, textinput.Blink
				}
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved after every scene.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderMenu() string {
	var content strings.Builder

	switch {
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Loading..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Fetching your characters..."))
	default:
		content.WriteString(modalTitleStyle.Render("STORYLINES"))
		content.WriteString("\n\n")
		for i, c := range m.characters {
			label := fmt.Sprintf("%s (level %d %s)", c.Name, c.Stats.Level, textfilter.DisplayName(c.Class))
			content.WriteString(menuItem(label, i == m.selected) + "\n")
		}
		content.WriteString(menuItem("+ New character", m.selected == len(m.characters)) + "\n")
		if m.err != nil {
			content.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("↑/↓ to navigate, Enter to play, d to delete, Esc to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func menuItem(label string, selected bool) string {
	if selected {
		return modalSelectedItemStyle.Render("▶ " + label)
	}
	return modalItemStyle.Render("  " + label)
}

func (m ConsoleUI) renderCreate() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("New Character"))
	content.WriteString("\n\n")

	if m.loading {
		content.WriteString(loadingStyle.Render(m.status))
	} else {
		for i := range m.form {
			content.WriteString(formLabels[i] + "\n")
			content.WriteString(m.form[i].View() + "\n\n")
		}
		if m.err != nil {
			content.WriteString(errorStyle.Render(m.err.Error()) + "\n\n")
		}
		content.WriteString(promptStyle.Render("Tab to move, Enter to begin, Ctrl+B to go back"))
	}

	modal := modalStyle.Width(64).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	switch m.phase {
	case phaseMenu:
		return m.renderMenu()
	case phaseCreate:
		return m.renderCreate()
	}

	sceneWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - sceneWidth - 6

	scenePanel := scenePanelStyle.Width(sceneWidth).Height(m.height - 2).Render(m.sceneView.View())
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(m.metaView.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, scenePanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.sceneView.Width
	if usable <= 0 {
		usable = 30
	}
	usable = min(max(usable, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓") // Blinking effect at the progress point
		default:
			bar.WriteString("░")
		}
	}
	return loadingStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
