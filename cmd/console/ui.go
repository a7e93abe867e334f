package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

const (
	AgentName       = "Detective's Aide"
	PlaceHolderText = "Ask the witnesses a question..."
)

// guessFields is the order the final deduction is collected in.
var guessFields = []string{"killer", "motive", "method", "trick", "reasoning"}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	game         *GameStateResponse
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Language selection state
	showLanguageModal bool
	selectedLanguage  int

	// Guess entry state
	guessMode  bool
	guessField int
	guess      GuessRequest

	// Quit confirmation state
	showQuitModal bool

	// Last answer, for clipboard copy
	lastAnswer string

	// Progress bar state
	progressTick int
}

type gameCreatedMsg struct {
	game *NewGameResponse
	err  error
}

type askResponseMsg struct {
	response *AskResponse
	err      error
}

type gameStateMsg struct {
	game *GameStateResponse
	err  error
}

type guessResponseMsg struct {
	response *GuessResponse
	err      error
}

type summaryMsg struct {
	summary *SummaryResponse
	err     error
}

type actionDoneMsg struct {
	action string
	err    error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	followUpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // grey

	evidenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
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

var languageChoices = []string{"日本語 (ja)", "English (en)"}

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 2000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:            cfg,
		client:            client,
		textarea:          ta,
		chatViewport:      chatVp,
		metaViewport:      metaVp,
		ready:             false,
		showLanguageModal: true,
		selectedLanguage:  0,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func languageCode(selected int) string {
	if selected == 1 {
		return "en"
	}
	return "ja"
}

func writeIntro(gs *GameStateResponse, chatWidth int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("MYSTERY ENGINE") + "\n\n")
	content.WriteString("Interrogate the witnesses, unlock evidence, and name the killer.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 10))) + "\n\n")

	if gs != nil {
		cs := gs.CaseSummary
		content.WriteString(speakerStyle.Render(cs.Title) + "\n")
		content.WriteString(wordwrap.String(cs.Summary, chatWidth-6) + "\n\n")
		content.WriteString(fmt.Sprintf("Victim: %s (%s)\n", cs.VictimName, cs.FoundState))
		content.WriteString(fmt.Sprintf("Scene: %s, %s\n\n", cs.Location, cs.TimeWindow))
	}
	return content.String()
}

func writeMetadata(gs *GameStateResponse) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CASE FILE") + "\n\n")

	content.WriteString("Game ID:\n")
	if len(gs.GameID) >= 8 {
		content.WriteString(gs.GameID[:8] + "...\n\n")
	} else {
		content.WriteString(gs.GameID + "\n\n")
	}

	content.WriteString("Status:\n")
	content.WriteString(gs.Status + "\n\n")

	content.WriteString("Questions left:\n")
	content.WriteString(fmt.Sprintf("%d\n\n", gs.RemainingQuestions))

	content.WriteString("Suspects:\n")
	for _, c := range gs.Characters {
		content.WriteString(fmt.Sprintf("• %s (%s)\n", c.Name, c.Role))
	}
	content.WriteString("\n")

	if len(gs.UnlockedEvidence) > 0 {
		content.WriteString("Evidence:\n")
		for _, e := range gs.UnlockedEvidence {
			content.WriteString(fmt.Sprintf("• %s\n", e.Name))
		}
	} else {
		content.WriteString("Evidence:\nNone yet\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Ask\n")
	content.WriteString("• /guess: Accuse\n")
	content.WriteString("• /ready: Skip to guess\n")
	content.WriteString("• /summary: Recap\n")
	content.WriteString("• /end: End game\n")
	content.WriteString("• Ctrl+Y: Copy answer\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

// writeChatContent rebuilds the chat log for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6
	if chatWidth < 16 {
		chatWidth = 16
	}

	var content strings.Builder
	content.WriteString(writeIntro(m.game, m.chatViewport.Width))

	if m.game != nil {
		for _, msg := range m.game.Messages {
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(msg.Question, chatWidth) + "\n\n")
			content.WriteString(formatAnswer(msg.AnswerText, chatWidth) + "\n")
			if len(msg.FollowUpQuestions) > 0 {
				for i, q := range msg.FollowUpQuestions {
					content.WriteString(followUpStyle.Render(fmt.Sprintf("  Q%d: %s", i+1, q)) + "\n")
				}
			}
			content.WriteString("\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func formatAnswer(answer string, width int) string {
	prefix := AgentName + ": "
	wrapped := wordwrap.String(answer, width-len(prefix))
	return answerStyle.Render(prefix) + wrapped
}

func (m *ConsoleUI) appendChat(text string) {
	currentContent := m.chatViewport.View()
	m.chatViewport.SetContent(currentContent + text)
	m.chatViewport.GotoBottom()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showLanguageModal {
		return m.updateLanguageModal(msg)
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		if m.game != nil {
			m.writeChatContent()
			m.metaViewport.SetContent(writeMetadata(m.game))
		}
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.guessMode {
				// Abort guess entry, back to questioning.
				m.guessMode = false
				m.guessField = 0
				m.guess = GuessRequest{}
				m.textarea.Placeholder = PlaceHolderText
				m.textarea.Reset()
				return m, nil
			}
			m.showQuitModal = true
			return m, nil

		case tea.KeyCtrlY:
			if m.lastAnswer != "" {
				if err := clipboard.WriteAll(m.lastAnswer); err != nil {
					m.appendChat(errorStyle.Render("Copy failed: "+err.Error()) + "\n\n")
				} else {
					m.appendChat(promptStyle.Render("Last answer copied to clipboard.") + "\n\n")
				}
			}
			return m, nil

		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if m.guessMode {
				return m.handleGuessInput(input)
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0

			m.appendChat(userStyle.Render("You: ") + input + "\n\n")
			return m, tea.Batch(m.sendQuestion(input), progressTick())
		}

	case askResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.writeChatContent()
			m.appendChat(errorStyle.Render("Error: "+msg.err.Error()) + "\n\n")
			return m, nil
		}

		m.lastAnswer = msg.response.AnswerText
		if msg.response.UnlockedEvidence != nil {
			e := msg.response.UnlockedEvidence
			m.appendChat(evidenceStyle.Render(fmt.Sprintf("EVIDENCE UNLOCKED: %s", e.Name)) + "\n" +
				followUpStyle.Render("  "+e.Detail) + "\n\n")
		}
		if msg.response.Status == "GUESSING" {
			m.appendChat(loadingStyle.Render("No questions remain. Use /guess to accuse the killer.") + "\n\n")
		}
		return m, m.refreshGameState()

	case gameStateMsg:
		if msg.err == nil && msg.game != nil {
			m.game = msg.game
			m.writeChatContent()
			m.metaViewport.SetContent(writeMetadata(m.game))
		}

	case gameCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, m.loadGameState(msg.game.GameID)

	case guessResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.appendChat(errorStyle.Render("Error: "+msg.err.Error()) + "\n\n")
			return m, nil
		}
		m.appendChat(renderVerdict(msg.response, m.chatViewport.Width-6))
		return m, m.refreshGameState()

	case summaryMsg:
		m.loading = false
		if msg.err != nil {
			m.appendChat(errorStyle.Render("Error: "+msg.err.Error()) + "\n\n")
			return m, nil
		}
		m.appendChat(renderSummary(msg.summary))
		return m, nil

	case actionDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.appendChat(errorStyle.Render("Error: "+msg.err.Error()) + "\n\n")
			return m, nil
		}
		switch msg.action {
		case "ready":
			m.appendChat(loadingStyle.Render("Questioning closed. Use /guess to accuse the killer.") + "\n\n")
		case "end":
			m.appendChat(loadingStyle.Render("The case is closed.") + "\n\n")
		}
		return m, m.refreshGameState()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	m.textarea.Reset()

	switch cmd {
	case "/help":
		helpText := `
Commands:
• /guess - Submit your final deduction
• /ready - Skip remaining questions
• /summary - Recap the conversation so far
• /end - End the game
• Ctrl+Y - Copy last answer
• Ctrl+C - Quit

How to play:
• Ask the witnesses questions and press Enter
• Each answer unlocks one piece of evidence
• When you are sure, accuse the killer with /guess
`
		m.appendChat(titleStyle.Render("Help:") + helpText + "\n")

	case "/guess":
		m.guessMode = true
		m.guessField = 0
		m.guess = GuessRequest{}
		m.textarea.Placeholder = "Who is the killer?"
		m.appendChat(titleStyle.Render("FINAL DEDUCTION") + "\n" +
			promptStyle.Render("Answer each prompt. Esc aborts.") + "\n\n" +
			speakerStyle.Render("Killer?") + "\n")

	case "/ready":
		m.loading = true
		m.progressTick = 0
		return m, tea.Batch(m.sendReady(), progressTick())

	case "/summary":
		m.loading = true
		m.progressTick = 0
		return m, tea.Batch(m.sendSummarize(), progressTick())

	case "/end":
		m.loading = true
		m.progressTick = 0
		return m, tea.Batch(m.sendEnd(), progressTick())

	default:
		m.appendChat(errorStyle.Render("Unknown command: "+cmd) + "\n\n")
	}

	return m, nil
}

// handleGuessInput walks through the deduction fields one at a time.
func (m ConsoleUI) handleGuessInput(input string) (tea.Model, tea.Cmd) {
	switch guessFields[m.guessField] {
	case "killer":
		m.guess.Killer = input
	case "motive":
		m.guess.Motive = input
	case "method":
		m.guess.Method = input
	case "trick":
		m.guess.Trick = input
	case "reasoning":
		m.guess.Reasoning = input
	}

	m.appendChat(userStyle.Render("You: ") + input + "\n\n")
	m.textarea.Reset()
	m.guessField++

	if m.guessField < len(guessFields) {
		prompts := map[string]string{
			"motive":    "What was the motive?",
			"method":    "How was it done?",
			"trick":     "What was the trick?",
			"reasoning": "Walk through your reasoning.",
		}
		next := guessFields[m.guessField]
		m.textarea.Placeholder = prompts[next]
		m.appendChat(speakerStyle.Render(strings.ToUpper(next[:1])+next[1:]+"?") + "\n")
		return m, nil
	}

	m.guessMode = false
	m.guessField = 0
	m.textarea.Placeholder = PlaceHolderText
	m.loading = true
	m.progressTick = 0
	guess := m.guess
	m.guess = GuessRequest{}
	return m, tea.Batch(m.sendGuess(guess), progressTick())
}

func renderVerdict(r *GuessResponse, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("VERDICT — %d points, grade %s", r.Score, r.Grade)) + "\n\n")
	b.WriteString(wordwrap.String(r.Feedback, width) + "\n\n")

	if len(r.Contradictions) > 0 {
		b.WriteString(speakerStyle.Render("Contradictions:") + "\n")
		for _, c := range r.Contradictions {
			b.WriteString("• " + wordwrap.String(c, width-2) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(speakerStyle.Render("Weak points:") + "\n")
	for _, wk := range r.WeaknessesTop3 {
		b.WriteString("• " + wordwrap.String(wk, width-2) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(speakerStyle.Render("The truth:") + "\n")
	b.WriteString(wordwrap.String(r.SolutionSummary, width) + "\n\n")
	return b.String()
}

func renderSummary(s *SummaryResponse) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CASE RECAP") + "\n\n")
	b.WriteString(fmt.Sprintf("Suspected killer: %s\n", s.Killer))
	b.WriteString(fmt.Sprintf("Method: %s\n", s.Method))
	b.WriteString(fmt.Sprintf("Motive: %s\n", s.Motive))
	b.WriteString(fmt.Sprintf("Trick: %s\n", s.Trick))
	if len(s.Highlights) > 0 {
		b.WriteString("\nHighlights:\n")
		for _, h := range s.Highlights {
			b.WriteString("• " + h + "\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func (m ConsoleUI) sendQuestion(question string) tea.Cmd {
	return func() tea.Msg {
		resp, err := askQuestion(m.client, m.config.APIBaseURL, m.game.GameID, question)
		return askResponseMsg{resp, err}
	}
}

func (m ConsoleUI) sendGuess(guess GuessRequest) tea.Cmd {
	return func() tea.Msg {
		resp, err := submitGuess(m.client, m.config.APIBaseURL, m.game.GameID, guess)
		return guessResponseMsg{resp, err}
	}
}

func (m ConsoleUI) sendSummarize() tea.Cmd {
	return func() tea.Msg {
		resp, err := summarizeGame(m.client, m.config.APIBaseURL, m.game.GameID)
		return summaryMsg{resp, err}
	}
}

func (m ConsoleUI) sendReady() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{"ready", readyToGuess(m.client, m.config.APIBaseURL, m.game.GameID)}
	}
}

func (m ConsoleUI) sendEnd() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{"end", endGame(m.client, m.config.APIBaseURL, m.game.GameID)}
	}
}

func (m ConsoleUI) createNewGame(language string) tea.Cmd {
	return func() tea.Msg {
		game, err := createGame(m.client, m.config.APIBaseURL, language)
		return gameCreatedMsg{game, err}
	}
}

func (m ConsoleUI) loadGameState(gameID string) tea.Cmd {
	return func() tea.Msg {
		gs, err := getGame(m.client, m.config.APIBaseURL, gameID)
		return gameStateMsg{gs, err}
	}
}

func (m ConsoleUI) refreshGameState() tea.Cmd {
	return m.loadGameState(m.game.GameID)
}

func (m ConsoleUI) updateLanguageModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case gameCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.showLanguageModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.textarea.Focus()
		m.ready = true
		return m, tea.Batch(m.loadGameState(msg.game.GameID), textarea.Blink)

	case gameStateMsg:
		if msg.err == nil && msg.game != nil {
			m.game = msg.game
			m.writeChatContent()
			m.metaViewport.SetContent(writeMetadata(m.game))
		}

	case tea.KeyMsg:
		if m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selectedLanguage > 0 {
				m.selectedLanguage--
			}
		case tea.KeyDown:
			if m.selectedLanguage < len(languageChoices)-1 {
				m.selectedLanguage++
			}
		case tea.KeyEnter:
			if !m.loading {
				m.loading = true
				return m, m.createNewGame(languageCode(m.selectedLanguage))
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

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
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Close the Case?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to abandon the investigation?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(54).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderLanguageModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to create game: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	} else if m.loading {
		content.WriteString(modalTitleStyle.Render("Generating Case..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("The crime scene is being assembled..."))
	} else {
		content.WriteString(modalTitleStyle.Render("Select a Language"))
		content.WriteString("\n\n")

		for i, lang := range languageChoices {
			if i == m.selectedLanguage {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", lang)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", lang)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(48).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showLanguageModal {
		return m.renderLanguageModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 10))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
