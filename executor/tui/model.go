// Package tui is the live terminal view for self-play and watched games.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/tile2048/executor/selfplay"
	"github.com/brensch/tile2048/game"
)

const recentGames = 8

// StepMsg and GameMsg wrap the values read from the model's channels.
type (
	StepMsg selfplay.Step
	GameMsg selfplay.GameResult
	TickMsg time.Time
	doneMsg struct{}
)

// Model shows the board of one game plus run-wide counters. It follows the
// first worker it hears from unless Follow is set.
type Model struct {
	Title  string
	Follow int // worker to display; -1 follows whichever sends first

	steps <-chan selfplay.Step
	games <-chan selfplay.GameResult

	start  time.Time
	now    time.Time
	board  game.Board
	last   selfplay.Step
	moves  int64
	played int
	best   int
	recent []string
	closed bool
}

// New builds a model reading steps and, if games is non-nil, finished games.
// The model stops reading a channel once it is closed.
func New(title string, steps <-chan selfplay.Step, games <-chan selfplay.GameResult) Model {
	now := time.Now()
	return Model{Title: title, Follow: -1, steps: steps, games: games, start: now, now: now}
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func waitForStep(ch <-chan selfplay.Step) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return StepMsg(s)
	}
}

func waitForGame(ch <-chan selfplay.GameResult) tea.Cmd {
	return func() tea.Msg {
		g, ok := <-ch
		if !ok {
			return nil
		}
		return GameMsg(g)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.steps != nil {
		cmds = append(cmds, waitForStep(m.steps))
	}
	if m.games != nil {
		cmds = append(cmds, waitForGame(m.games))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case TickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case StepMsg:
		m.moves++
		if m.Follow < 0 {
			m.Follow = msg.WorkerID
		}
		if msg.WorkerID == m.Follow {
			m.last = selfplay.Step(msg)
			m.board = msg.Board
		}
		if t := msg.Board.MaxTile().Value(); t > m.best {
			m.best = t
		}
		if m.steps == nil {
			return m, nil
		}
		return m, waitForStep(m.steps)
	case GameMsg:
		m.played++
		line := fmt.Sprintf("worker %d: %d moves, score %d, max %d", msg.WorkerID, msg.Moves, msg.Score, msg.MaxTile)
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > recentGames {
			m.recent = m.recent[:recentGames]
		}
		if m.games == nil {
			return m, nil
		}
		return m, waitForGame(m.games)
	case doneMsg:
		m.closed = true
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f9f6f2")).Background(lipgloss.Color("#8f7a66")).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#776e65"))
	gridStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#bbada0"))
	cellStyle  = lipgloss.NewStyle().Width(6).Height(1).Align(lipgloss.Center).Bold(true)

	// Background per tile rank, 2 through 2048; larger tiles reuse the last.
	tileColors = []string{"#eee4da", "#ede0c8", "#f2b179", "#f59563", "#f67c5f", "#f65e3b", "#edcf72", "#edcc61", "#edc850", "#edc53f", "#edc22e"}
)

func tileStyle(t game.Tile) lipgloss.Style {
	if t.Empty() {
		return cellStyle.Background(lipgloss.Color("#cdc1b4"))
	}
	i := min(t.Rank()-1, len(tileColors)-1)
	fg := "#f9f6f2"
	if t.Rank() <= 2 {
		fg = "#776e65"
	}
	return cellStyle.Background(lipgloss.Color(tileColors[i])).Foreground(lipgloss.Color(fg))
}

// RenderBoard draws b as a grid of colored tiles.
func RenderBoard(b game.Board) string {
	rows := make([]string, 0, game.Size)
	for y := 0; y < game.Size; y++ {
		cells := make([]string, 0, game.Size)
		for x := 0; x < game.Size; x++ {
			t := b.Get(x, y)
			text := ""
			if !t.Empty() {
				text = fmt.Sprint(t.Value())
			}
			cells = append(cells, tileStyle(t).Render(text))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return gridStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) View() string {
	elapsed := m.now.Sub(m.start)
	movesPerSec := 0.0
	if elapsed >= time.Second {
		movesPerSec = float64(m.moves) / elapsed.Seconds()
	}

	var stats strings.Builder
	fmt.Fprintf(&stats, "%s %s\n", labelStyle.Render("Game:     "), shortID(m.last.GameID))
	fmt.Fprintf(&stats, "%s %d\n", labelStyle.Render("Turn:     "), m.last.Turn)
	fmt.Fprintf(&stats, "%s %s\n", labelStyle.Render("Last move:"), m.last.Move)
	fmt.Fprintf(&stats, "%s %d\n", labelStyle.Render("Score:    "), m.last.GameScore)
	fmt.Fprintf(&stats, "%s %d\n", labelStyle.Render("Search:   "), m.last.SearchScore)
	fmt.Fprintf(&stats, "\n%s %d\n", labelStyle.Render("Games:    "), m.played)
	fmt.Fprintf(&stats, "%s %d\n", labelStyle.Render("Moves:    "), m.moves)
	fmt.Fprintf(&stats, "%s %.1f\n", labelStyle.Render("Moves/sec:"), movesPerSec)
	fmt.Fprintf(&stats, "%s %d\n", labelStyle.Render("Best tile:"), m.best)
	fmt.Fprintf(&stats, "%s %s\n", labelStyle.Render("Elapsed:  "), elapsed.Round(time.Second))

	body := lipgloss.JoinHorizontal(lipgloss.Top, RenderBoard(m.board), "  ", stats.String())

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.Title))
	sb.WriteString("\n\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	if len(m.recent) > 0 {
		sb.WriteString("\nRecent games:\n")
		for _, line := range m.recent {
			sb.WriteString("  " + line + "\n")
		}
	}
	if m.closed {
		sb.WriteString("\nStream ended.")
	}
	sb.WriteString("\nPress q to quit.\n")
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}
