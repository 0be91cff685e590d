package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/tile2048/executor/selfplay"
	"github.com/brensch/tile2048/game"
)

func TestModel_FollowsFirstWorker(t *testing.T) {
	steps := make(chan selfplay.Step, 4)
	m := New("self-play", steps, nil)

	b0 := game.MustFromRows([4][4]int{{2, 4, 0, 0}})
	b1 := game.MustFromRows([4][4]int{{2048, 0, 0, 0}})

	next, cmd := m.Update(StepMsg{WorkerID: 1, GameID: "aaaaaaaa-bbbb", Turn: 3, Board: b0, Move: game.Left, GameScore: 8})
	if cmd == nil {
		t.Fatalf("expected a command waiting for the next step")
	}
	next, _ = next.Update(StepMsg{WorkerID: 2, Turn: 9, Board: b1})
	got := next.(Model)

	if got.Follow != 1 {
		t.Fatalf("follow=%d want=1", got.Follow)
	}
	if got.board != b0 || got.last.Turn != 3 {
		t.Fatalf("displayed turn=%d, board switched to another worker", got.last.Turn)
	}
	if got.moves != 2 || got.best != 2048 {
		t.Fatalf("moves=%d best=%d want=2/2048", got.moves, got.best)
	}

	view := got.View()
	for _, want := range []string{"self-play", "aaaaaaaa", "left", "Press q to quit"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_GamesAndQuit(t *testing.T) {
	m := New("x", nil, nil)
	for i := 0; i < recentGames+3; i++ {
		next, _ := m.Update(GameMsg{WorkerID: i, Moves: 100 + i})
		m = next.(Model)
	}
	if m.played != recentGames+3 || len(m.recent) != recentGames {
		t.Fatalf("played=%d recent=%d", m.played, len(m.recent))
	}
	if !strings.HasPrefix(m.recent[0], "worker 10:") {
		t.Fatalf("newest game not first: %q", m.recent[0])
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("q produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
}

func TestModel_StreamClosed(t *testing.T) {
	steps := make(chan selfplay.Step)
	close(steps)
	m := New("watch", steps, nil)
	msg := waitForStep(steps)()
	next, _ := m.Update(msg)
	if !strings.Contains(next.View(), "Stream ended.") {
		t.Fatalf("closed stream not shown")
	}
}

func TestModel_MovesPerSec(t *testing.T) {
	m := New("x", nil, nil)
	for i := 0; i < 10; i++ {
		next, _ := m.Update(StepMsg{Board: game.NewBoard()})
		m = next.(Model)
	}
	next, _ := m.Update(TickMsg(m.start.Add(2 * time.Second)))
	if !strings.Contains(next.View(), "5.0") {
		t.Fatalf("moves/sec not rendered:\n%s", next.View())
	}
}

func TestRenderBoard(t *testing.T) {
	b := game.MustFromRows([4][4]int{{2, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 128, 0}, {0, 0, 0, 4096}})
	out := RenderBoard(b)
	for _, want := range []string{"2", "128", "4096"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %s:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines != game.Size+2 {
		t.Fatalf("lines=%d want=%d", lines, game.Size+2)
	}
}
