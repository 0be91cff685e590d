// Package page reads the board and score from the HTML of the reference 2048
// web game.
//
// Tiles are divs under .tile-container carrying a "tile-<value>" class and a
// "tile-position-<x>-<y>" class with 1-based coordinates. During a merge
// animation the two source tiles and the merged tile share a position; the
// largest value wins.
package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brensch/tile2048/game"
)

var ErrNoTiles = errors.New("no tiles found")

var (
	valueRe    = regexp.MustCompile(`^tile-(\d+)$`)
	positionRe = regexp.MustCompile(`^tile-position-(\d+)-(\d+)$`)
)

const userAgent = "tile2048/1.0 (board-reader)"

// Page is what can be read off one snapshot of the game.
type Page struct {
	Board game.Board
	Score int
	Best  int
}

// Parse reads a page snapshot from HTML.
func Parse(r io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	var (
		p     Page
		found int
		bad   error
	)
	doc.Find(".tile-container .tile").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		c, t, err := tileOf(s)
		if err != nil {
			bad = err
			return false
		}
		found++
		if t > p.Board.At(c) {
			p.Board.Set(c, t)
		}
		return true
	})
	if bad != nil {
		return Page{}, bad
	}
	if found == 0 {
		return Page{}, ErrNoTiles
	}

	p.Score = counter(doc.Find(".score-container").First())
	p.Best = counter(doc.Find(".best-container").First())
	return p, nil
}

// ParseBoard reads only the board.
func ParseBoard(r io.Reader) (game.Board, error) {
	p, err := Parse(r)
	if err != nil {
		return game.Board{}, err
	}
	return p.Board, nil
}

func tileOf(s *goquery.Selection) (game.Coord, game.Tile, error) {
	class, _ := s.Attr("class")
	var (
		value    = -1
		x, y     int
		hasCoord bool
	)
	for _, cls := range strings.Fields(class) {
		if m := valueRe.FindStringSubmatch(cls); m != nil {
			value, _ = strconv.Atoi(m[1])
			continue
		}
		if m := positionRe.FindStringSubmatch(cls); m != nil {
			x, _ = strconv.Atoi(m[1])
			y, _ = strconv.Atoi(m[2])
			hasCoord = true
		}
	}
	if value < 0 || !hasCoord {
		return 0, 0, fmt.Errorf("tile %q: missing value or position class", class)
	}
	if x < 1 || x > game.Size || y < 1 || y > game.Size {
		return 0, 0, fmt.Errorf("tile %q: position (%d,%d) off the board", class, x, y)
	}
	t := game.TileOf(value)
	if t.Empty() || !t.Valid() {
		return 0, 0, fmt.Errorf("tile %q: %w %d", class, game.ErrInvalidTile, value)
	}
	return game.CoordOf(x-1, y-1), t, nil
}

// counter reads a score box, ignoring the "+N" addition child shown while the
// score animates.
func counter(s *goquery.Selection) int {
	if s.Length() == 0 {
		return 0
	}
	text := strings.TrimSpace(s.Clone().Children().Remove().End().Text())
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}

// Fetch downloads and parses the page at url.
func Fetch(ctx context.Context, client *http.Client, url string) (Page, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("get %s: unexpected status code: %d", url, resp.StatusCode)
	}
	return Parse(resp.Body)
}
