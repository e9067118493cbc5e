// Package replay drives a debug engine from a recorded event log.
//
// A log is JSON Lines: one bridge inbound message per line, exactly as the
// page would send it. Blank lines and lines starting with '#' are skipped.
// Compiled messages may leave out the map and have it read from a maps
// directory instead.
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/dshills/turtletrace/internal/bridge"
	"github.com/dshills/turtletrace/internal/debug"
	"github.com/dshills/turtletrace/internal/logging"
)

// maxLine bounds one log line; compiled messages carry whole source maps.
const maxLine = 16 << 20

// Options configures a Player.
type Options struct {
	// Engine configures the replayed engine. Editor is replaced.
	Engine debug.Options

	// Maps holds source maps for compiled messages without one, named
	// after the compiled file's base name plus ".map". May be nil.
	Maps fs.FS

	// Logger receives diagnostics.
	Logger *logging.Logger
}

// Stats summarizes a replay.
type Stats struct {
	// Messages is the number of messages applied.
	Messages int

	// Rejected is the number of lines that could not be applied.
	Rejected int
}

// Player replays an event log into one session.
type Player struct {
	session *bridge.Session
	maps    fs.FS
	logger  *logging.Logger
}

// NewPlayer creates a player whose editor commands go to send.
func NewPlayer(opts Options, send bridge.Sender) (*Player, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Null()
	}
	engineOpts := opts.Engine
	engineOpts.Logger = logger
	session, err := bridge.NewSession(engineOpts, send)
	if err != nil {
		return nil, fmt.Errorf("create replay session: %w", err)
	}
	return &Player{
		session: session,
		maps:    opts.Maps,
		logger:  logger.WithComponent("replay"),
	}, nil
}

// Session returns the session being replayed into.
func (p *Player) Session() *bridge.Session {
	return p.session
}

// Play applies every message read from r. Bad lines are logged and
// counted; only read errors and cancellation stop the replay.
func (p *Player) Play(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := p.apply([]byte(line)); err != nil {
			stats.Rejected++
			p.logger.Warn("line %d: %v", lineNo, err)
			continue
		}
		stats.Messages++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read event log: %w", err)
	}
	return stats, nil
}

// PlayFile replays the log at name.
func (p *Player) PlayFile(ctx context.Context, name string) (Stats, error) {
	f, err := os.Open(name)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	return p.Play(ctx, f)
}

func (p *Player) apply(data []byte) error {
	in, err := bridge.Decode(data)
	if err != nil {
		return err
	}
	if in.Type == bridge.TypeCompiled && len(in.Map) == 0 && in.File != "" {
		raw, err := p.loadMap(in.File)
		if err != nil {
			return err
		}
		in.Map = raw
	}
	return p.session.Handle(in)
}

// loadMap reads the source map for a compiled file from the maps FS.
func (p *Player) loadMap(file string) ([]byte, error) {
	if p.maps == nil {
		return nil, fmt.Errorf("no source map for %s", file)
	}
	name := path.Base(file) + ".map"
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i] + ".map"
	}
	raw, err := fs.ReadFile(p.maps, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no source map for %s in maps dir", file)
	}
	return raw, err
}
