// Package replay records the append-only sequence a completed game needs
// to reproduce itself byte-for-byte: the seed, map parameters, and every
// (turn, player, command) entry in submission order. Grounded in the
// teacher's repository.GameRepository/MongoRepository (batched
// InsertMany, gameId-keyed collections), generalized from "snapshot a
// settler simulation" to "record a deterministic replay of a bot-vs-bot
// match", with an in-memory log as the default store and Mongo
// optional for cross-process sharing.
package replay

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"ensi/pkg/command"
)

// Entry is one submitted command, tagged with the turn it was recorded
// on (the player is already recorded on command.Command.Submitter).
type Entry struct {
	Turn    uint32
	Command command.Command
}

// Header carries the parameters a replay needs to regenerate the
// opening Map before entries are replayed against it.
type Header struct {
	Seed          uint64
	Width, Height int
	NumPlayers    int
}

// Log is an in-memory, append-only record of one game: a Header plus
// every Entry recorded so far. Not safe for concurrent writers; a game
// owns exactly one Log, matching spec.md §5's "no process-wide mutable
// state" rule.
type Log struct {
	Header  Header
	Entries []Entry
}

// NewLog starts a Log from a game's opening parameters.
func NewLog(seed uint64, width, height, numPlayers int) *Log {
	return &Log{Header: Header{Seed: seed, Width: width, Height: height, NumPlayers: numPlayers}}
}

// Record appends cmd as having been submitted on turn.
func (l *Log) Record(turn uint32, cmd command.Command) {
	l.Entries = append(l.Entries, Entry{Turn: turn, Command: cmd})
}

// CommandsForTurn returns every command recorded for turn, in the
// original recording (submission) order.
func (l *Log) CommandsForTurn(turn uint32) []command.Command {
	var out []command.Command
	for _, e := range l.Entries {
		if e.Turn == turn {
			out = append(out, e.Command)
		}
	}
	return out
}

// frame is the gob-encodable wire shape; command.Command and
// ensimodel.Coord are already plain structs of exported fields, so gob
// round-trips them with no custom (de)serialization code, matching the
// teacher's practice of letting bson/gob handle the models package's
// plain structs directly rather than hand-rolling wire formats.
type frame struct {
	Header  Header
	Entries []Entry
}

// Encode serializes l with gob and frames it through snappy, returning a
// single compressed block suitable for SaveBlock / an out-of-band
// transport. Grounded in the teacher's MongoRepository's wholesale
// bson-encode-and-InsertMany pattern, adapted here to snappy since the
// corpus's other compression dependency (klauspost/compress) is reserved
// for the streaming variant in EncodeStream.
func Encode(l *Log) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(frame{Header: l.Header, Entries: l.Entries}); err != nil {
		return nil, err
	}
	return snappy.Encode(nil, buf.Bytes()), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*Log, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	var f frame
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&f); err != nil {
		return nil, err
	}
	return &Log{Header: f.Header, Entries: f.Entries}, nil
}

// EncodeStream writes l to w as a zstd-compressed gob stream, for
// replays saved directly to a file rather than held as a single
// in-memory block; zstd's streaming writer beats snappy's one-shot
// block API once a replay runs into the megabytes a long game produces.
func EncodeStream(w io.Writer, l *Log) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(zw).Encode(frame{Header: l.Header, Entries: l.Entries}); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// DecodeStream reverses EncodeStream.
func DecodeStream(r io.Reader) (*Log, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	var f frame
	if err := gob.NewDecoder(zr).Decode(&f); err != nil {
		return nil, err
	}
	return &Log{Header: f.Header, Entries: f.Entries}, nil
}
