package replay

import (
	"bytes"
	"testing"

	"ensi/pkg/command"
	"ensi/pkg/ensimodel"
)

func sampleLog() *Log {
	l := NewLog(42, 64, 64, 2)
	l.Record(0, command.Command{Submitter: 1, Kind: command.KindMove, From: ensimodel.Coord{X: 0, Y: 0}, To: ensimodel.Coord{X: 1, Y: 0}, Count: 5})
	l.Record(0, command.Command{Submitter: 2, Kind: command.KindYield})
	l.Record(1, command.Command{Submitter: 1, Kind: command.KindConvert, Tile: ensimodel.Coord{X: 2, Y: 2}, Count: 3})
	return l
}

func TestLog_CommandsForTurn(t *testing.T) {
	l := sampleLog()

	turn0 := l.CommandsForTurn(0)
	if len(turn0) != 2 {
		t.Fatalf("len(turn0) = %d, want 2", len(turn0))
	}
	if turn0[0].Submitter != 1 || turn0[1].Submitter != 2 {
		t.Errorf("turn0 submitters = %d,%d, want 1,2 in recorded order", turn0[0].Submitter, turn0[1].Submitter)
	}

	turn1 := l.CommandsForTurn(1)
	if len(turn1) != 1 || turn1[0].Kind != command.KindConvert {
		t.Errorf("turn1 = %+v, want one KindConvert entry", turn1)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	l := sampleLog()

	data, err := Encode(l)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Header != l.Header {
		t.Errorf("Header = %+v, want %+v", got.Header, l.Header)
	}
	if len(got.Entries) != len(l.Entries) {
		t.Fatalf("len(Entries) = %d, want %d", len(got.Entries), len(l.Entries))
	}
	for i := range l.Entries {
		if got.Entries[i] != l.Entries[i] {
			t.Errorf("Entries[%d] = %+v, want %+v", i, got.Entries[i], l.Entries[i])
		}
	}
}

func TestEncodeDecodeStream_RoundTrip(t *testing.T) {
	l := sampleLog()

	var buf bytes.Buffer
	if err := EncodeStream(&buf, l); err != nil {
		t.Fatalf("EncodeStream: %v", err)
	}

	got, err := DecodeStream(&buf)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if got.Header != l.Header {
		t.Errorf("Header = %+v, want %+v", got.Header, l.Header)
	}
	if len(got.Entries) != len(l.Entries) {
		t.Fatalf("len(Entries) = %d, want %d", len(got.Entries), len(l.Entries))
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not a valid snappy block")); err == nil {
		t.Error("Decode garbage: want error, got nil")
	}
}
