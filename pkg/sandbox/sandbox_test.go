package sandbox

import (
	"context"
	"testing"

	"ensi/pkg/command"
	"ensi/pkg/ensimodel"
	"ensi/pkg/hostabi"
	"ensi/pkg/visibility"
)

// stubGuest is a minimal Guest used to test Pool.Preload and Sandbox
// plumbing without depending on either interpreter package.
type stubGuest struct {
	loaded  []byte
	loadErr error
	outcome Outcome
	queued  []command.Command
}

func (s *stubGuest) Load(image []byte) error {
	s.loaded = image
	return s.loadErr
}
func (s *stubGuest) PushBuffer(buf []byte) {}
func (s *stubGuest) Resume(ctx context.Context, host *hostabi.Host, fuel uint64) Outcome {
	return s.outcome
}
func (s *stubGuest) DrainCommands() []command.Command { return s.queued }

func TestPreload_LoadsEveryGuest(t *testing.T) {
	g1, g2 := &stubGuest{}, &stubGuest{}
	pool, err := Preload(context.Background(), []Guest{g1, g2}, [][]byte{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("Preload error: %v", err)
	}
	if len(pool.Sandboxes) != 2 {
		t.Fatalf("Sandboxes = %d, want 2", len(pool.Sandboxes))
	}
	if pool.Sandboxes[0].Player != 1 || pool.Sandboxes[1].Player != 2 {
		t.Errorf("unexpected player ids: %v, %v", pool.Sandboxes[0].Player, pool.Sandboxes[1].Player)
	}
	if string(g1.loaded) != "\x01\x02" || string(g2.loaded) != "\x03\x04" {
		t.Error("each guest should receive its own image")
	}
}

func TestPreload_PropagatesLoadError(t *testing.T) {
	bad := &stubGuest{loadErr: ErrIllegalOpcode}
	_, err := Preload(context.Background(), []Guest{bad}, [][]byte{{0}})
	if err == nil {
		t.Fatal("expected Preload to propagate a Load error")
	}
}

func TestPreload_MismatchedLengths(t *testing.T) {
	_, err := Preload(context.Background(), []Guest{&stubGuest{}}, [][]byte{{0}, {1}})
	if err == nil {
		t.Fatal("expected an error for mismatched guests/images length")
	}
}

func TestSandbox_Resume_DrainsCommands(t *testing.T) {
	want := []command.Command{{Submitter: 1, Kind: command.KindYield}}
	g := &stubGuest{outcome: Outcome{Status: StatusYielded}, queued: want}
	s := NewSandbox(1, g)

	m := ensimodel.NewMap(1, 1)
	host := &hostabi.Host{Player: 1, Visible: visibility.Project(m, 1), Queue: command.NewQueue()}

	outcome, cmds := s.Resume(context.Background(), host, 1000)
	if outcome.Status != StatusYielded {
		t.Errorf("Status = %v, want StatusYielded", outcome.Status)
	}
	if len(cmds) != 1 || cmds[0].Kind != command.KindYield {
		t.Errorf("DrainCommands = %+v, want %+v", cmds, want)
	}
}
