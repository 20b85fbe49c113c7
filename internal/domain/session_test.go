package domain

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestAllGateNeedsEveryConnectedParticipant(t *testing.T) {
	g := NewGate(GateAll)
	connected := []string{"a", "b", "c"}

	g.Set("a", true, connected)
	g.Set("b", true, connected)
	if g.Value() {
		t.Fatalf("gate true with c not ready")
	}
	if !g.Set("c", true, connected) || !g.Value() {
		t.Fatalf("gate should flip once c is ready")
	}
	if !g.Set("b", false, connected) || g.Value() {
		t.Fatalf("gate should drop when b withdraws")
	}
	if g.Set("c", true, connected) || g.Value() {
		t.Fatalf("gate reopened without b")
	}
	if !g.Set("b", true, connected) || !g.Value() {
		t.Fatalf("gate should flip back once b is ready again")
	}
	g.Recompute(nil)
	if g.Value() {
		t.Fatalf("all gate with nobody connected must be false")
	}
}

func TestAnyGateMatchesOrOverConnected(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ids := []string{"a", "b", "c", "d"}
	g := NewGate(GateAny)
	truth := map[string]bool{}
	online := map[string]bool{"a": true, "b": true, "c": true, "d": true}

	connected := func() []string {
		var out []string
		for _, id := range ids {
			if online[id] {
				out = append(out, id)
			}
		}
		return out
	}

	for i := 0; i < 400; i++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(3) {
		case 0:
			v := rng.Intn(2) == 0
			truth[id] = v
			g.Set(id, v, connected())
		case 1:
			online[id] = !online[id]
			g.Recompute(connected())
		case 2:
			g.Recompute(connected())
		}

		want := false
		for _, c := range connected() {
			want = want || truth[c]
		}
		if g.Value() != want {
			t.Fatalf("step %d: gate=%t want %t", i, g.Value(), want)
		}
	}
}

func TestSessionReadyFlow(t *testing.T) {
	s := NewSession(3*time.Second, 120*time.Second, true)
	connected := []string{"a", "b", "c"}

	for _, id := range connected[:2] {
		s.LobbyReady.Set(id, true, connected)
		if s.AdvanceReady() {
			t.Fatalf("advanced before everyone was ready")
		}
	}
	s.LobbyReady.Set("c", true, connected)
	if !s.AdvanceReady() || s.Phase != PhaseWaitingToStart {
		t.Fatalf("phase = %s, want waiting_to_start", s.Phase)
	}

	if s.ReadyGate() != s.MatchReady {
		t.Fatalf("waiting phase must use the match gate")
	}
	for _, id := range connected {
		s.MatchReady.Set(id, true, connected)
	}
	if !s.AdvanceReady() || s.Phase != PhaseCountdown {
		t.Fatalf("phase = %s, want countdown", s.Phase)
	}
	if s.CountdownRemaining != 3*time.Second {
		t.Fatalf("countdown = %s", s.CountdownRemaining)
	}
}

func TestCountdownEndsBelowZero(t *testing.T) {
	s := NewSession(time.Second, 2*time.Second, false)
	if err := s.SetPhase(PhaseCountdown); err != nil {
		t.Fatalf("set phase: %v", err)
	}

	if s.Advance(time.Second) {
		t.Fatalf("countdown at exactly zero must not end")
	}
	if s.CountdownRemaining != 0 || s.Phase != PhaseCountdown {
		t.Fatalf("remaining=%s phase=%s", s.CountdownRemaining, s.Phase)
	}
	if !s.Advance(time.Millisecond) || s.Phase != PhaseActive {
		t.Fatalf("phase = %s, want active", s.Phase)
	}
	if s.ActiveRemaining != 2*time.Second || s.ActiveProgress() != 0 {
		t.Fatalf("active remaining=%s progress=%f", s.ActiveRemaining, s.ActiveProgress())
	}

	s.Advance(time.Second)
	if s.ActiveProgress() != 0.5 {
		t.Fatalf("progress = %f, want 0.5", s.ActiveProgress())
	}
	s.Advance(time.Second)
	if s.Phase != PhaseActive {
		t.Fatalf("active at exactly zero must not end")
	}
	s.Advance(time.Millisecond)
	if s.Phase != PhaseEnded {
		t.Fatalf("phase = %s, want ended", s.Phase)
	}
	if err := s.SetPhase(PhaseActive); !errors.Is(err, ErrPhaseRegression) {
		t.Fatalf("ended must be terminal, got %v", err)
	}
}

func TestTimersFrozenWhilePaused(t *testing.T) {
	s := NewSession(time.Second, time.Minute, false)
	s.SetPhase(PhaseCountdown)
	s.SetPhase(PhaseActive)
	s.Pause.Set("a", true, []string{"a"})

	s.Advance(10 * time.Second)
	if s.ActiveRemaining != time.Minute {
		t.Fatalf("timer moved while paused: %s", s.ActiveRemaining)
	}

	s.Pause.Set("a", false, []string{"a"})
	s.Advance(10 * time.Second)
	if s.ActiveRemaining != 50*time.Second {
		t.Fatalf("remaining = %s, want 50s", s.ActiveRemaining)
	}
}

func TestDisconnectRecheckIsDeferred(t *testing.T) {
	s := NewSession(time.Second, time.Minute, false)
	s.Pause.Set("a", true, []string{"a", "b"})
	s.MarkDisconnect()

	if !s.Paused() {
		t.Fatalf("pause must hold until the recheck runs")
	}
	if !s.TakeRecheck() {
		t.Fatalf("recheck flag not set")
	}
	s.Pause.Recompute([]string{"b"})
	if s.Paused() {
		t.Fatalf("pause should clear once the pausing participant is gone")
	}
	if s.TakeRecheck() {
		t.Fatalf("recheck flag must clear after being taken")
	}
	if !s.Pause.Entry("a") {
		t.Fatalf("disconnect must keep the entry")
	}
}

func TestRosterColorsAndCapacity(t *testing.T) {
	r := NewRoster(2, 4)
	a, _, err := r.Join("a", "Ann")
	if err != nil || a.ColorID != 0 {
		t.Fatalf("join a = %+v, %v", a, err)
	}
	b, _, _ := r.Join("b", "Bo")
	if b.ColorID != 1 {
		t.Fatalf("b color = %d, want 1", b.ColorID)
	}
	if _, _, err := r.Join("c", "Cy"); !errors.Is(err, ErrRosterFull) {
		t.Fatalf("third join err = %v, want ErrRosterFull", err)
	}

	if err := r.SelectColor("a", 1); !errors.Is(err, ErrColorTaken) {
		t.Fatalf("taken color err = %v", err)
	}
	if err := r.SelectColor("a", 9); !errors.Is(err, ErrUnknownColor) {
		t.Fatalf("unknown color err = %v", err)
	}
	if err := r.SelectColor("a", 3); err != nil {
		t.Fatalf("select color: %v", err)
	}

	r.Leave("a")
	if got := r.Connected(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("connected = %v", got)
	}
	if _, rejoined, err := r.Join("a", ""); err != nil || !rejoined {
		t.Fatalf("rejoin = %t, %v", rejoined, err)
	}
	if p, _ := r.Get("a"); p.Name != "Ann" || p.ColorID != 3 {
		t.Fatalf("rejoined participant = %+v", p)
	}
}
