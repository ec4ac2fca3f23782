package transport

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

var validRemote = []Candidate{
	{Descriptor: "candidate:1 1 udp 2130706431 192.168.1.9 40000 typ host", MediaID: strPtr("0")},
	{Descriptor: "candidate:2 1 udp 1694498815 203.0.113.9 41000 typ srflx raddr 192.168.1.9 rport 40000"},
}

// TestPrepareOfferCallOrder verifies exactly one create-offer followed by
// exactly one set-local-description before candidates are collected.
func TestPrepareOfferCallOrder(t *testing.T) {
	c, engine, _ := newFakeChannel(t)
	engine.gather = []*webrtc.ICECandidate{hostCandidate(50000), hostCandidate(50001)}

	desc, cands, err := c.PrepareOffer(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("PrepareOffer failed: %v", err)
	}

	want := []string{"create offer", "set local offer v=0 fake-offer"}
	if got := engine.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("engine calls = %q, want %q", got, want)
	}

	if desc.Type != Offer || desc.SDP != "v=0 fake-offer" {
		t.Errorf("description = %+v", desc)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	for i, cand := range engine.gather {
		if !cands[i].Equal(EncodeCandidate(cand)) {
			t.Errorf("candidate %d out of order", i)
		}
	}
	if s := c.State(); s != StateNegotiating {
		t.Errorf("state = %s, want negotiating", s)
	}
}

// TestPrepareOfferReplaysExistingDescription verifies that a supplied offer
// is installed as-is without generating a new one.
func TestPrepareOfferReplaysExistingDescription(t *testing.T) {
	c, engine, _ := newFakeChannel(t)

	desc, _, err := c.PrepareOffer(context.Background(), "v=0 earlier-offer", nil)
	if err != nil {
		t.Fatalf("PrepareOffer failed: %v", err)
	}

	want := []string{"set local offer v=0 earlier-offer"}
	if got := engine.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("engine calls = %q, want %q", got, want)
	}
	if desc.SDP != "v=0 earlier-offer" {
		t.Errorf("SDP = %q", desc.SDP)
	}
}

// TestPrepareAppliesRemoteCandidatesBeforeDrain verifies that supplied
// remote candidates reach the engine after the local description.
func TestPrepareAppliesRemoteCandidatesBeforeDrain(t *testing.T) {
	c, engine, _ := newFakeChannel(t)

	if _, _, err := c.Prepare(context.Background(), Answer, "v=0 answer", validRemote); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	want := []string{"set local answer v=0 answer", "add ice candidate", "add ice candidate"}
	if got := engine.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("engine calls = %q, want %q", got, want)
	}
}

// TestPrepareAnswerDoesNotCollect verifies the answer path never touches
// candidate collection or the local description.
func TestPrepareAnswerDoesNotCollect(t *testing.T) {
	c, engine, _ := newFakeChannel(t)

	answer, err := c.PrepareAnswer(context.Background(), "v=0 remote-offer")
	if err != nil {
		t.Fatalf("PrepareAnswer failed: %v", err)
	}
	if answer != "v=0 fake-answer" {
		t.Errorf("answer = %q", answer)
	}

	want := []string{"set remote offer v=0 remote-offer", "create answer"}
	if got := engine.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("engine calls = %q, want %q", got, want)
	}
	if r := engine.Registrations(); r != 0 {
		t.Errorf("candidate handler registered %d times, want 0", r)
	}
}

// TestApplyRemoteCandidatesAllOrNothing verifies that one malformed entry
// keeps the whole batch away from the engine.
func TestApplyRemoteCandidatesAllOrNothing(t *testing.T) {
	c, engine, _ := newFakeChannel(t)

	batch := []Candidate{validRemote[0], {Descriptor: "candidate:bogus"}, validRemote[1]}
	err := c.ApplyRemoteCandidates(context.Background(), batch)
	if !errors.Is(err, ErrMalformedSignalingData) {
		t.Fatalf("error = %v, want ErrMalformedSignalingData", err)
	}
	if len(engine.added) != 0 {
		t.Errorf("engine accepted %d candidates from a rejected batch", len(engine.added))
	}

	if err := c.ApplyRemoteCandidates(context.Background(), validRemote); err != nil {
		t.Fatalf("valid batch failed: %v", err)
	}
	if len(engine.added) != len(validRemote) {
		t.Errorf("engine accepted %d candidates, want %d", len(engine.added), len(validRemote))
	}
}

// TestApplyRemoteCandidatesEndMarker verifies a batch terminated by the empty
// end-of-candidates entry reaches the engine in full.
func TestApplyRemoteCandidatesEndMarker(t *testing.T) {
	c, engine, _ := newFakeChannel(t)

	batch := append(append([]Candidate(nil), validRemote...), Candidate{MediaID: strPtr("0"), MediaLineIndex: u16Ptr(0)})
	if err := c.ApplyRemoteCandidates(context.Background(), batch); err != nil {
		t.Fatalf("ApplyRemoteCandidates failed: %v", err)
	}
	if len(engine.added) != len(batch) {
		t.Fatalf("engine accepted %d candidates, want %d", len(engine.added), len(batch))
	}
	if last := engine.added[len(engine.added)-1]; last.Candidate != "" {
		t.Errorf("last candidate = %q, want end-of-candidates marker", last.Candidate)
	}
}

func TestApplyRemoteCandidatesEngineRejection(t *testing.T) {
	c, engine, _ := newFakeChannel(t)
	engine.addErrAt = 1

	err := c.ApplyRemoteCandidates(context.Background(), validRemote)

	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("error = %v, want *EngineError", err)
	}
	if engErr.Op != "add ice candidate 1" {
		t.Errorf("Op = %q", engErr.Op)
	}
}

// TestEngineFailuresPropagate verifies every engine failure surfaces as an
// EngineError naming the operation, and that no collector is left behind.
func TestEngineFailuresPropagate(t *testing.T) {
	boom := errors.New("boom")

	testCases := []struct {
		name   string
		setup  func(*fakeEngine)
		run    func(*Channel) error
		wantOp string
	}{
		{
			name:  "create offer",
			setup: func(e *fakeEngine) { e.createOfferErr = boom },
			run: func(c *Channel) error {
				_, _, err := c.PrepareOffer(context.Background(), "", nil)
				return err
			},
			wantOp: "create offer",
		},
		{
			name:  "set local description",
			setup: func(e *fakeEngine) { e.setLocalErr = boom },
			run: func(c *Channel) error {
				_, _, err := c.PrepareOffer(context.Background(), "", nil)
				return err
			},
			wantOp: "set local description",
		},
		{
			name:  "set remote description",
			setup: func(e *fakeEngine) { e.setRemoteErr = boom },
			run: func(c *Channel) error {
				_, err := c.PrepareAnswer(context.Background(), "v=0")
				return err
			},
			wantOp: "set remote description",
		},
		{
			name:  "create answer",
			setup: func(e *fakeEngine) { e.createAnswerErr = boom },
			run: func(c *Channel) error {
				_, err := c.PrepareAnswer(context.Background(), "v=0")
				return err
			},
			wantOp: "create answer",
		},
		{
			name:  "set remote answer",
			setup: func(e *fakeEngine) { e.setRemoteErr = boom },
			run: func(c *Channel) error {
				return c.SetRemote(context.Background(), Answer, "v=0")
			},
			wantOp: "set remote description",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, engine, _ := newFakeChannel(t)
			tc.setup(engine)

			err := tc.run(c)

			var engErr *EngineError
			if !errors.As(err, &engErr) {
				t.Fatalf("error = %v, want *EngineError", err)
			}
			if engErr.Op != tc.wantOp {
				t.Errorf("Op = %q, want %q", engErr.Op, tc.wantOp)
			}
			if !errors.Is(err, boom) {
				t.Error("engine error not unwrapped")
			}

			c.mu.Lock()
			active := c.stream
			c.mu.Unlock()
			if active != nil {
				t.Error("collector left registered after failure")
			}

			// The slot is free again and Close still works.
			if c.negotiating.Load() {
				t.Error("negotiation slot not released")
			}
			if err := c.Close(); err != nil {
				t.Errorf("Close after failure: %v", err)
			}
		})
	}
}

// TestNegotiationInProgress verifies that a second round is rejected while
// one is still collecting candidates.
func TestNegotiationInProgress(t *testing.T) {
	c, engine, _ := newFakeChannel(t)
	engine.holdGather = make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		_, _, err := c.PrepareOffer(context.Background(), "", nil)
		errCh <- err
	}()

	// Wait until the first round is inside drain.
	deadline := time.After(2 * time.Second)
	for !c.negotiating.Load() {
		select {
		case <-deadline:
			t.Fatal("first negotiation never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, _, err := c.PrepareOffer(context.Background(), "", nil); !errors.Is(err, ErrNegotiationInProgress) {
		t.Errorf("second PrepareOffer error = %v, want ErrNegotiationInProgress", err)
	}
	if err := c.ApplyRemoteCandidates(context.Background(), nil); !errors.Is(err, ErrNegotiationInProgress) {
		t.Errorf("ApplyRemoteCandidates error = %v, want ErrNegotiationInProgress", err)
	}

	close(engine.holdGather)

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("first PrepareOffer failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first PrepareOffer did not finish")
	}
}

func TestPrepareCancelledByContext(t *testing.T) {
	c, engine, _ := newFakeChannel(t)
	engine.holdGather = make(chan struct{})
	defer close(engine.holdGather)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := c.PrepareOffer(ctx, "", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}

	// A new round may start immediately.
	engine2Calls := len(engine.Calls())
	if _, err := c.PrepareAnswer(context.Background(), "v=0"); err != nil {
		t.Fatalf("PrepareAnswer after cancellation failed: %v", err)
	}
	if len(engine.Calls()) != engine2Calls+2 {
		t.Errorf("unexpected engine calls: %q", engine.Calls())
	}
}

func TestNegotiationAfterClose(t *testing.T) {
	c, engine, _ := newFakeChannel(t)
	c.Close()

	if _, _, err := c.PrepareOffer(context.Background(), "", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("PrepareOffer error = %v, want ErrClosed", err)
	}
	if _, err := c.PrepareAnswer(context.Background(), "v=0"); !errors.Is(err, ErrClosed) {
		t.Errorf("PrepareAnswer error = %v, want ErrClosed", err)
	}
	if len(engine.Calls()) != 0 {
		t.Errorf("engine called after Close: %q", engine.Calls())
	}
}

func TestSetRemoteUnknownType(t *testing.T) {
	c, engine, _ := newFakeChannel(t)

	if err := c.SetRemote(context.Background(), DescriptionType("pranswer"), "v=0"); err == nil {
		t.Error("expected error for unknown description type")
	}
	if len(engine.Calls()) != 0 {
		t.Errorf("engine called for unknown type: %q", engine.Calls())
	}
}
