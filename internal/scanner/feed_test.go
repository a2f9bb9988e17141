package scanner

import (
	"fmt"
	"testing"
	"time"

	"github.com/GriffinCanCode/league-vision/internal/vision"
)

func decision(i int) vision.Decision {
	return vision.Decision{
		ID:      fmt.Sprintf("d%d", i),
		Finding: vision.Finding{Message: fmt.Sprintf("finding %d", i)},
		Source:  "keyword",
		At:      epoch.Add(time.Duration(i) * time.Second),
	}
}

func TestFeedKeepsBoundedHistory(t *testing.T) {
	f := NewFeed(3, 10)
	for i := 0; i < 5; i++ {
		f.OnDecision(decision(i))
	}

	got := f.Recent(0)
	if len(got) != 3 {
		t.Fatalf("Recent(0) len = %d, want 3", len(got))
	}
	for i, want := range []string{"d2", "d3", "d4"} {
		if got[i].ID != want {
			t.Errorf("entry %d = %s, want %s", i, got[i].ID, want)
		}
	}

	if two := f.Recent(2); len(two) != 2 || two[0].ID != "d3" {
		t.Errorf("Recent(2) = %+v", two)
	}
	if last, ok := f.Last(); !ok || last.ID != "d4" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestFeedRecentIsACopy(t *testing.T) {
	f := NewFeed(2, 1)
	f.OnDecision(decision(1))
	got := f.Recent(0)
	got[0].ID = "changed"
	if last, _ := f.Last(); last.ID != "d1" {
		t.Errorf("history mutated through Recent: %s", last.ID)
	}
}

func TestFeedEmptyLast(t *testing.T) {
	if _, ok := NewFeed(1, 1).Last(); ok {
		t.Error("Last() on empty feed reported a decision")
	}
}

func TestFeedEventsDoNotBlock(t *testing.T) {
	f := NewFeed(10, 2)
	f.now = func() time.Time { return epoch }

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.OnStatus("running")
		f.OnModeChanged(vision.FollowCursor)
		f.OnDecision(decision(1))
		f.OnStatus("dropped")
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feed blocked on a full event channel")
	}

	first := <-f.Events()
	if first.Type != EventStatus || first.Status != "running" || !first.At.Equal(epoch) {
		t.Errorf("first event = %+v", first)
	}
	second := <-f.Events()
	if second.Type != EventMode || second.Mode != "follow_cursor" {
		t.Errorf("second event = %+v", second)
	}
	select {
	case e := <-f.Events():
		t.Errorf("unexpected buffered event %+v", e)
	default:
	}

	if n := len(f.Recent(0)); n != 1 {
		t.Errorf("history = %d, decisions are kept even when events drop", n)
	}
}

func TestSinksFanOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	s := Sinks{a, b}
	s.OnDecision(decision(1))
	s.OnStatus("scanning")
	s.OnModeChanged(vision.CenterScreen)

	for i, r := range []*recordingSink{a, b} {
		if len(r.Decisions()) != 1 || len(r.Statuses()) != 1 || len(r.Modes()) != 1 {
			t.Errorf("sink %d missed notifications", i)
		}
	}
}
