package api

import (
	"testing"
	"time"
)

func TestTimelineWindowFullDay(t *testing.T) {
	start, end, shortInterval, err := timelineWindow(timelineRequest{Date: "01/15/2026"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shortInterval {
		t.Fatalf("expected shortInterval=false for a whole-day request")
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("got span %v, want 24h", end.Sub(start))
	}
}

func TestTimelineWindowHour(t *testing.T) {
	hour := 14
	start, end, shortInterval, err := timelineWindow(timelineRequest{Date: "01/15/2026", Hour: &hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !shortInterval {
		t.Fatalf("expected shortInterval=true for an hour-scoped request")
	}
	if end.Sub(start) != time.Hour {
		t.Fatalf("got span %v, want 1h", end.Sub(start))
	}
	if start.Hour() != hour {
		t.Fatalf("got start hour %d, want %d", start.Hour(), hour)
	}
}

func TestTimelineWindowRejectsBadInput(t *testing.T) {
	if _, _, _, err := timelineWindow(timelineRequest{Date: "not-a-date"}); err == nil {
		t.Fatalf("expected error for malformed date")
	}
	badHour := 24
	if _, _, _, err := timelineWindow(timelineRequest{Date: "01/15/2026", Hour: &badHour}); err == nil {
		t.Fatalf("expected error for out-of-range hour")
	}
}
