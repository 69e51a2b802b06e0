package events

import (
	"encoding/json"
	"testing"

	"aidebate/internal/sse"
)

func TestParseKind_RoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		if got := ParseKind(k.String()); got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if len(Kinds()) != int(KindCount)-1 {
		t.Errorf("Kinds() has %d entries, want %d", len(Kinds()), KindCount-1)
	}
}

func TestParseKind_NamesAreUnique(t *testing.T) {
	seen := map[string]Kind{}
	for k, name := range kindNames {
		if name == "" {
			t.Errorf("kind %d has no name", k)
		}
		if prev, ok := seen[name]; ok {
			t.Errorf("name %q used by %v and %v", name, prev, Kind(k))
		}
		seen[name] = Kind(k)
	}
}

func TestParseKind_Unknown(t *testing.T) {
	for _, name := range []string{"", "unknown", "heartbeat", "AI_ARGUMENT"} {
		if k := ParseKind(name); k != KindUnknown {
			t.Errorf("ParseKind(%q) = %v, want unknown", name, k)
		}
	}
}

func TestDecode_AIArgument(t *testing.T) {
	ev, err := Decode(sse.Frame{
		Event: "ai_argument",
		Data:  json.RawMessage(`{"chunk":"Hello","side":"NEGATIVE","round":2,"argumentId":42}`),
	})
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if ev.Kind != KindAIArgument {
		t.Errorf("kind = %v", ev.Kind)
	}
	if ev.Payload.Side != "NEGATIVE" || ev.Payload.Chunk != "Hello" {
		t.Errorf("payload = %+v", ev.Payload)
	}
	if ev.Payload.RoundOr(1) != 2 {
		t.Errorf("round = %d", ev.Payload.RoundOr(1))
	}
	if ev.Payload.ArgumentID != "42" {
		t.Errorf("argumentId = %q", ev.Payload.ArgumentID)
	}
}

func TestDecode_ScoresKeepAbsence(t *testing.T) {
	ev, err := Decode(sse.Frame{
		Event: "cumulative_scores_update",
		Data:  json.RawMessage(`{"affirmativeTotal":15.5}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Payload.AffirmativeTotal == nil || *ev.Payload.AffirmativeTotal != 15.5 {
		t.Errorf("affirmativeTotal = %v", ev.Payload.AffirmativeTotal)
	}
	if ev.Payload.NegativeTotal != nil {
		t.Error("negativeTotal should be absent")
	}
}

func TestDecode_UnknownSkipsPayload(t *testing.T) {
	ev, err := Decode(sse.Frame{Event: "heartbeat", Data: json.RawMessage(`[1,2]`)})
	if err != nil {
		t.Fatalf("unknown kinds should not fail: %v", err)
	}
	if ev.Kind != KindUnknown || ev.Name != "heartbeat" {
		t.Errorf("ev = %+v", ev)
	}
}

func TestDecode_WrongShape(t *testing.T) {
	_, err := Decode(sse.Frame{Event: "round_start", Data: json.RawMessage(`{"round":"three"}`)})
	if err == nil {
		t.Error("expected decode error for string round")
	}
}

func TestID(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`17`, "17"},
		{`"abc"`, "abc"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var id ID
		if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if id != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, id, tt.want)
		}
	}

	out, _ := json.Marshal(struct{ ID ID }{ID: "17"})
	if string(out) != `{"ID":17}` {
		t.Errorf("numeric id marshal = %s", out)
	}
	out, _ = json.Marshal(struct{ ID ID }{ID: "s-1"})
	if string(out) != `{"ID":"s-1"}` {
		t.Errorf("string id marshal = %s", out)
	}
}

func TestFirstAndErrorText(t *testing.T) {
	a, b := 3.0, 4.0
	if First(nil, &a, &b) != 3 {
		t.Error("First should pick first non-nil")
	}
	if First() != 0 {
		t.Error("First of nothing should be 0")
	}

	if (Payload{Error: "e", Message: "m"}).ErrorText() != "e" {
		t.Error("error should win over message")
	}
	if (Payload{Message: "m"}).ErrorText() != "m" {
		t.Error("message fallback")
	}
}
