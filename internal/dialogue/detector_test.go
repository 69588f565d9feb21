package dialogue

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

const threeWayTranscript = "Alice 0:00\nI think AI helps.\nBob 0:05\nI disagree, it has risks.\nAlice 0:10\nFair point, but validation helps."

func TestDetectTurns_TimestampedTranscript(t *testing.T) {
	d := NewDetector()
	turns := d.DetectTurns("doc-1", threeWayTranscript)

	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}

	wantSpeakers := []string{"Alice", "Bob", "Alice"}
	for i, want := range wantSpeakers {
		if turns[i].SpeakerName != want {
			t.Errorf("turn %d speaker = %q, want %q", i, turns[i].SpeakerName, want)
		}
	}

	if !turns[1].ContainsResponseMarkers {
		t.Error("turn 1 should carry response markers (disagreement lexicon)")
	}
	if turns[1].TurnType != TurnResponse {
		t.Errorf("turn 1 type = %q, want %q", turns[1].TurnType, TurnResponse)
	}

	if !turns[2].ContainsResponseMarkers {
		t.Error("turn 2 should carry response markers (contrastive building)")
	}
	if !turns[2].ReferencesPreviousSpeaker {
		t.Error("turn 2 should reference a previous speaker")
	}
	if turns[2].RespondsToTurn != turns[1].TurnID {
		t.Errorf("turn 2 responds_to = %q, want %q", turns[2].RespondsToTurn, turns[1].TurnID)
	}
}

func TestDetectTurns_ColonAndBracketPatterns(t *testing.T) {
	text := "Moderator: Welcome everyone, what brings you here?\n[Participant A] Mostly curiosity about the topic.\nINTERVIEWER: And you?\nParticipant A: Same as before."
	turns := NewDetector().DetectTurns("doc-2", text)

	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	wantSpeakers := []string{"Moderator", "Participant A", "INTERVIEWER", "Participant A"}
	for i, want := range wantSpeakers {
		if turns[i].SpeakerName != want {
			t.Errorf("turn %d speaker = %q, want %q", i, turns[i].SpeakerName, want)
		}
	}
	if !turns[0].ContainsQuestion || turns[0].TurnType != TurnQuestion {
		t.Errorf("turn 0 should be a question, got %q", turns[0].TurnType)
	}
}

func TestDetectTurns_BlankLinesDoNotSplit(t *testing.T) {
	text := "Alice: First thought about the product.\n\nStill my first turn after a pause.\nBob: Second speaker now."
	turns := NewDetector().DetectTurns("doc-3", text)

	if len(turns) != 2 {
		t.Fatalf("expected 2 turns (blank line must not split), got %d", len(turns))
	}
	if !strings.Contains(turns[0].Text, "Still my first turn") {
		t.Errorf("turn 0 text lost continuation: %q", turns[0].Text)
	}
}

func TestDetectTurns_StripsAnnotationMarkers(t *testing.T) {
	text := "[P1] Alice: The budget worries me.\n[L2] Bob: Agreed, it is tight."
	turns := NewDetector().DetectTurns("doc-4", text)

	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].SpeakerName != "Alice" || turns[1].SpeakerName != "Bob" {
		t.Errorf("speakers = %q, %q", turns[0].SpeakerName, turns[1].SpeakerName)
	}
	if strings.Contains(turns[0].Text, "[P1]") {
		t.Errorf("annotation marker leaked into text: %q", turns[0].Text)
	}
}

func TestDetectTurns_FallbackSingleTurn(t *testing.T) {
	text := "just a wall of prose with no structure at all, flowing over\nseveral lines without any speaker labels anywhere"
	turns := NewDetector().DetectTurns("doc-5", text)

	if len(turns) != 1 {
		t.Fatalf("expected single fallback turn, got %d", len(turns))
	}
	if turns[0].SpeakerName != "Unknown Speaker" {
		t.Errorf("fallback speaker = %q", turns[0].SpeakerName)
	}
	if turns[0].Confidence >= 0.5 {
		t.Errorf("fallback confidence = %v, want low", turns[0].Confidence)
	}
}

func TestDetectTurns_EmptyInput(t *testing.T) {
	if turns := NewDetector().DetectTurns("doc-6", "  \n\n "); len(turns) != 0 {
		t.Fatalf("expected no turns for blank input, got %d", len(turns))
	}
}

func TestDetectTurns_InterjectionByWordCount(t *testing.T) {
	turns := NewDetector().DetectTurns("doc-7", "Alice: The rollout plan needs at least one more review cycle.\nBob: Makes sense.")
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[1].TurnType != TurnInterjection {
		t.Errorf("short turn type = %q, want %q", turns[1].TurnType, TurnInterjection)
	}
	if turns[0].TurnType != TurnStatement {
		t.Errorf("long turn type = %q, want %q", turns[0].TurnType, TurnStatement)
	}
}

func TestDetectTurns_ReferencesPreviousSpeakerByName(t *testing.T) {
	text := "Maria Lopez: The vendor quote came in high.\nBob: I think Maria is right about the quote."
	turns := NewDetector().DetectTurns("doc-8", text)
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if !turns[1].ReferencesPreviousSpeaker {
		t.Error("first-name mention should set references_previous_speaker")
	}
	if turns[0].ReferencesPreviousSpeaker {
		t.Error("first turn has no prior speakers to reference")
	}
}

func TestDetectTurns_SequenceInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(rt, "n")
		speakers := []string{"Alice", "Bob", "Carol"}

		var sb strings.Builder
		for i := 0; i < n; i++ {
			sp := speakers[rapid.IntRange(0, 2).Draw(rt, "sp")]
			line := rapid.StringMatching(`[a-z ]{1,40}`).Draw(rt, "line")
			sb.WriteString(sp + ": " + line + "\n")
		}

		turns := NewDetector().DetectTurns("prop-doc", sb.String())

		seen := map[string]bool{}
		for i, turn := range turns {
			if turn.SequenceNumber != i {
				rt.Fatalf("sequence_number %d at index %d", turn.SequenceNumber, i)
			}
			if seen[turn.TurnID] {
				rt.Fatalf("duplicate turn_id %q", turn.TurnID)
			}
			seen[turn.TurnID] = true
		}
	})
}

func TestClassifyDocument(t *testing.T) {
	tests := []struct {
		name string
		text string
		want DocumentKind
	}{
		{
			name: "multi party",
			text: "A: one two three four five.\nB: six seven eight nine ten.\nC: more words here again now.\nA: closing remarks from me here.",
			want: KindMultiParty,
		},
		{
			name: "dyadic",
			text: threeWayTranscript,
			want: KindDyadic,
		},
		{
			name: "monologue",
			text: "Narrator: a long uninterrupted account of events.",
			want: KindMonologue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := NewDetector().DetectTurns("doc", tt.text)
			if got := ClassifyDocument(turns); got != tt.want {
				t.Errorf("ClassifyDocument = %q, want %q", got, tt.want)
			}
		})
	}
}
