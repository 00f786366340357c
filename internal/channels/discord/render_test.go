package discord

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hattiebot/hattiebot/internal/reply"
)

func TestBuildEmbedColorsByType(t *testing.T) {
	cases := map[string]int{
		"success": 0x2ecc71, "error": 0xe74c3c, "warning": 0xf1c40f,
		"task": 0x9b59b6, "nonsense": defaultEmbedColor,
	}
	for typ, want := range cases {
		rd := &reply.RichPayload{Title: "t", Type: typ}
		embed := buildEmbed(rd)
		if embed.Color != want {
			t.Errorf("type %q: got color %#x, want %#x", typ, embed.Color, want)
		}
	}
}

func TestBuildEmbedNilWhenNoRichData(t *testing.T) {
	if buildEmbed(nil) != nil {
		t.Fatal("expected nil embed for nil RichPayload")
	}
}

func TestBuildActionRowCapsAtFiveAndTruncatesLabels(t *testing.T) {
	suggestions := []string{"one", "two", "three", "four", "five", "six"}
	row := buildActionRow(suggestions)
	if len(row.Components) != 5 {
		t.Fatalf("got %d buttons, want 5", len(row.Components))
	}
	long := strings.Repeat("x", 200)
	row = buildActionRow([]string{long})
	btn := row.Components[0].(discordgo.Button)
	if len(btn.Label) != 80 {
		t.Fatalf("got label length %d, want 80", len(btn.Label))
	}
}

func TestSuggestionCustomIDIsStableAndBounded(t *testing.T) {
	id1 := suggestionCustomID(0, "tell me more")
	id2 := suggestionCustomID(0, "tell me more")
	if id1 != id2 {
		t.Fatalf("expected stable custom id, got %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, "suggestion_0_") {
		t.Fatalf("got %q, want suggestion_0_ prefix", id1)
	}
}

func TestRenderOutboundSkipsEmbedAndRowWhenAbsent(t *testing.T) {
	resp := reply.Done("plain text")
	send := renderOutbound(resp)
	if len(send.Embeds) != 0 || len(send.Components) != 0 {
		t.Fatalf("expected no embeds/components for a plain response, got %+v", send)
	}
}

func TestRenderOutboundIncludesTimestamp(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	resp := reply.Done("x").WithRichData(reply.RichPayload{Title: "t", Timestamp: &ts})
	embed := buildEmbed(resp.RichData)
	if embed.Timestamp == "" {
		t.Fatal("expected a formatted timestamp")
	}
}
