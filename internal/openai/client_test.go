package openai

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSummarizeReminderFallback(t *testing.T) {
	t.Parallel()
	client := New("")
	ctx := context.Background()

	if client.Configured() {
		t.Fatalf("client without key should not be configured")
	}

	long := strings.Repeat("Lorem ipsum dolor sit amet. ", 5)
	summary, err := client.SummarizeReminder(ctx, long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary) != summaryFallbackLen+3 || !strings.HasSuffix(summary, "...") {
		t.Fatalf("unexpected fallback summary %q", summary)
	}

	short := "Call the dentist"
	if summary, _ := client.SummarizeReminder(ctx, short); summary != short {
		t.Fatalf("short content should be returned as is, got %q", summary)
	}

	if _, err := client.SummarizeReminder(ctx, "   "); err == nil {
		t.Fatalf("expected error for empty content")
	}
}

func TestSummarizeReminderFallbackKeepsRunes(t *testing.T) {
	t.Parallel()
	client := New("")

	long := strings.Repeat("Recordar la reunión del miércoles. ", 5)
	summary, err := client.SummarizeReminder(context.Background(), long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(summary) {
		t.Fatalf("fallback summary is not valid UTF-8: %q", summary)
	}
	if got := utf8.RuneCountInString(summary); got != summaryFallbackLen+3 {
		t.Fatalf("expected %d runes, got %d", summaryFallbackLen+3, got)
	}
}
