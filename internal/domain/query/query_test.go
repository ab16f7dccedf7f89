package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNew_Valid(t *testing.T) {
	q, err := New("  what is a refund  ", language.Unknown, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text() != "what is a refund" {
		t.Errorf("Text() = %q", q.Text())
	}
	if q.Language() != language.English {
		t.Errorf("Language() = %q", q.Language())
	}
	if !q.IssuedAt().Equal(now) {
		t.Errorf("IssuedAt() = %v", q.IssuedAt())
	}
}

func TestNew_HintWins(t *testing.T) {
	q, err := New("generic words", language.Indonesian, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Language() != language.Indonesian {
		t.Errorf("Language() = %q, want hint to win", q.Language())
	}
}

func TestNew_Empty(t *testing.T) {
	for _, text := range []string{"", "   \t"} {
		_, err := New(text, language.Unknown, now)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("New(%q) err = %v, want ErrInvalidArgument", text, err)
		}
	}
}

func TestNew_TooLong(t *testing.T) {
	_, err := New(strings.Repeat("q", MaxLength+1), language.Unknown, now)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestNew_BadHint(t *testing.T) {
	_, err := New("text", "klingon", now)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestNormalized(t *testing.T) {
	q, _ := New("Qu'est-ce que le Café", language.English, now)
	if got := q.Normalized(); got != "qu'est-ce que le cafe" {
		t.Errorf("Normalized() = %q", got)
	}
}

func TestNewExpanded_OriginalFirst(t *testing.T) {
	q, _ := New("refund policy", language.English, now)
	e := NewExpanded(q, []string{"money back policy", "return policy"}, 5)
	want := []string{"refund policy", "money back policy", "return policy"}
	if !reflect.DeepEqual(e.Variants(), want) {
		t.Errorf("Variants() = %v, want %v", e.Variants(), want)
	}
	eq := e.Query()
	if eq.Text() != "refund policy" {
		t.Errorf("Query().Text() = %q", eq.Text())
	}
}

func TestNewExpanded_DedupCaseInsensitive(t *testing.T) {
	q, _ := New("refund policy", language.English, now)
	e := NewExpanded(q, []string{"Refund Policy", "REFUND POLICY", "return policy", "Return Policy"}, 5)
	want := []string{"refund policy", "return policy"}
	if !reflect.DeepEqual(e.Variants(), want) {
		t.Errorf("Variants() = %v, want %v", e.Variants(), want)
	}
}

func TestNewExpanded_Cap(t *testing.T) {
	q, _ := New("q", language.English, now)
	e := NewExpanded(q, []string{"a", "b", "c", "d", "e", "f"}, 3)
	if len(e.Variants()) != 3 {
		t.Errorf("len(Variants()) = %d, want 3", len(e.Variants()))
	}
	if e.Variants()[0] != "q" {
		t.Errorf("variant zero = %q, want original", e.Variants()[0])
	}
}

func TestNewExpanded_SkipsBlanks(t *testing.T) {
	q, _ := New("q", language.English, now)
	e := NewExpanded(q, []string{"", "   ", "real"}, 0)
	want := []string{"q", "real"}
	if !reflect.DeepEqual(e.Variants(), want) {
		t.Errorf("Variants() = %v, want %v", e.Variants(), want)
	}
}
