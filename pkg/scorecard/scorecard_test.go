package scorecard

import "testing"

func TestOracle_AcceptAll(t *testing.T) {
	o := Oracle{}
	cards := o.Score("mi moku. sina moku e kili.")
	if len(cards) != 2 {
		t.Fatalf("len(cards) = %d, want 2", len(cards))
	}
	for _, c := range cards {
		if !c.Passes() {
			t.Errorf("card %+v should pass with nil vocabulary", c)
		}
	}
}

func TestOracle_Vocabulary(t *testing.T) {
	o := Oracle{Vocabulary: map[string]struct{}{
		"mi": {}, "moku": {}, "sina": {},
	}}
	cards := o.Score("mi moku. the quick brown fox.")
	if len(cards) != 2 {
		t.Fatalf("len(cards) = %d, want 2", len(cards))
	}
	if !cards[0].Passes() {
		t.Errorf("cards[0] = %+v, want passing", cards[0])
	}
	if cards[1].Passes() {
		t.Errorf("cards[1] = %+v, want failing", cards[1])
	}
}

func TestOracle_EmptyInput(t *testing.T) {
	o := Oracle{}
	if cards := o.Score(""); len(cards) != 0 {
		t.Errorf("len(cards) = %d, want 0", len(cards))
	}
}
