package game

import "testing"

func scored(id string, acc float64) *Record {
	return NewRecord(Info{ID: id}, &acc)
}

func TestSelectBestWorst(t *testing.T) {
	a := scored("A", 80)
	b := scored("B", 95)
	c := scored("C", 95)
	pending := NewRecord(Info{ID: "P"}, nil)

	tests := []struct {
		name      string
		games     []*Record
		wantBest  *Record
		wantWorst *Record
	}{
		{"empty", nil, nil, nil},
		{"only unscored", []*Record{pending}, nil, nil},
		{"single scored", []*Record{a}, a, nil},
		{"single scored among pending", []*Record{pending, b, pending}, b, nil},
		{"first max wins tie", []*Record{a, b, c}, b, a},
		{"ordering stable", []*Record{c, b, a}, c, a},
		{"skips nil", []*Record{nil, a, nil, b}, b, a},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, worst := SelectBestWorst(tt.games)
			if best != tt.wantBest {
				t.Errorf("best = %v, want %v", idOf(best), idOf(tt.wantBest))
			}
			if worst != tt.wantWorst {
				t.Errorf("worst = %v, want %v", idOf(worst), idOf(tt.wantWorst))
			}
		})
	}
}

func TestSelectBestWorst_Idempotent(t *testing.T) {
	games := []*Record{scored("A", 80), scored("B", 95), scored("C", 95)}

	best1, worst1 := SelectBestWorst(games)
	best2, worst2 := SelectBestWorst(games)
	if best1 != best2 || worst1 != worst2 {
		t.Error("SelectBestWorst() is not idempotent")
	}
}

func TestSelectBestWorst_FirstMinWinsTie(t *testing.T) {
	a := scored("A", 60)
	b := scored("B", 60)
	c := scored("C", 70)

	best, worst := SelectBestWorst([]*Record{c, a, b})
	if best != c {
		t.Errorf("best = %s, want C", idOf(best))
	}
	if worst != a {
		t.Errorf("worst = %s, want A", idOf(worst))
	}
}

func idOf(r *Record) string {
	if r == nil {
		return "<nil>"
	}
	return r.ID
}
