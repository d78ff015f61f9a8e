package player

import (
	"errors"
	"testing"
)

type memAccounts map[string]Account

func (m memAccounts) AccountByName(name string) (Account, bool, error) {
	account, ok := m[name]
	return account, ok, nil
}

func newTestRegistry(t *testing.T) *Registry {
	r := NewRegistry()
	for i, name := range []string{"Alice", "Albert", "Bob"} {
		if err := r.Add(&Player{Index: i, Name: name, IP: "10.0.0." + name, AccountName: name + "_acc", AccountID: 100 + i}); err != nil {
			t.Fatal(err)
		}
	}

	return r
}

func TestRegistryAddRemove(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Add(&Player{Index: 1, Name: "dup"}); !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("expected ErrSlotOccupied, got %v", err)
	}
	if err := r.Add(&Player{Index: 999}); !errors.Is(err, ErrSlotOutOfRange) {
		t.Fatalf("expected ErrSlotOutOfRange, got %v", err)
	}
	if r.Remove(2) == nil || r.Get(2) != nil {
		t.Fatal("remove did not clear the slot")
	}
	if r.Count() != 2 {
		t.Fatalf("expected 2 players, got %d", r.Count())
	}
}

func TestMatch(t *testing.T) {
	r := newTestRegistry(t)

	cases := []struct {
		query string
		name  string
		err   error
	}{
		{"bob", "Bob", nil},
		{"2", "Bob", nil},
		{"alice", "Alice", nil},
		{"alb", "Albert", nil},
		{"al", "", ErrMultiplePlayersMatch},
		{"zed", "", ErrNoPlayerMatch},
	}
	for _, c := range cases {
		p, err := r.Match(c.query)
		if c.err != nil {
			if !errors.Is(err, c.err) {
				t.Fatalf("Match(%q) err=%v want %v", c.query, err, c.err)
			}
			continue
		}
		if err != nil || p.Name != c.name {
			t.Fatalf("Match(%q)=%v,%v want %s", c.query, p, err, c.name)
		}
	}
}

func TestMatchAccountPrefersStore(t *testing.T) {
	r := newTestRegistry(t)
	store := memAccounts{"bob": {ID: 7, Name: "bob"}}

	id, err := r.MatchAccountID(store, "bob")
	if err != nil || id != 7 {
		t.Fatalf("expected stored account 7, got %d %v", id, err)
	}

	name, err := r.MatchAccountName(store, "alice")
	if err != nil || name != "Alice_acc" {
		t.Fatalf("expected online fallback, got %q %v", name, err)
	}

	if _, err = r.MatchAccountID(nil, "nobody"); !errors.Is(err, ErrNoPlayerMatch) {
		t.Fatalf("expected ErrNoPlayerMatch, got %v", err)
	}
}

func TestPlayerRangeAndJSON(t *testing.T) {
	p := &Player{Name: "Alice", TileX: 100, TileY: 100}
	if !p.IsInRange(132, 68, 32) || p.IsInRange(133, 100, 32) {
		t.Fatal("range check is off")
	}

	data, err := json.Marshal(struct{ Player *Player }{p})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"Player":"Alice"}` {
		t.Fatalf("unexpected json %s", data)
	}
}
