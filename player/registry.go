package player

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/tilegate/gethook/world"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNoPlayerMatch        = errors.New("could not match any players")
	ErrMultiplePlayersMatch = errors.New("more than one player matched")
	ErrSlotOccupied         = errors.New("player slot is occupied")
	ErrSlotOutOfRange       = errors.New("player slot out of range")
)

type Account struct {
	ID   int
	Name string
}

// AccountStore resolves registered accounts independently of who is online.
type AccountStore interface {
	AccountByName(name string) (Account, bool, error)
}

type Registry struct {
	locker  sync.RWMutex
	players []*Player
}

func NewRegistry() *Registry {
	return &Registry{players: make([]*Player, world.MaxPlayers)}
}

func (r *Registry) Add(p *Player) error {
	if p.Index < 0 || p.Index >= len(r.players) {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, p.Index)
	}

	r.locker.Lock()
	defer r.locker.Unlock()
	if r.players[p.Index] != nil {
		return fmt.Errorf("%w: %d", ErrSlotOccupied, p.Index)
	}
	r.players[p.Index] = p

	return nil
}

func (r *Registry) Remove(index int) *Player {
	if index < 0 || index >= len(r.players) {
		return nil
	}

	r.locker.Lock()
	defer r.locker.Unlock()
	p := r.players[index]
	r.players[index] = nil

	return p
}

func (r *Registry) Get(index int) *Player {
	if index < 0 || index >= len(r.players) {
		return nil
	}

	r.locker.RLock()
	defer r.locker.RUnlock()
	return r.players[index]
}

func (r *Registry) All() []*Player {
	r.locker.RLock()
	defer r.locker.RUnlock()

	all := make([]*Player, 0, 16)
	for _, p := range r.players {
		if p != nil {
			all = append(all, p)
		}
	}

	return all
}

func (r *Registry) Count() int {
	return len(r.All())
}

func (r *Registry) ByName(name string, foldCase bool) *Player {
	for _, p := range r.All() {
		if p.Name == name || (foldCase && strings.EqualFold(p.Name, name)) {
			return p
		}
	}

	return nil
}

func (r *Registry) ByIP(ip string) *Player {
	for _, p := range r.All() {
		if p.IP == ip {
			return p
		}
	}

	return nil
}

// FindByNameOrID treats a numeric query as a slot index, then tries an exact
// case-insensitive name and finally every name starting with the query.
func (r *Registry) FindByNameOrID(query string) []*Player {
	if index, err := strconv.Atoi(query); err == nil {
		if p := r.Get(index); p != nil {
			return []*Player{p}
		}
	}

	lowered := strings.ToLower(query)
	var found []*Player
	for _, p := range r.All() {
		name := strings.ToLower(p.Name)
		if name == lowered {
			return []*Player{p}
		}
		if strings.HasPrefix(name, lowered) {
			found = append(found, p)
		}
	}

	return found
}

func (r *Registry) Match(query string) (*Player, error) {
	matched := r.FindByNameOrID(query)
	switch len(matched) {
	case 0:
		return nil, fmt.Errorf("%w for %q", ErrNoPlayerMatch, query)
	case 1:
		return matched[0], nil
	}

	names := make([]string, 0, len(matched))
	for _, p := range matched {
		names = append(names, p.Name)
	}

	return nil, fmt.Errorf("%w: %s", ErrMultiplePlayersMatch, strings.Join(names, ", "))
}

// MatchAccount looks up the registered account first and falls back to an online player.
func (r *Registry) MatchAccount(store AccountStore, name string) (Account, error) {
	if store != nil {
		account, ok, err := store.AccountByName(name)
		if err != nil {
			return Account{}, fmt.Errorf("lookup account %q: %w", name, err)
		}
		if ok {
			return account, nil
		}
	}

	p, err := r.Match(name)
	if err != nil {
		return Account{}, err
	}

	return Account{ID: p.AccountID, Name: p.AccountName}, nil
}

func (r *Registry) MatchAccountName(store AccountStore, name string) (string, error) {
	account, err := r.MatchAccount(store, name)
	return account.Name, err
}

func (r *Registry) MatchAccountID(store AccountStore, name string) (int, error) {
	account, err := r.MatchAccount(store, name)
	if err != nil {
		return -1, err
	}

	return account.ID, nil
}
