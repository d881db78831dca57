package game

import (
	"context"
	"errors"
	"sync"

	"github.com/JustinTDCT/GuessTheMovie/internal/metrics"
	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

type Phase string

const (
	PhaseLoading        Phase = "loading"
	PhaseAwaitingChoice Phase = "awaiting_choice"
	PhaseRevealed       Phase = "revealed"
	PhaseFailed         Phase = "failed"
)

var (
	ErrNoRound         = errors.New("no round is awaiting a choice")
	ErrAlreadyRevealed = errors.New("round already revealed")
	ErrUnknownChoice   = errors.New("movie is not one of the round's choices")
	// ErrSuperseded is returned by Load when a newer request replaced it before it resolved.
	ErrSuperseded = errors.New("round request superseded")
)

// State is a snapshot of one screen's game.
type State struct {
	Phase    Phase
	Request  uint64
	GenreID  *int
	Round    *Round
	Selected *tmdb.Movie
	Correct  bool
	Err      error
}

// RoundSource produces rounds; *Selector is the production implementation.
type RoundSource interface {
	Select(ctx context.Context, genreID *int) (*Round, error)
}

// Machine drives the loading → awaiting_choice → revealed cycle for one screen.
// Each Load takes a new request token; only the latest token may publish a result.
type Machine struct {
	source RoundSource

	mu      sync.Mutex
	state   State
	token   uint64
	cancel  context.CancelFunc
	subs    map[int]func(State)
	nextSub int
}

func NewMachine(source RoundSource) *Machine {
	return &Machine{
		source: source,
		state:  State{Phase: PhaseLoading},
		subs:   make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for every state change. Call the returned function to stop.
// fn runs with the machine locked and must not block or call back into it.
func (m *Machine) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Subscribers returns the number of live subscriptions.
func (m *Machine) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Load requests a new round for genreID (nil for all genres). An in-flight
// request is cancelled and its result, if any, is discarded. The returned state
// is the machine's state after this request finished or was superseded.
func (m *Machine) Load(ctx context.Context, genreID *int) (State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.token++
	token := m.token
	m.cancel = cancel
	m.state = State{Phase: PhaseLoading, Request: token, GenreID: copyInt(genreID)}
	m.publishLocked()
	m.mu.Unlock()

	round, err := m.source.Select(ctx, genreID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.token {
		return m.state, ErrSuperseded
	}
	m.cancel = nil
	if err != nil {
		m.state = State{Phase: PhaseFailed, Request: token, GenreID: copyInt(genreID), Err: err}
	} else {
		m.state = State{Phase: PhaseAwaitingChoice, Request: token, GenreID: copyInt(genreID), Round: round}
	}
	m.publishLocked()
	return m.state, err
}

// Reload repeats the last request with the same genre filter (new round or retry).
func (m *Machine) Reload(ctx context.Context) (State, error) {
	return m.Load(ctx, m.State().GenreID)
}

// Choose records the player's pick. It is only valid while awaiting a choice.
func (m *Machine) Choose(movieID int) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state.Phase {
	case PhaseRevealed:
		return m.state, ErrAlreadyRevealed
	case PhaseAwaitingChoice:
	default:
		return m.state, ErrNoRound
	}

	selected, ok := m.state.Round.Has(movieID)
	if !ok {
		return m.state, ErrUnknownChoice
	}
	m.state.Phase = PhaseRevealed
	m.state.Selected = &selected
	m.state.Correct = selected.ID == m.state.Round.Target.ID
	if m.state.Correct {
		metrics.Guesses.WithLabelValues("correct").Inc()
	} else {
		metrics.Guesses.WithLabelValues("wrong").Inc()
	}
	m.publishLocked()
	return m.state, nil
}

// Close cancels any in-flight request and drops all subscribers.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.subs = make(map[int]func(State))
}

func (m *Machine) publishLocked() {
	st := m.state
	for _, fn := range m.subs {
		fn(st)
	}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
