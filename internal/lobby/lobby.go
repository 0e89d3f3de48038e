package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/squares-backend/internal/directory"
	"github.com/DoyleJ11/squares-backend/internal/engine"
)

var ErrClosed = errors.New("lobby closed")

// creditTimeout bounds the durable write on the completion path. The write
// ignores the caller's cancellation.
const creditTimeout = 5 * time.Second

type Msg interface{ isLobbyMsg() }

type Join struct {
	Profile engine.Profile
	Reply   chan Result
}

func (Join) isLobbyMsg() {}

type Hold struct {
	Ctx      context.Context
	PlayerID string
	Square   int
	Reply    chan Result
}

func (Hold) isLobbyMsg() {}

type Release struct {
	PlayerID string
	Reply    chan Result
}

func (Release) isLobbyMsg() {}

type Subscribe struct {
	SubscriberID string
	Outbox       chan Snapshot // where this subscriber wants to receive snapshots
	Ack          chan struct{}
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ SubscriberID string }

func (Unsubscribe) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type getState struct {
	reply chan View
}

func (getState) isLobbyMsg() {}

// Snapshot is a point-in-time copy of the board and presence set.
type Snapshot struct {
	Version int
	Board   engine.View
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{Version: s.Version, Board: s.Board.Clone()}
}

type Result struct {
	Snapshot       Snapshot
	LevelCompleted bool
	Err            error
}

type HoldResult struct {
	Snapshot       Snapshot
	LevelCompleted bool
}

type View struct {
	Version        int
	NumSubscribers int
	State          engine.State
}

// Lobby is the game coordinator. A single goroutine owns the board and presence
// set; every mutation is one message through the inbox.
type Lobby struct {
	inbox   chan Msg
	state   engine.State
	version int
	current atomic.Pointer[Snapshot]
	clients map[string]chan Snapshot
	dir     directory.Directory
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewLobby(parent context.Context, initial engine.State, dir directory.Directory, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		version: 0,
		clients: make(map[string]chan Snapshot),
		dir:     dir,
		log:     log.Named("lobby"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	l.publish()

	go l.loop()
	return l
}

// Join puts the player online. Joining twice is a no-op.
func (l *Lobby) Join(ctx context.Context, playerID string) (Snapshot, error) {
	p, err := l.dir.Lookup(ctx, playerID)
	if errors.Is(err, directory.ErrNotFound) {
		return Snapshot{}, engine.ErrUnknownPlayer
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("lookup player: %w", err)
	}

	reply := make(chan Result, 1)
	res, err := l.call(ctx, Join{
		Profile: engine.Profile{
			ID:              p.ID,
			DisplayName:     p.DisplayName,
			Region:          p.Region,
			LevelsCompleted: p.LevelsCompleted,
		},
		Reply: reply,
	}, reply)
	return res.Snapshot, err
}

// Hold claims square for playerID. When the hold fills the board with every
// online player the level completes and the returned snapshot is already the
// next level.
func (l *Lobby) Hold(ctx context.Context, playerID string, square int) (HoldResult, error) {
	reply := make(chan Result, 1)
	res, err := l.call(ctx, Hold{Ctx: ctx, PlayerID: playerID, Square: square, Reply: reply}, reply)
	if err != nil {
		return HoldResult{}, err
	}
	return HoldResult{Snapshot: res.Snapshot, LevelCompleted: res.LevelCompleted}, nil
}

// Release vacates the player's square, if any.
func (l *Lobby) Release(ctx context.Context, playerID string) (Snapshot, error) {
	reply := make(chan Result, 1)
	res, err := l.call(ctx, Release{PlayerID: playerID, Reply: reply}, reply)
	return res.Snapshot, err
}

// Board returns the latest committed snapshot without going through the inbox.
func (l *Lobby) Board() Snapshot {
	return l.current.Load().clone()
}

// Subscribe registers an outbox that receives the current snapshot and then
// every committed change. The channel is closed on Unsubscribe, on shutdown, or
// when the subscriber falls behind.
func (l *Lobby) Subscribe(ctx context.Context, subscriberID string, buffer int) (<-chan Snapshot, error) {
	if buffer < 1 {
		buffer = 1
	}
	out := make(chan Snapshot, buffer)
	ack := make(chan struct{}, 1)
	if err := l.send(ctx, Subscribe{SubscriberID: subscriberID, Outbox: out, Ack: ack}); err != nil {
		return nil, err
	}
	select {
	case <-ack:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrClosed
	}
}

func (l *Lobby) Unsubscribe(subscriberID string) {
	_ = l.send(context.Background(), Unsubscribe{SubscriberID: subscriberID})
}

// Stop shuts the lobby down and waits for the loop to exit.
func (l *Lobby) Stop() {
	_ = l.send(context.Background(), Shutdown{})
	<-l.done
}

// Done is closed once the loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) send(ctx context.Context, m Msg) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

func (l *Lobby) call(ctx context.Context, m Msg, reply <-chan Result) (Result, error) {
	if err := l.send(ctx, m); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-l.done:
		return Result{}, ErrClosed
	}
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- l.apply(l.ctx, engine.Command{Type: engine.CmdJoin, Profile: msg.Profile})

			case Hold:
				ctx := msg.Ctx
				if ctx == nil {
					ctx = l.ctx
				}
				msg.Reply <- l.apply(ctx, engine.Command{Type: engine.CmdHold, PlayerID: msg.PlayerID, Square: msg.Square})

			case Release:
				msg.Reply <- l.apply(l.ctx, engine.Command{Type: engine.CmdRelease, PlayerID: msg.PlayerID})

			case Subscribe:
				if old, ok := l.clients[msg.SubscriberID]; ok {
					close(old)
				}
				// Register subscriber + send current snapshot immediately
				l.clients[msg.SubscriberID] = msg.Outbox
				select {
				case msg.Outbox <- l.current.Load().clone():
				default:
					close(msg.Outbox)
					delete(l.clients, msg.SubscriberID)
				}
				if msg.Ack != nil {
					msg.Ack <- struct{}{}
				}

			case Unsubscribe:
				if ch, ok := l.clients[msg.SubscriberID]; ok {
					close(ch)
					delete(l.clients, msg.SubscriberID)
				}

			case getState:
				// test-only: reflect internal state without data races
				msg.reply <- View{
					Version:        l.version,
					NumSubscribers: len(l.clients),
					State:          l.state.Clone(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// apply runs cmd against the current state and commits the result. A level
// completion is only committed after the directory has durably credited every
// holder; if that fails the whole hold is rejected and the board is unchanged.
func (l *Lobby) apply(ctx context.Context, cmd engine.Command) Result {
	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.log.Debug("command rejected",
			zap.String("command", string(cmd.Type)),
			zap.String("player_id", cmd.PlayerID),
			zap.Int("square", cmd.Square),
			zap.Error(err))
		return Result{Err: err}
	}
	if len(events) == 0 {
		return Result{Snapshot: l.current.Load().clone()}
	}

	done, completed := engine.FindEvent(events, engine.EvtLevelCompleted)
	if completed {
		creditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), creditTimeout)
		err := l.dir.CreditLevelCompletion(creditCtx, done.Credited)
		cancel()
		if err != nil {
			l.log.Error("level credit failed",
				zap.Int("level", done.Level),
				zap.Strings("player_ids", done.Credited),
				zap.Error(err))
			return Result{Err: fmt.Errorf("credit level %d: %w", done.Level, err)}
		}
	}

	l.state = next
	l.version++
	snap := l.publish()
	l.broadcast(snap)

	if completed {
		l.log.Info("level completed",
			zap.Int("level", done.Level),
			zap.Int("next_square_count", next.SquareCount),
			zap.Strings("player_ids", done.Credited))
	}
	return Result{Snapshot: snap.clone(), LevelCompleted: completed}
}

func (l *Lobby) publish() Snapshot {
	snap := Snapshot{Version: l.version, Board: l.state.View()}
	l.current.Store(&snap)
	return snap
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell subscriber no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap.clone():
			//ok
		default:
			// Subscriber is slow/full - drop them.
			l.log.Debug("dropping slow subscriber", zap.String("subscriber_id", id))
			close(ch)
			delete(l.clients, id)
		}
	}
}
