package game

import (
	"math"
	"time"

	"github.com/bokeefe123/modaltron/internal/metrics"
	"github.com/bokeefe123/modaltron/internal/pubsub"
	"github.com/bokeefe123/modaltron/internal/spatial"
)

const (
	framerate       = time.Second / 60
	perPlayerSize   = 80.0
	warmupTime      = 3000 * time.Millisecond
	warmdownTime    = 5000 * time.Millisecond
	spawnMargin     = 0.05
	spawnAngleMargin = 0.3
	printStartDelay = 3 * time.Second
)

// tickRate is the live simulation rate, defaulting to framerate. Tests
// and cmd/modaltron's config-driven override adjust it via SetTickRate
// before any Game.Run starts; it is not safe to change concurrently with
// a running game.
var tickRate = framerate

// SetTickRate overrides the simulation tick interval used by every Game
// created afterward. A zero or negative d restores framerate.
func SetTickRate(d time.Duration) {
	if d <= 0 {
		tickRate = framerate
		return
	}
	tickRate = d
}

// Game runs the round/game state machine for one room's match (spec.md
// §4.8). Every method on Game, and every callback it hands to a timer, is
// only ever invoked on the goroutine started by Run — Start/Stop and the
// avatar/bonus timers post through the command queue instead of touching
// state from another goroutine.
type Game struct {
	avatars []*Avatar
	config  RoomConfigRef

	size       float64
	borderless bool
	maxScore   int

	started bool
	inRound bool

	world        *spatial.World
	bonusManager *Manager
	bonusStack   *gameBonusStack

	deaths       []*Avatar
	deathInFrame bool
	roundWinner  *Avatar
	gameWinner   *Avatar

	rendered time.Time

	cmdCh  chan func()
	stopCh chan struct{}

	running      bool
	launchCancel func()
	endCancel    func()

	unsubs []pubsub.Unsubscribe

	Events *pubsub.Topic[GameEvent]
}

// NewGame builds a game for the given avatars (already constructed and
// cached on their owning players) and room configuration. It does not
// start the simulation; call Run then NewRound.
func NewGame(avatars []*Avatar, config RoomConfigRef) *Game {
	g := &Game{
		avatars:  append([]*Avatar(nil), avatars...),
		config:   config,
		maxScore: config.MaxScore(),
		cmdCh:    make(chan func(), 64),
		stopCh:   make(chan struct{}),
		Events:   pubsub.NewTopic[GameEvent](),
	}
	g.size = g.computeSize(g.presentCount())
	g.world = spatial.NewWorld(g.size, 0)
	g.bonusStack = newGameBonusStack(g)
	g.bonusManager = NewManager(g, config.EnabledBonusKinds(), config.BonusRate())

	for _, a := range g.avatars {
		a.Clear()
		g.unsubs = append(g.unsubs, a.Events.Subscribe(g.onAvatarEvent))
	}
	return g
}

// Size returns the current world side length.
func (g *Game) Size() float64 { return g.size }

// Borderless reports whether the current round wraps at the walls.
func (g *Game) Borderless() bool { return g.borderless }

// MaxScore returns the score needed to win the game.
func (g *Game) MaxScore() int { return g.maxScore }

// BonusStackEvents returns the topic the game-wide bonus stack (borderless
// and other AffectGame effects) publishes add/remove changes on.
func (g *Game) BonusStackEvents() *pubsub.Topic[BonusStackEvent] { return g.bonusStack.Events }

// BonusManager returns the game's bonus spawner, used by the controller
// to build a spectator snapshot of currently live bonuses.
func (g *Game) BonusManager() *Manager { return g.bonusManager }

// InRound reports whether a round is currently being played (as opposed
// to warmup/warmdown between rounds).
func (g *Game) InRound() bool { return g.inRound }

// Started reports whether NewRound has ever been called: a new attacher
// after this point gets a spectator snapshot instead of joining the
// waiting room (spec.md §4.11).
func (g *Game) Started() bool { return g.started }

// Rendered returns the wall-clock time of the last rendered tick, used by
// the controller's `spectate` snapshot payload.
func (g *Game) Rendered() time.Time { return g.rendered }

// RoundWinner returns the most recently resolved round's winner, or nil.
func (g *Game) RoundWinner() *Avatar { return g.roundWinner }

// Avatars returns every avatar in the game, in join order.
func (g *Game) Avatars() []*Avatar { return append([]*Avatar(nil), g.avatars...) }

// PresentAvatars returns avatars whose player is still connected.
func (g *Game) PresentAvatars() []*Avatar {
	var out []*Avatar
	for _, a := range g.avatars {
		if a.Present {
			out = append(out, a)
		}
	}
	return out
}

// AliveAvatars returns avatars still alive in the current round.
func (g *Game) AliveAvatars() []*Avatar {
	var out []*Avatar
	for _, a := range g.avatars {
		if a.Alive {
			out = append(out, a)
		}
	}
	return out
}

func (g *Game) presentCount() int { return len(g.PresentAvatars()) }

func (g *Game) computeSize(players int) float64 {
	if players < 1 {
		players = 1
	}
	return math.Round(math.Sqrt(perPlayerSize*perPlayerSize + float64(players-1)*perPlayerSize*perPlayerSize/5))
}

// Post submits fn to run on the game's owning goroutine, the same
// channel Run drains on every iteration. Controllers use this to apply
// inbound player input (steering, ready-toggle) without ever touching
// avatar/game state from their own goroutine.
func (g *Game) Post(fn func()) {
	select {
	case g.cmdCh <- fn:
	case <-g.stopCh:
	}
}

// After schedules fn to run on the game's own goroutine after d elapses,
// returning a canceler. Bonus and round timers route through this instead
// of mutating game/avatar state from the timer's own goroutine.
func (g *Game) After(d time.Duration, fn func()) func() {
	timer := time.AfterFunc(d, func() {
		select {
		case g.cmdCh <- fn:
		case <-g.stopCh:
		}
	})
	return func() { timer.Stop() }
}

func (g *Game) onAvatarEvent(ev AvatarEvent) {
	if p, ok := ev.(EvPoint); ok {
		g.onPoint(p)
	}
}

func (g *Game) onPoint(p EvPoint) {
	if g.started && g.world.Active {
		g.world.AddBody(newAvatarBody(p.X, p.Y, p.Avatar).Body)
	}
}

// Run drives the fixed-rate simulation loop and the command queue until
// ctx-like stop is requested via Close. It blocks, so callers start it on
// its own goroutine.
func (g *Game) Run() {
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()
	for {
		select {
		case <-g.stopCh:
			return
		case fn := <-g.cmdCh:
			fn()
		case now := <-ticker.C:
			if !g.running {
				continue
			}
			if g.rendered.IsZero() {
				g.rendered = now
				continue
			}
			step := now.Sub(g.rendered)
			g.rendered = now
			start := time.Now()
			g.update(step.Seconds() * 1000)
			metrics.RecordTick(time.Since(start))
		}
	}
}

// Close stops Run and releases every pending timer.
func (g *Game) Close() {
	select {
	case <-g.stopCh:
	default:
		close(g.stopCh)
	}
}

// Start begins the frame loop for one round (warmup has elapsed).
func (g *Game) Start() {
	if g.running {
		return
	}
	g.running = true
	g.onStart()
}

// Stop halts the frame loop, used at round end.
func (g *Game) Stop() {
	g.running = false
	g.onStop()
}

func (g *Game) onStart() {
	g.rendered = time.Time{}
	g.Events.Emit(EvGameStart{})
	for _, a := range g.avatars {
		avatar := a
		g.After(printStartDelay, func() { avatar.printMgr.Start() })
	}
	g.world.Activate()
	g.bonusManager.Start(g.After)
}

func (g *Game) onStop() {
	g.rendered = time.Time{}
	g.Events.Emit(EvGameStop{})
	g.bonusManager.Stop()

	if present := g.presentCount(); present > 0 {
		newSize := g.computeSize(present)
		if newSize != g.size {
			g.setSize(newSize)
		}
	}

	switch w := g.isWon().(type) {
	case *Avatar:
		g.gameWinner = w
		g.End()
	case bool:
		g.End()
	default:
		g.NewRound(0)
	}
}

// update is the per-tick body: advance every avatar, resolve collisions
// against the world, harvest bonuses, and check for round end (spec.md
// §4.8's tick body).
func (g *Game) update(stepMS float64) {
	score := len(g.deaths)
	g.deathInFrame = false

	for _, avatar := range g.avatars {
		if !avatar.Alive {
			continue
		}
		avatar.Update(stepMS)

		margin := avatar.Radius()
		if g.borderless {
			margin = 0
		}
		if x, y, hit := g.world.GetBoundIntersect(avatar.Body().Body, margin); hit {
			if g.borderless {
				ox, oy := g.world.GetOpposite(x, y)
				avatar.SetPosition(ox, oy)
			} else {
				g.kill(avatar, nil, score)
			}
		} else if !avatar.Invincible() {
			if killer := g.world.GetBody(avatar.Body().Body); killer != nil {
				if ab, ok := killer.Data.(*AvatarBody); ok {
					g.kill(avatar, ab, score)
				}
			}
		}

		if avatar.Alive {
			avatar.printMgr.Test()
			g.bonusManager.TestCatch(avatar)
		}
	}

	if g.deathInFrame {
		g.checkRoundEnd()
	}
}

func (g *Game) kill(avatar *Avatar, killer *AvatarBody, score int) {
	avatar.Die(killer)
	avatar.AddScore(score)
	g.deaths = append(g.deaths, avatar)
	g.deathInFrame = true
}

// RemoveAvatar retires an avatar entirely (its player left the room).
func (g *Game) RemoveAvatar(avatar *Avatar) {
	idx := -1
	for i, a := range g.avatars {
		if a == avatar {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	avatar.Die(nil)
	avatar.Destroy()
	g.avatars = append(g.avatars[:idx], g.avatars[idx+1:]...)
	g.Events.Emit(EvPlayerLeave{Player: avatar.Player()})
	g.checkRoundEnd()
}

// isWon reports the game's terminal state: nil (play on), true (boxed
// interface holding bool, draw/abandon), or the winning *Avatar.
func (g *Game) isWon() interface{} {
	present := g.presentCount()
	if present <= 0 {
		return true
	}
	if len(g.avatars) > 1 && present <= 1 {
		return true
	}

	var qualifying []*Avatar
	for _, a := range g.avatars {
		if a.Present && a.Score >= g.maxScore {
			qualifying = append(qualifying, a)
		}
	}
	switch len(qualifying) {
	case 0:
		return nil
	case 1:
		return qualifying[0]
	default:
		sortAvatarsByScore(qualifying)
		if qualifying[0].Score == qualifying[1].Score {
			return nil
		}
		return qualifying[0]
	}
}

func sortAvatarsByScore(avatars []*Avatar) {
	for i := 1; i < len(avatars); i++ {
		for j := i; j > 0 && avatars[j].Score > avatars[j-1].Score; j-- {
			avatars[j], avatars[j-1] = avatars[j-1], avatars[j]
		}
	}
}

// SortAvatars returns the game's avatars ordered by descending score.
func (g *Game) SortAvatars() []*Avatar {
	out := g.Avatars()
	sortAvatarsByScore(out)
	return out
}

func (g *Game) checkRoundEnd() {
	if !g.inRound {
		return
	}
	if len(g.AliveAvatars()) > 1 {
		return
	}
	g.EndRound()
}

func (g *Game) resolveScores() {
	alive := g.AliveAvatars()
	var winner *Avatar
	switch {
	case len(g.avatars) == 1:
		winner = g.avatars[0]
	case len(alive) == 1:
		winner = alive[0]
	}
	if winner != nil {
		bonus := len(g.avatars) - 1
		if bonus < 1 {
			bonus = 1
		}
		winner.AddScore(bonus)
		g.roundWinner = winner
	}
	for _, a := range g.avatars {
		a.ResolveScore()
	}
}

// ClearTrails empties and reactivates the collision world, used by the
// game-clear bonus.
func (g *Game) ClearTrails() {
	g.world.Clear()
	g.world.Activate()
	g.Events.Emit(EvGameClear{})
}

func (g *Game) setSize(size float64) {
	g.size = size
	g.world = spatial.NewWorld(size, 0)
	g.bonusManager.SetSize()
}

func (g *Game) setBorderless(borderless bool) {
	if borderless == g.borderless {
		return
	}
	g.borderless = borderless
	g.Events.Emit(EvBorderless{Borderless: borderless})
}

func (g *Game) onRoundNew() {
	g.Events.Emit(EvRoundNew{})

	g.borderless = false
	g.bonusManager.Clear()
	for _, a := range g.avatars {
		a.Clear()
	}
	g.roundWinner = nil
	g.world.Clear()
	g.deaths = nil
	g.bonusStack.Clear()

	for _, a := range g.avatars {
		if !a.Present {
			g.deaths = append(g.deaths, a)
			continue
		}
		x, y := g.world.GetRandomPosition(a.Radius(), spawnMargin)
		angle := g.world.GetRandomDirection(x, y, spawnAngleMargin)
		a.SetPosition(x, y)
		a.SetAngle(angle)
	}
}

func (g *Game) onRoundEnd() {
	g.resolveScores()
	g.Events.Emit(EvRoundEnd{Winner: g.roundWinner})
}

// NewRound begins a warmup countdown before Start, unless a round is
// already in progress. delay of 0 uses the default warmup time.
func (g *Game) NewRound(delay time.Duration) {
	g.started = true
	if g.inRound {
		return
	}
	g.inRound = true
	g.onRoundNew()

	if delay <= 0 {
		delay = warmupTime
	}
	g.launchCancel = g.After(delay, g.Start)
}

// EndRound closes out the current round and schedules warmdown before the
// next round (or game end) begins.
func (g *Game) EndRound() {
	if !g.inRound {
		return
	}
	g.inRound = false
	g.onRoundEnd()
	g.endCancel = g.After(warmdownTime, g.Stop)
}

// End stops the game entirely, reporting whether it was running. Safe to
// call whether or not the frame loop has already been halted via Stop —
// onStop calls this directly once isWon is true, so End must not route
// back through Stop (that would re-enter onStop and recurse).
func (g *Game) End() bool {
	if !g.started {
		return false
	}
	g.started = false
	wasRunning := g.running
	if wasRunning {
		g.running = false
		g.Events.Emit(EvGameStop{})
		g.bonusManager.Stop()
	}
	g.Events.Emit(EvGameEnd{})
	g.avatars = nil
	g.world.Clear()
	return wasRunning
}

// GameSnapshot is the public serialization of a game's identity and
// standings (spec.md §6).
type GameSnapshot struct {
	Players  []AvatarSnapshot `json:"players"`
	MaxScore int              `json:"maxScore"`
}

// Serialize returns the game's current standings snapshot.
func (g *Game) Serialize() GameSnapshot {
	snap := GameSnapshot{MaxScore: g.maxScore}
	for _, a := range g.avatars {
		snap.Players = append(snap.Players, a.Serialize())
	}
	return snap
}
