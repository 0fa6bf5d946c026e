package game

import "github.com/bokeefe123/modaltron/internal/pubsub"

// gameBonusStack is the game-wide counterpart of BonusStack: it resolves
// bonuses whose affect is AffectGame (currently only the borderless
// effect) against the Game itself rather than an avatar.
type gameBonusStack struct {
	game    *Game
	bonuses []*Bonus

	Events *pubsub.Topic[BonusStackEvent]
}

func newGameBonusStack(g *Game) *gameBonusStack {
	return &gameBonusStack{game: g, Events: pubsub.NewTopic[BonusStackEvent]()}
}

func (s *gameBonusStack) Add(b *Bonus) {
	for _, existing := range s.bonuses {
		if existing == b {
			return
		}
	}
	s.bonuses = append(s.bonuses, b)
	s.resolve(nil)
	s.Events.Emit(EvStackChange{Target: s.game, Method: "add", Bonus: b})
}

func (s *gameBonusStack) Remove(b *Bonus) {
	idx := -1
	for i, existing := range s.bonuses {
		if existing == b {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	s.bonuses = append(s.bonuses[:idx], s.bonuses[idx+1:]...)
	s.resolve(b)
	s.Events.Emit(EvStackChange{Target: s.game, Method: "remove", Bonus: b})
}

func (s *gameBonusStack) Clear() { s.bonuses = nil }

func (s *gameBonusStack) resolve(removed *Bonus) {
	properties := map[Property]interface{}{}
	seed := func(p Property) {
		if _, ok := properties[p]; !ok {
			properties[p] = s.defaultProperty(p)
		}
	}
	if removed != nil {
		for _, eff := range removed.Effects() {
			seed(eff.Prop)
		}
	}
	for _, b := range s.bonuses {
		for _, eff := range b.Effects() {
			seed(eff.Prop)
			properties[eff.Prop] = appendValue(eff.Prop, properties[eff.Prop], eff.Value)
		}
	}
	for prop, val := range properties {
		s.apply(prop, val)
	}
}

func (s *gameBonusStack) defaultProperty(prop Property) interface{} {
	if prop == PropBorderless {
		return 0.0
	}
	return 0.0
}

func (s *gameBonusStack) apply(prop Property, value interface{}) {
	if prop == PropBorderless {
		s.game.setBorderless(value.(float64) > 0)
	}
}
