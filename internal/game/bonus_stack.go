package game

import (
	"math"

	"github.com/bokeefe123/modaltron/internal/pubsub"
)

// BonusStack aggregates the bonuses currently affecting a single avatar,
// resolving their effects into one property value per property each time
// the active set changes (spec.md §4.6).
type BonusStack struct {
	avatar  *Avatar
	bonuses []*Bonus

	Events *pubsub.Topic[BonusStackEvent]
}

func newBonusStack(a *Avatar) *BonusStack {
	return &BonusStack{avatar: a, Events: pubsub.NewTopic[BonusStackEvent]()}
}

// Add engages a newly picked-up bonus and re-resolves.
func (s *BonusStack) Add(b *Bonus) {
	for _, existing := range s.bonuses {
		if existing == b {
			return
		}
	}
	s.bonuses = append(s.bonuses, b)
	s.resolve(nil)
	s.Events.Emit(EvStackChange{Target: s.avatar, Method: "add", Bonus: b})
}

// Remove disengages an expired or cancelled bonus and re-resolves,
// forcing every property it contributed back to its default even if no
// other active bonus references it.
func (s *BonusStack) Remove(b *Bonus) {
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
	s.Events.Emit(EvStackChange{Target: s.avatar, Method: "remove", Bonus: b})
}

// Clear empties the active set without running any effect transition,
// used when an avatar dies (spec.md §4.6).
func (s *BonusStack) Clear() { s.bonuses = nil }

func (s *BonusStack) resolve(removed *Bonus) {
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

func (s *BonusStack) defaultProperty(prop Property) interface{} {
	switch prop {
	case PropPrinting:
		return 1.0
	case PropRadius:
		return 0.0
	case PropColor:
		return s.avatar.player.Color()
	case PropVelocity:
		return defaultVelocity
	case PropInverse:
		return 0.0
	case PropInvincible:
		return 0.0
	default:
		return 0.0
	}
}

func (s *BonusStack) apply(prop Property, value interface{}) {
	a := s.avatar
	switch prop {
	case PropRadius:
		a.SetRadius(defaultRadius * math.Pow(2, value.(float64)))
	case PropVelocity:
		a.SetVelocity(value.(float64))
	case PropInverse:
		a.SetInverse(int(value.(float64))%2 != 0)
	case PropInvincible:
		a.SetInvincible(value.(float64) > 0)
	case PropPrinting:
		if value.(float64) > 0 {
			a.printMgr.Start()
		} else {
			a.printMgr.Stop()
		}
	case PropColor:
		a.SetColor(value.(string))
	case PropDirectionInLoop:
		a.setDirectionInLoop(value.(bool))
	case PropAngularVelocityBase:
		a.setAngularVelocityBase(value.(float64))
	}
}

// appendValue folds value into current according to whether prop is a
// last-write-wins or additive property (spec.md §4.6).
func appendValue(prop Property, current, value interface{}) interface{} {
	if prop.replaces() {
		return value
	}
	cf, ok := current.(float64)
	if !ok {
		return value
	}
	vf, ok := value.(float64)
	if !ok {
		return current
	}
	return cf + vf
}
