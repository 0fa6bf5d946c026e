package game

// AvatarEvent is the discriminated union of everything an Avatar can
// publish on its Events topic (spec.md §4.2 "Observable events").
type AvatarEvent interface{ avatarEvent() }

type EvPosition struct{ Avatar *Avatar }
type EvAngle struct{ Avatar *Avatar }
type EvProperty struct {
	Avatar   *Avatar
	Property Property
	Value    interface{}
}
type EvPoint struct {
	Avatar    *Avatar
	X, Y      float64
	Important bool
}
type EvScore struct{ Avatar *Avatar }
type EvRoundScore struct{ Avatar *Avatar }
type EvDie struct {
	Avatar *Avatar
	Killer *Avatar
	Old    *bool
}

func (EvPosition) avatarEvent()   {}
func (EvAngle) avatarEvent()      {}
func (EvProperty) avatarEvent()   {}
func (EvPoint) avatarEvent()      {}
func (EvScore) avatarEvent()      {}
func (EvRoundScore) avatarEvent() {}
func (EvDie) avatarEvent()        {}

// GameEvent is the discriminated union of everything a Game publishes
// (spec.md §4.8, consumed by the game controller).
type GameEvent interface{ gameEvent() }

type EvGameStart struct{}
type EvGameStop struct{}
type EvGameEnd struct{}
type EvGameClear struct{}
type EvPlayerLeave struct{ Player PlayerRef }
type EvRoundNew struct{}
type EvRoundEnd struct{ Winner *Avatar }
type EvBorderless struct{ Borderless bool }

func (EvGameStart) gameEvent()   {}
func (EvGameStop) gameEvent()    {}
func (EvGameEnd) gameEvent()     {}
func (EvGameClear) gameEvent()   {}
func (EvPlayerLeave) gameEvent() {}
func (EvRoundNew) gameEvent()    {}
func (EvRoundEnd) gameEvent()    {}
func (EvBorderless) gameEvent()  {}

// BonusManagerEvent is published by a Manager on spawn/pickup.
type BonusManagerEvent interface{ bonusManagerEvent() }

type EvBonusPop struct{ Bonus *Bonus }
type EvBonusClear struct{ Bonus *Bonus }

func (EvBonusPop) bonusManagerEvent()   {}
func (EvBonusClear) bonusManagerEvent() {}

// BonusStackEvent is published by a Stack whenever its active set changes.
type BonusStackEvent interface{ bonusStackEvent() }

type EvStackChange struct {
	Target interface{} // *Avatar or *Game
	Method string       // "add" | "remove"
	Bonus  *Bonus
}

func (EvStackChange) bonusStackEvent() {}
