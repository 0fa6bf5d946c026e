package game

import "math/rand"

const (
	holeDistance  = 5.0
	printDistance = 60.0
)

// PrintManager drives the intermittent gap-in-trail state machine
// (spec.md §4.4): while active it toggles printing on and off at
// randomized distances, producing the broken-line look of a trail.
type PrintManager struct {
	avatar *Avatar

	active       bool
	lastX, lastY float64
	distance     float64
}

func newPrintManager(avatar *Avatar) *PrintManager {
	return &PrintManager{avatar: avatar}
}

// Start begins the print/gap cycle, snapshotting the avatar's current
// position as the origin of the first segment.
func (pm *PrintManager) Start() {
	if pm.active {
		return
	}
	pm.active = true
	pm.lastX, pm.lastY = pm.avatar.X, pm.avatar.Y
	pm.setPrinting(true)
}

// Stop ends the cycle and clears any pending gap/segment state.
func (pm *PrintManager) Stop() {
	if !pm.active {
		return
	}
	pm.active = false
	pm.setPrinting(false)
	pm.Clear()
}

// Test consumes the distance the avatar travelled since the last sample
// and toggles printing when the current segment is exhausted. Called
// once per tick from Game.update after collision resolution.
func (pm *PrintManager) Test() {
	if !pm.active {
		return
	}
	travelled := pm.avatar.getDistance(pm.lastX, pm.lastY)
	pm.distance -= travelled
	pm.lastX, pm.lastY = pm.avatar.X, pm.avatar.Y
	if pm.distance <= 0 {
		pm.toggle()
	}
}

func (pm *PrintManager) toggle() {
	pm.setPrinting(!pm.avatar.printing)
}

func (pm *PrintManager) setPrinting(printing bool) {
	pm.avatar.setPrinting(printing)
	pm.distance = pm.randomDistance()
}

func (pm *PrintManager) randomDistance() float64 {
	if pm.avatar.printing {
		return printDistance * (0.3 + rand.Float64()*0.7)
	}
	return holeDistance * (0.8 + rand.Float64()*0.5)
}

// Clear resets the manager to its idle state without emitting anything.
func (pm *PrintManager) Clear() {
	pm.active = false
	pm.distance = 0
	pm.lastX, pm.lastY = 0, 0
}
