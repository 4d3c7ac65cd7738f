package db_models

import (
	"fmt"

	"github.com/google/uuid"
)

type JourneyPlanStatus string

const (
	PlanStatusDraft      JourneyPlanStatus = "draft"
	PlanStatusPlanned    JourneyPlanStatus = "planned"
	PlanStatusInProgress JourneyPlanStatus = "in_progress"
	PlanStatusCompleted  JourneyPlanStatus = "completed"
	PlanStatusCancelled  JourneyPlanStatus = "cancelled"
)

type Coordinate struct {
	Lat float64
	Lng float64
}

type JourneyPlan struct {
	BaseModel
	RequesterID uuid.UUID         `gorm:"index"`
	Title       string
	Status      JourneyPlanStatus `gorm:"type:varchar(16);default:draft"`

	Stops []JourneyStop `gorm:"foreignKey:PlanID"`
}

type JourneyStop struct {
	BaseModel
	PlanID       uuid.UUID `gorm:"index"`
	Name         string
	AddressInput string
	Lat          *float64
	Lng          *float64
	Sequence     int

	Actions []JourneyAction `gorm:"foreignKey:StopID"`
}

// Location returns nil until the stop has been geocoded.
func (s *JourneyStop) Location() *Coordinate {
	if s.Lat == nil || s.Lng == nil {
		return nil
	}
	return &Coordinate{Lat: *s.Lat, Lng: *s.Lng}
}

// StopDisplayName derives the fixed display name from a stop's position.
// The first stop is always "Origin" and the last always "Final Destination".
func StopDisplayName(index, total int) string {
	switch {
	case index == 0:
		return "Origin"
	case index == total-1:
		return "Final Destination"
	default:
		return fmt.Sprintf("Stop %d", index)
	}
}

// ReindexStops re-derives Sequence and Name for every stop from its array
// position. Must run after every structural mutation of the stop list.
func (p *JourneyPlan) ReindexStops() {
	for i := range p.Stops {
		p.Stops[i].Sequence = i
		p.Stops[i].Name = StopDisplayName(i, len(p.Stops))
	}
}

// NewJourneyPlan seeds a plan with its two mandatory stops.
func NewJourneyPlan(requesterID uuid.UUID, title string) *JourneyPlan {
	plan := &JourneyPlan{
		RequesterID: requesterID,
		Title:       title,
		Status:      PlanStatusDraft,
		Stops: []JourneyStop{
			{BaseModel: BaseModel{ID: uuid.New()}},
			{BaseModel: BaseModel{ID: uuid.New()}},
		},
	}
	plan.ReindexStops()
	return plan
}

// AddStop inserts a new stop immediately before the final stop and reindexes.
// That is the only supported insertion point.
func (p *JourneyPlan) AddStop() *JourneyStop {
	stop := JourneyStop{BaseModel: BaseModel{ID: uuid.New()}, PlanID: p.ID}
	last := len(p.Stops) - 1
	p.Stops = append(p.Stops[:last], append([]JourneyStop{stop}, p.Stops[last:]...)...)
	p.ReindexStops()
	return &p.Stops[len(p.Stops)-2]
}

// RemoveStop deletes the stop with the given id and reindexes. Returns false
// without touching the plan when the stop is missing or the plan is already
// at the two-stop floor.
func (p *JourneyPlan) RemoveStop(stopID uuid.UUID) bool {
	if len(p.Stops) <= 2 {
		return false
	}
	for i := range p.Stops {
		if p.Stops[i].ID == stopID {
			p.Stops = append(p.Stops[:i], p.Stops[i+1:]...)
			p.ReindexStops()
			return true
		}
	}
	return false
}

// FindStop returns the stop with the given id, or nil.
func (p *JourneyPlan) FindStop(stopID uuid.UUID) *JourneyStop {
	for i := range p.Stops {
		if p.Stops[i].ID == stopID {
			return &p.Stops[i]
		}
	}
	return nil
}

// UpsertAction replaces the action with the same id in place, preserving
// order, or appends when no action with that id exists on the stop.
func (s *JourneyStop) UpsertAction(action JourneyAction) {
	for i := range s.Actions {
		if s.Actions[i].ID == action.ID {
			s.Actions[i] = action
			return
		}
	}
	s.Actions = append(s.Actions, action)
}

// RemoveAction deletes the action with the given id. Absence is not an error.
func (s *JourneyStop) RemoveAction(actionID uuid.UUID) bool {
	for i := range s.Actions {
		if s.Actions[i].ID == actionID {
			s.Actions = append(s.Actions[:i], s.Actions[i+1:]...)
			return true
		}
	}
	return false
}

func (p *JourneyPlan) HasMinimumStops() bool {
	return len(p.Stops) >= 2
}

func (p *JourneyPlan) AllStopsLocated() bool {
	return len(p.UnlocatedStops()) == 0
}

func (p *JourneyPlan) AllIntermediateStopsHaveActions() bool {
	return len(p.EmptyIntermediateStops()) == 0
}

// UnlocatedStops lists the names of stops still missing a geocoded location.
func (p *JourneyPlan) UnlocatedStops() []string {
	var names []string
	for i := range p.Stops {
		if p.Stops[i].Location() == nil {
			names = append(names, p.Stops[i].Name)
		}
	}
	return names
}

// EmptyIntermediateStops lists intermediate stops with no actions attached.
// Origin and Final Destination are allowed to be empty.
func (p *JourneyPlan) EmptyIntermediateStops() []string {
	var names []string
	for i := 1; i < len(p.Stops)-1; i++ {
		if len(p.Stops[i].Actions) == 0 {
			names = append(names, p.Stops[i].Name)
		}
	}
	return names
}
