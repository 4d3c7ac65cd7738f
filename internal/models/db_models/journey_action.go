package db_models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JourneyActionType string

const (
	ActionPickupPerson  JourneyActionType = "pickup_person"
	ActionDropoffPerson JourneyActionType = "dropoff_person"
	ActionPickupItem    JourneyActionType = "pickup_item"
	ActionDropoffItem   JourneyActionType = "dropoff_item"
	ActionAssignTask    JourneyActionType = "assign_task"
	ActionWait          JourneyActionType = "wait"
	ActionOther         JourneyActionType = "other"
)

type JourneyActionStatus string

const (
	ActionStatusPending    JourneyActionStatus = "pending"
	ActionStatusConfigured JourneyActionStatus = "configured"
	ActionStatusInProgress JourneyActionStatus = "in_progress"
	ActionStatusCompleted  JourneyActionStatus = "completed"
	ActionStatusCancelled  JourneyActionStatus = "cancelled"
)

type JourneyAction struct {
	BaseModel
	StopID          uuid.UUID           `gorm:"index"`
	Type            JourneyActionType   `gorm:"type:varchar(16)"`
	Details         datatypes.JSON      `gorm:"type:jsonb;default:'{}'"`
	Status          JourneyActionStatus `gorm:"type:varchar(16);default:pending"`
	LinkedRequestID *uuid.UUID
}

// RecipientContext identifies who a pickup or delivery is for when it is not
// the acting requester.
type RecipientContext struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Notes   string `json:"notes,omitempty"`
}

// ActionDetails is the per-type payload of a JourneyAction. One concrete
// struct exists per JourneyActionType so the finalization engine can switch
// exhaustively instead of poking at loose JSON fields.
type ActionDetails interface {
	ActionType() JourneyActionType
	// Describe renders the payload as a sentence fragment for the analysis
	// context text.
	Describe() string
	// EntityBag extracts the structured fields the analysis gateway should
	// see, and which survive as-is on the fallback path.
	EntityBag() map[string]string
	// RecipientInfo is non-nil when the action is on behalf of someone else.
	RecipientInfo() *RecipientContext
}

type PickupPersonDetails struct {
	PassengerCount int               `json:"passenger_count"`
	LuggageCount   int               `json:"luggage_count"`
	Notes          string            `json:"notes,omitempty"`
	ForSomeoneElse bool              `json:"for_someone_else"`
	Recipient      *RecipientContext `json:"recipient,omitempty"`
}

func (d PickupPersonDetails) ActionType() JourneyActionType { return ActionPickupPerson }

func (d PickupPersonDetails) Describe() string {
	desc := fmt.Sprintf("Pick up %d passenger(s) with %d luggage item(s)", d.PassengerCount, d.LuggageCount)
	if d.Notes != "" {
		desc += ". " + d.Notes
	}
	return desc
}

func (d PickupPersonDetails) EntityBag() map[string]string {
	return map[string]string{
		"passenger_count": fmt.Sprintf("%d", d.PassengerCount),
		"luggage_count":   fmt.Sprintf("%d", d.LuggageCount),
	}
}

func (d PickupPersonDetails) RecipientInfo() *RecipientContext {
	if d.ForSomeoneElse {
		return d.Recipient
	}
	return nil
}

type DropoffPersonDetails struct {
	PassengerCount int    `json:"passenger_count"`
	Notes          string `json:"notes,omitempty"`
}

func (d DropoffPersonDetails) ActionType() JourneyActionType { return ActionDropoffPerson }

func (d DropoffPersonDetails) Describe() string {
	return fmt.Sprintf("Drop off %d passenger(s)", d.PassengerCount)
}

func (d DropoffPersonDetails) EntityBag() map[string]string {
	return map[string]string{"passenger_count": fmt.Sprintf("%d", d.PassengerCount)}
}

func (d DropoffPersonDetails) RecipientInfo() *RecipientContext { return nil }

type PickupItemDetails struct {
	ItemDescription string            `json:"item_description"`
	Quantity        int               `json:"quantity"`
	Unit            string            `json:"unit,omitempty"`
	Fragile         bool              `json:"fragile"`
	FromSomeoneElse bool              `json:"from_someone_else"`
	Recipient       *RecipientContext `json:"recipient,omitempty"`
}

func (d PickupItemDetails) ActionType() JourneyActionType { return ActionPickupItem }

func (d PickupItemDetails) Describe() string {
	unit := d.Unit
	if unit == "" {
		unit = "unit(s)"
	}
	desc := fmt.Sprintf("Pick up %d %s of %s", d.Quantity, unit, d.ItemDescription)
	if d.Fragile {
		desc += " (fragile)"
	}
	return desc
}

func (d PickupItemDetails) EntityBag() map[string]string {
	bag := map[string]string{
		"item":     d.ItemDescription,
		"quantity": fmt.Sprintf("%d", d.Quantity),
	}
	if d.Unit != "" {
		bag["unit"] = d.Unit
	}
	if d.Fragile {
		bag["fragile"] = "true"
	}
	return bag
}

func (d PickupItemDetails) RecipientInfo() *RecipientContext {
	if d.FromSomeoneElse {
		return d.Recipient
	}
	return nil
}

type DropoffItemDetails struct {
	ItemDescription string `json:"item_description"`
	Notes           string `json:"notes,omitempty"`
}

func (d DropoffItemDetails) ActionType() JourneyActionType { return ActionDropoffItem }

func (d DropoffItemDetails) Describe() string {
	return "Drop off " + d.ItemDescription
}

func (d DropoffItemDetails) EntityBag() map[string]string {
	return map[string]string{"item": d.ItemDescription}
}

func (d DropoffItemDetails) RecipientInfo() *RecipientContext { return nil }

type AssignTaskDetails struct {
	TaskDescription  string `json:"task_description"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

func (d AssignTaskDetails) ActionType() JourneyActionType { return ActionAssignTask }

func (d AssignTaskDetails) Describe() string {
	desc := "Perform task: " + d.TaskDescription
	if d.EstimatedMinutes > 0 {
		desc += fmt.Sprintf(" (about %d minutes)", d.EstimatedMinutes)
	}
	return desc
}

func (d AssignTaskDetails) EntityBag() map[string]string {
	bag := map[string]string{"task": d.TaskDescription}
	if d.EstimatedMinutes > 0 {
		bag["estimated_minutes"] = fmt.Sprintf("%d", d.EstimatedMinutes)
	}
	return bag
}

func (d AssignTaskDetails) RecipientInfo() *RecipientContext { return nil }

type WaitDetails struct {
	WaitMinutes int    `json:"wait_minutes"`
	Reason      string `json:"reason,omitempty"`
}

func (d WaitDetails) ActionType() JourneyActionType { return ActionWait }

func (d WaitDetails) Describe() string {
	return fmt.Sprintf("Wait %d minutes", d.WaitMinutes)
}

func (d WaitDetails) EntityBag() map[string]string {
	return map[string]string{"wait_minutes": fmt.Sprintf("%d", d.WaitMinutes)}
}

func (d WaitDetails) RecipientInfo() *RecipientContext { return nil }

type OtherDetails struct {
	Description string `json:"description"`
}

func (d OtherDetails) ActionType() JourneyActionType { return ActionOther }

func (d OtherDetails) Describe() string { return d.Description }

func (d OtherDetails) EntityBag() map[string]string {
	return map[string]string{"description": d.Description}
}

func (d OtherDetails) RecipientInfo() *RecipientContext { return nil }

// DecodeActionDetails unmarshals a jsonb payload into the variant matching
// the action type.
func DecodeActionDetails(t JourneyActionType, raw datatypes.JSON) (ActionDetails, error) {
	data := []byte(raw)
	if len(strings.TrimSpace(string(data))) == 0 {
		data = []byte("{}")
	}

	switch t {
	case ActionPickupPerson:
		return decodeInto[PickupPersonDetails](data)
	case ActionDropoffPerson:
		return decodeInto[DropoffPersonDetails](data)
	case ActionPickupItem:
		return decodeInto[PickupItemDetails](data)
	case ActionDropoffItem:
		return decodeInto[DropoffItemDetails](data)
	case ActionAssignTask:
		return decodeInto[AssignTaskDetails](data)
	case ActionWait:
		return decodeInto[WaitDetails](data)
	case ActionOther:
		return decodeInto[OtherDetails](data)
	default:
		return nil, fmt.Errorf("unknown action type %q", t)
	}
}

func decodeInto[T ActionDetails](data []byte) (ActionDetails, error) {
	var d T
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// EncodeActionDetails marshals a variant back into its jsonb form.
func EncodeActionDetails(d ActionDetails) (datatypes.JSON, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// DecodedDetails is a convenience wrapper for rows loaded from the database.
func (a *JourneyAction) DecodedDetails() (ActionDetails, error) {
	return DecodeActionDetails(a.Type, a.Details)
}
