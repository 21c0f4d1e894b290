package sim

import (
	"errors"
	"fmt"

	"github.com/digestkit/digestd/pkg/models"
)

// ErrUnknownScenario rejects a scenario id no generator exists for.
var ErrUnknownScenario = errors.New("unknown scenario")

// ScenarioCarbonFiber is the built-in hardware-team demo scenario.
const ScenarioCarbonFiber = "carbon_fiber_demo"

// ValidScenario reports whether a generator exists for the scenario id.
func ValidScenario(scenarioID string) bool {
	return scenarioID == ScenarioCarbonFiber
}

// ScenarioEvents generates the event stream for a scenario. The clock
// carries across calls, so a looped run gets fresh timestamps. A non-empty
// runID prefixes every event id so repeated runs are not swallowed by
// intake dedupe.
func ScenarioEvents(scenarioID, runID string, clock *Clock) ([]models.EventEnvelope, error) {
	if scenarioID != ScenarioCarbonFiber {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, scenarioID)
	}
	return carbonFiberDemo(runID, clock), nil
}

// scenarioBuilder accumulates envelopes with shared id numbering.
type scenarioBuilder struct {
	clock  *Clock
	runID  string
	teamID string
	idx    int
	events []models.EventEnvelope
}

func (b *scenarioBuilder) eventID(kind string) string {
	id := fmt.Sprintf("Ev%s%04d", kind, b.idx)
	b.idx++
	if b.runID != "" {
		id = b.runID + "-" + id
	}
	return id
}

func (b *scenarioBuilder) message(channel, user, text string, threadTS float64) {
	ts := b.clock.Tick()
	b.events = append(b.events, models.EventEnvelope{
		EventID:   b.eventID("M"),
		EventTime: int64(ts),
		TeamID:    b.teamID,
		Type:      "event_callback",
		Event: models.InnerEvent{
			Type:     "message",
			Channel:  channel,
			User:     user,
			Text:     text,
			TS:       fmtTS(ts),
			ThreadTS: fmtTS(threadTS),
		},
	})
}

func (b *scenarioBuilder) reaction(channel, name string, itemTS float64) {
	ts := b.clock.Tick()
	b.events = append(b.events, models.EventEnvelope{
		EventID:   b.eventID("R"),
		EventTime: int64(ts),
		TeamID:    b.teamID,
		Type:      "event_callback",
		Event: models.InnerEvent{
			Type:     "reaction_added",
			Reaction: name,
			Item:     &models.ReactionItem{Channel: channel, TS: fmtTS(itemTS)},
			EventTS:  fmtTS(ts),
		},
	})
}

func (b *scenarioBuilder) edit(channel string, targetTS, threadTS float64, text string) {
	ts := b.clock.Tick()
	b.events = append(b.events, models.EventEnvelope{
		EventID:   b.eventID("E"),
		EventTime: int64(ts),
		TeamID:    b.teamID,
		Type:      "event_callback",
		Event: models.InnerEvent{
			Type:    "message",
			Subtype: "message_changed",
			Channel: channel,
			Message: &models.MessageRef{
				TS:       fmtTS(targetTS),
				Text:     text,
				ThreadTS: fmtTS(threadTS),
				Channel:  channel,
			},
		},
	})
}

func fmtTS(ts float64) string {
	return fmt.Sprintf("%.3f", ts)
}

// carbonFiberDemo is a compressed week of a drone hardware team deciding a
// chassis material change: a decision thread with an escalation, supply
// chain risk, an RF test risk, coordination items, and a late edit.
func carbonFiberDemo(runID string, clock *Clock) []models.EventEnvelope {
	b := &scenarioBuilder{clock: clock, runID: runID, teamID: "T_DEMO"}

	// Thread 1: the material decision, escalated with a reaction.
	thread1 := b.clock.Tick()
	b.message("C_DRONE_STRUCT", "U_MAYA",
		"Aluminum bracket reacts with solvent X. Proposing carbon fiber for Rev C. Decision needed by Friday or EVT build slips.",
		thread1)
	b.message("C_DRONE_STRUCT", "U_MAYA",
		"ME note: carbon fiber saves 120g but tooling cost is higher.",
		thread1)
	b.message("C_DRONE_STRUCT", "U_PRIYA",
		"PM: if we miss Friday, EVT build schedule slips by 2 weeks.",
		thread1)
	b.reaction("C_DRONE_STRUCT", "rotating_light", thread1)

	// Thread 2: supply chain constraints.
	thread2 := b.clock.Tick()
	b.message("C_DRONE_SUPPLY", "U_SAM",
		"Supply chain: Vendor A lead time 8 weeks, MOQ 500. Vendor B can do 6 weeks but higher cost.",
		thread2)
	b.message("C_DRONE_SUPPLY", "U_SAM",
		"Sourcing risk: carbon fiber fabric constrained. Alternative vendor C available.",
		thread2)

	// Thread 3: RF risk.
	thread3 := b.clock.Tick()
	b.message("C_DRONE_STRUCT", "U_MAYA",
		"RF test risk: carbon fiber near antenna mount could worsen RF; need test before DVT.",
		thread3)

	// Thread 4: coordination.
	thread4 := b.clock.Tick()
	b.message("C_DRONE_STRUCT", "U_PRIYA",
		"Build schedule: decision review tomorrow 2pm; owners <@U_MAYA> and <@U_SAM>; action list pending.",
		thread4)
	b.message("C_DRONE_STRUCT", "U_PRIYA",
		"Action items: update BOM, confirm vendor quotes, lock EVT build plan.",
		thread4)

	// A late correction to the supply root: the MOQ changed.
	b.edit("C_DRONE_SUPPLY", thread2, thread2,
		"Supply chain: Vendor A lead time 8 weeks, MOQ 600. Vendor B can do 6 weeks but higher cost.")

	return b.events
}
