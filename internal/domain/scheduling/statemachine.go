package scheduling

// Event is a lifecycle action applied to an appointment.
type Event string

const (
	EventBook       Event = "book"
	EventWalkIn     Event = "walk-in"
	EventApprove    Event = "approve"
	EventDecline    Event = "decline"
	EventCancel     Event = "cancel"
	EventReschedule Event = "reschedule"
	EventComplete   Event = "complete"
)

type transition struct {
	to     Status
	actors []Actor
}

// Allowed transitions:
//
//	(new)    --book-------> Pending   (owner)
//	(new)    --walk-in----> Approved  (staff)
//	Pending  --approve----> Approved  (staff)
//	Pending  --decline----> Cancelled (staff, reason)
//	Pending  --cancel-----> Cancelled (owner, reason)
//	Pending  --reschedule-> Pending   (owner)
//	Approved --cancel-----> Cancelled (owner|staff, reason)
//	Approved --complete---> Done      (staff)
var transitions = map[Status]map[Event]transition{
	StatusPending: {
		EventApprove:    {to: StatusApproved, actors: []Actor{ActorStaff}},
		EventDecline:    {to: StatusCancelled, actors: []Actor{ActorStaff}},
		EventCancel:     {to: StatusCancelled, actors: []Actor{ActorOwner}},
		EventReschedule: {to: StatusPending, actors: []Actor{ActorOwner}},
	},
	StatusApproved: {
		EventCancel:   {to: StatusCancelled, actors: []Actor{ActorOwner, ActorStaff}},
		EventComplete: {to: StatusDone, actors: []Actor{ActorStaff}},
	},
}

var initialStates = map[Event]transition{
	EventBook:   {to: StatusPending, actors: []Actor{ActorOwner}},
	EventWalkIn: {to: StatusApproved, actors: []Actor{ActorStaff}},
}

// Next returns the status reached when actor applies ev to an appointment in
// status from. Terminal statuses accept nothing.
func Next(from Status, ev Event, actor Actor) (Status, error) {
	t, ok := transitions[from][ev]
	if !ok || !allows(t.actors, actor) {
		return from, &TransitionError{From: from, Event: ev, Actor: actor}
	}
	return t.to, nil
}

// Initial returns the status a newly created appointment starts in.
func Initial(ev Event, actor Actor) (Status, error) {
	t, ok := initialStates[ev]
	if !ok || !allows(t.actors, actor) {
		return "", &TransitionError{From: "", Event: ev, Actor: actor}
	}
	return t.to, nil
}

// RequiresReason reports whether ev must carry a non-empty reason.
func RequiresReason(ev Event) bool {
	return ev == EventCancel || ev == EventDecline
}

func allows(actors []Actor, a Actor) bool {
	for _, x := range actors {
		if x == a {
			return true
		}
	}
	return false
}
