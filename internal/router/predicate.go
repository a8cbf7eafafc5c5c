package router

import (
	"regexp"

	"channelhelper/backend/internal/models"
)

// Predicate decides whether a handler owns an event. Predicates are pure:
// they read the event (including the pre-resolved conversation state) and
// never touch the network or the database.
type Predicate interface {
	Matches(ev *Event) bool
}

// PredicateFunc adapts a function to the Predicate interface.
type PredicateFunc func(ev *Event) bool

func (f PredicateFunc) Matches(ev *Event) bool { return f(ev) }

type andPredicate struct{ preds []Predicate }

func (p andPredicate) Matches(ev *Event) bool {
	for _, pred := range p.preds {
		if !pred.Matches(ev) {
			return false
		}
	}
	return true
}

type orPredicate struct{ preds []Predicate }

func (p orPredicate) Matches(ev *Event) bool {
	for _, pred := range p.preds {
		if pred.Matches(ev) {
			return true
		}
	}
	return false
}

type notPredicate struct{ pred Predicate }

func (p notPredicate) Matches(ev *Event) bool { return !p.pred.Matches(ev) }

// And matches when all given predicates match.
func And(preds ...Predicate) Predicate { return andPredicate{preds} }

// Or matches when any given predicate matches.
func Or(preds ...Predicate) Predicate { return orPredicate{preds} }

// Not inverts a predicate.
func Not(pred Predicate) Predicate { return notPredicate{pred} }

// Any matches every event.
func Any() Predicate {
	return PredicateFunc(func(*Event) bool { return true })
}

// InChannel matches events originating in a broadcast channel.
func InChannel() Predicate {
	return PredicateFunc(func(ev *Event) bool { return ev.InChannel() })
}

// InPrivate matches events originating in a private chat.
func InPrivate() Predicate {
	return PredicateFunc(func(ev *Event) bool { return ev.InPrivate() })
}

// IsMedia matches messages carrying a media attachment.
func IsMedia() Predicate {
	return PredicateFunc(func(ev *Event) bool { return ev.IsMedia() })
}

// IsText matches non-command plain-text messages.
func IsText() Predicate {
	return PredicateFunc(func(ev *Event) bool {
		return ev.Callback == nil && ev.Message != nil && ev.Message.Text != "" && !ev.IsCommand()
	})
}

// IsForwarded matches messages forwarded from another chat.
func IsForwarded() Predicate {
	return PredicateFunc(func(ev *Event) bool { return ev.IsForwarded() })
}

// conversational reports whether the event can advance a per-user
// conversation. Channel posts carry no acting user and must never reach the
// menu or reset handlers, whatever their text says.
func conversational(ev *Event) bool {
	return ev.User != nil && ev.InPrivate()
}

// TextIs matches private-chat messages whose text equals one of the values.
func TextIs(values ...string) Predicate {
	return PredicateFunc(func(ev *Event) bool {
		return conversational(ev) && ev.Callback == nil && ev.TextEquals(false, values...)
	})
}

// TextIsFold matches like TextIs but case-insensitively.
func TextIsFold(values ...string) Predicate {
	return PredicateFunc(func(ev *Event) bool {
		return conversational(ev) && ev.Callback == nil && ev.TextEquals(true, values...)
	})
}

// Command matches private-chat /name commands for any of the given names.
func Command(names ...string) Predicate {
	return PredicateFunc(func(ev *Event) bool {
		if !conversational(ev) || !ev.IsCommand() {
			return false
		}
		cmd := ev.Command()
		for _, name := range names {
			if cmd == name {
				return true
			}
		}
		return false
	})
}

// CallbackPattern matches button presses whose payload matches the pattern.
// The pattern is compiled once at registration time.
func CallbackPattern(pattern string) Predicate {
	re := regexp.MustCompile(pattern)
	return PredicateFunc(func(ev *Event) bool {
		return ev.Callback != nil && re.MatchString(ev.CallbackData())
	})
}

// StateIs matches when the acting user's conversation state equals state.
// Only private-chat events with an acting user have a conversation.
func StateIs(state models.State) Predicate {
	return PredicateFunc(func(ev *Event) bool {
		return conversational(ev) && ev.State == state
	})
}
