package models

// State is the per-user conversation state. Every multi-step flow parks the
// user in one of these between messages; transitions are persisted
// immediately so a restart resumes the conversation where it stopped.
//
// Transitions:
//
//	Idle -> SetCaptionMenu -> SetCaption -> Idle
//	Idle -> SetImageCaptionMenu -> SetImageCaptionNext -> SetImageCaption -> Idle
//	Idle -> SetReactionsMenu -> SetReactions -> Idle
//	Idle -> SetForwarderMenu -> SetForwarderTo -> Idle
//	Idle -> SettingsMenu -> ChannelSettingsMenu -> PreRemoveChannel -> Idle
//	any  -> Idle (via Home/Cancel/Reset)
type State string

const (
	Idle                State = "idle"
	SetCaptionMenu      State = "set caption menu"
	SetCaption          State = "set caption"
	SetImageCaptionMenu State = "set image caption menu"
	SetImageCaption     State = "set image caption"
	SetImageCaptionNext State = "set image caption next"
	SetReactionsMenu    State = "set reactions menu"
	SetReactions        State = "set reactions"
	SetForwarderMenu    State = "set forwarder menu"
	SetForwarderTo      State = "set forwarder to"
	SettingsMenu        State = "settings menu"
	ChannelSettingsMenu State = "channel settings menu"
	PreRemoveChannel    State = "pre remove channel"
)

// AllStates lists every valid conversation state.
var AllStates = []State{
	Idle,
	SetCaptionMenu,
	SetCaption,
	SetImageCaptionMenu,
	SetImageCaption,
	SetImageCaptionNext,
	SetReactionsMenu,
	SetReactions,
	SetForwarderMenu,
	SetForwarderTo,
	SettingsMenu,
	ChannelSettingsMenu,
	PreRemoveChannel,
}

// Valid reports whether s is a known conversation state.
func (s State) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

// Direction is the anchor position of the image caption overlay.
type Direction string

const (
	North     Direction = "n"
	NorthWest Direction = "nw"
	West      Direction = "w"
	SouthWest Direction = "sw"
	South     Direction = "s"
	SouthEast Direction = "se"
	East      Direction = "e"
	NorthEast Direction = "ne"
	Center    Direction = "c"
)

// AllDirections lists the nine anchor positions.
var AllDirections = []Direction{North, NorthWest, West, SouthWest, South, SouthEast, East, NorthEast, Center}

// Valid reports whether d is one of the nine anchors.
func (d Direction) Valid() bool {
	for _, known := range AllDirections {
		if d == known {
			return true
		}
	}
	return false
}
