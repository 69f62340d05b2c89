package session

// MenuState is the primary dispatch state: every completed input line is
// routed to exactly one handler chosen by the current state.
type MenuState int

const (
	StateLoginUser MenuState = iota
	StateLoginPass
	StateMain
	StateBoard
	StateBoardPost
	StateFiles
	StateEditor
	StateCalculator
	StateWeather
	StateStocks
	StateGames
	StateUtilities
	StateSettings
	StatePassword
	StateShell
	StateHASetup
	StateHAServer
	StateHAPort
	StateHAToken
	StateHAAddLight
	StateHAControl
	StateMailMenu
	StateMailInbox
	StateMailSent
	StateMailComposeTo
	StateMailComposeSubject
	StateMailComposeBody
	StateMailKeys
	StateTheme
	StateLogout
)

// timeoutClass selects which deadline applies to a state's reads and
// what a deadline expiry means.
type timeoutClass int

const (
	// classMenu reads are bounded by the session idle limit; expiry
	// forcibly ends the session with a notice.
	classMenu timeoutClass = iota
	// classPrompt reads are bounded by the prompt deadline; expiry is a
	// cancellation, identical to submitting empty input.
	classPrompt
	// classCompose is classPrompt with the long-form deadline.
	classCompose
)

// stateSpec describes how the Run loop treats one state.
type stateSpec struct {
	render  func(*Session) error
	handle  func(*Session, string) (MenuState, error)
	class   timeoutClass
	masked  bool // echo asterisks (password entry)
	maxLen  int
	hotkeys map[byte]MenuState // checked on the first byte before the handler
}

func (s *Session) spec(st MenuState) stateSpec {
	if sp, ok := states[st]; ok {
		return sp
	}
	return states[StateMain]
}

// states is filled in handlers.go; split out so the table reads as data.
var states map[MenuState]stateSpec
