package feature

// ActionType identifies how the host matched the user's input to a feature.
type ActionType string

// Action types.
const (
	ActionText   ActionType = "text"
	ActionImage  ActionType = "img"
	ActionRegex  ActionType = "regex"
	ActionOver   ActionType = "over"
	ActionFiles  ActionType = "files"
	ActionWindow ActionType = "window"
)

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	switch t {
	case ActionText, ActionImage, ActionRegex, ActionOver, ActionFiles, ActionWindow:
		return true
	}
	return false
}

// FileInfo describes one entry of a files payload.
type FileInfo struct {
	IsFile      bool
	IsDirectory bool
	Name        string
	Path        string
}

// WindowInfo describes the window a window action was triggered from.
type WindowInfo struct {
	ID      int
	Class   string
	Title   string
	X       int
	Y       int
	Width   int
	Height  int
	AppPath string
	PID     int
	App     string
}

// Action is the event the host passes to every lifecycle call.
//
// Payload is a string for text, img, regex and over actions, a []FileInfo
// for files actions and a WindowInfo for window actions.
type Action struct {
	Code    string
	Type    ActionType
	Payload any
}

// TextAction returns a text action for code.
func TextAction(code, text string) Action {
	return Action{Code: code, Type: ActionText, Payload: text}
}

// Text returns the payload of text-like actions.
func (a Action) Text() (string, bool) {
	s, ok := a.Payload.(string)
	return s, ok
}

// Files returns the payload of a files action.
func (a Action) Files() ([]FileInfo, bool) {
	f, ok := a.Payload.([]FileInfo)
	return f, ok
}

// Window returns the payload of a window action.
func (a Action) Window() (WindowInfo, bool) {
	switch w := a.Payload.(type) {
	case WindowInfo:
		return w, true
	case *WindowInfo:
		if w != nil {
			return *w, true
		}
	}
	return WindowInfo{}, false
}
