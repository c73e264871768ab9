package offline

// Message is posted to a Worker by a controlled page or the push service.
type Message interface{ isMessage() }

// SkipWaiting asks a waiting worker to activate immediately.
type SkipWaiting struct{}

// Push delivers a push notification payload. HasData is false for a push
// without a body, in which case the default text is shown.
type Push struct {
	Body    string
	HasData bool
}

// NotificationClick reports a click on a shown notification.
// Action is the id of the chosen action, or "" for the notification body.
type NotificationClick struct {
	Action string
}

func (SkipWaiting) isMessage()       {}
func (Push) isMessage()              {}
func (NotificationClick) isMessage() {}

// Notification action ids.
const (
	ActionExplore = "explore"
	ActionClose   = "close"
)

// Event is emitted by a Worker for its host to act on.
type Event interface{ isEvent() }

// Activated is emitted once the worker controls its clients.
type Activated struct {
	CacheName string
	Deleted   []string
}

// NotificationAction is one button of a notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon"`
}

// ShowNotification asks the host to display a notification.
type ShowNotification struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon"`
	Badge   string               `json:"badge"`
	Vibrate []int                `json:"vibrate"`
	Actions []NotificationAction `json:"actions"`
}

// OpenWindow asks the host to open the app at URL.
type OpenWindow struct {
	URL string
}

// NotificationClosed reports that a clicked notification was dismissed.
type NotificationClosed struct {
	Action string
}

func (Activated) isEvent()          {}
func (ShowNotification) isEvent()   {}
func (OpenWindow) isEvent()         {}
func (NotificationClosed) isEvent() {}
