package main

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteSessionStart   = "/session/start"
	RouteSessionSelect  = "/session/select"
	RouteSessionClear   = "/session/clear"
	RouteSessionSubmit  = "/session/submit"
	RouteSessionCancel  = "/session/cancel"
	RouteSessionEnd     = "/session/end"
	RouteSessionReport  = "/session/report"
	RouteSession        = "/session"
	RoutePowerupDict    = "/session/powerup/dictionary"
	RoutePowerupRobot   = "/session/powerup/robot"
	RouteGames          = "/games"
	RouteGame           = "/games/:code"
	RouteGameJoin       = "/games/:code/join"
	RouteGamePay        = "/games/:code/pay"
	RouteGameStart      = "/games/:code/start"
	RouteGameScore      = "/games/:code/score"
	RouteGamePlay       = "/games/:code/play"
	RouteGameEvents     = "/games/:code/events"
	RouteGuestIdentity  = "/identity/guest"
	RouteHealth         = "/healthz"
)

// Error message constants
const (
	ErrorNoSavedSession  = "no saved session"
	ErrorNoActiveSession = "no active session"
	ErrorNotFinalized    = "round not finalized"
	ErrorBadRequest      = "malformed request"
	ErrorUnauthorized    = "missing or invalid identity token"
)

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)

type contextKey string
