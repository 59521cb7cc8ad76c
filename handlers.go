package main

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"wordstake/internal/game"
	"wordstake/internal/letters"
	"wordstake/internal/multiplayer"
	"wordstake/internal/powerup"
)

// sessionView is the JSON surface of a round.
type sessionView struct {
	Status           string           `json:"status"`
	Letters          []letters.Tile   `json:"letters"`
	StartedAt        int64            `json:"startedAt,omitempty"`
	DurationSeconds  int              `json:"durationSeconds"`
	RemainingSeconds int              `json:"remainingSeconds"`
	CurrentWord      []int            `json:"currentWord"`
	StagedWord       string           `json:"stagedWord"`
	FoundWords       []game.FoundWord `json:"foundWords"`
	TotalScore       int              `json:"totalScore"`
	Report           *game.Report     `json:"report,omitempty"`
}

func viewOf(sess *game.Session) sessionView {
	view := sessionView{
		Status:           sess.Status(),
		Letters:          sess.Letters(),
		DurationSeconds:  int(sess.Duration().Seconds()),
		RemainingSeconds: int(sess.Remaining(time.Now()).Seconds()),
		CurrentWord:      sess.CurrentWord(),
		StagedWord:       sess.StagedWord(),
		FoundWords:       sess.FoundWords(),
		TotalScore:       sess.TotalScore(),
		Report:           sess.Report(),
	}
	if !sess.StartedAt().IsZero() {
		view.StartedAt = sess.StartedAt().UnixMilli()
	}
	if view.CurrentWord == nil {
		view.CurrentWord = []int{}
	}
	if view.FoundWords == nil {
		view.FoundWords = []game.FoundWord{}
	}
	return view
}

// startSessionHandler begins a fresh round for the caller's session,
// replacing any round already in memory.
func (app *App) startSessionHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)

	if old := app.activeSession(sessionID); old != nil {
		old.Cancel()
	}

	sess := game.New(app.Oracle)
	app.rememberSession(sessionID, sess)
	sess.Start(app.RoundDuration)

	if state, err := app.Profiles.Get(app.profileIdentity(c)); err == nil {
		state.ResetRound()
	}

	app.persistSession(sessionID, sess)
	c.JSON(http.StatusOK, viewOf(sess))
}

// getSessionHandler returns the current round, restoring it from its
// snapshot when the process no longer holds it in memory.
func (app *App) getSessionHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	sess, err := app.loadSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorNoSavedSession})
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

// selectTileHandler stages one tile into the current word.
func (app *App) selectTileHandler(c *gin.Context) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrorBadRequest})
		return
	}
	sessionID := app.getOrCreateSession(c)
	sess, err := app.loadSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorNoActiveSession})
		return
	}
	if err := sess.SelectTile(*req.Index); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	app.persistSession(sessionID, sess)
	c.JSON(http.StatusOK, viewOf(sess))
}

// clearSelectionHandler empties the current word buffer.
func (app *App) clearSelectionHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	sess, err := app.loadSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorNoActiveSession})
		return
	}
	sess.ClearSelection()
	app.persistSession(sessionID, sess)
	c.JSON(http.StatusOK, viewOf(sess))
}

// submitWordHandler evaluates a word submission. With no word in the body
// the staged tile selection is submitted.
func (app *App) submitWordHandler(c *gin.Context) {
	var req struct {
		Word string `json:"word"`
	}
	_ = c.ShouldBindJSON(&req)

	sessionID := app.getOrCreateSession(c)
	sess, err := app.loadSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorNoActiveSession})
		return
	}

	var event game.ScoreEvent
	if req.Word != "" {
		event, err = sess.Submit(req.Word)
	} else {
		event, err = sess.SubmitStaged()
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	app.persistSession(sessionID, sess)
	c.JSON(http.StatusOK, gin.H{"event": event, "session": viewOf(sess)})
}

// cancelSessionHandler abandons the round and clears its persisted state.
func (app *App) cancelSessionHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	if sess := app.activeSession(sessionID); sess != nil {
		sess.Cancel()
	}
	app.forgetSession(sessionID)
	c.JSON(http.StatusOK, gin.H{"status": game.StatusIdle})
}

// endSessionHandler finishes the round early and returns the report.
func (app *App) endSessionHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	sess, err := app.loadSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorNoActiveSession})
		return
	}
	report := sess.End()
	app.persistSession(sessionID, sess)
	c.JSON(http.StatusOK, gin.H{"report": report, "session": viewOf(sess)})
}

// sessionReportHandler returns the finalized report of an ended round.
func (app *App) sessionReportHandler(c *gin.Context) {
	sess, err := app.loadSession(app.getOrCreateSession(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorNoSavedSession})
		return
	}
	if sess.Status() != game.StatusEnded {
		c.JSON(http.StatusConflict, gin.H{"error": ErrorNotFinalized})
		return
	}
	c.JSON(http.StatusOK, sess.Finalize())
}

// dictionaryPowerupHandler checks the staged word against the dictionary,
// charging the progressive cost.
func (app *App) dictionaryPowerupHandler(c *gin.Context) {
	app.usePowerup(c, func(sess *game.Session, state *powerup.PlayerState) (any, error) {
		return app.Economy.UseDictionary(sess, state)
	})
}

// robotPowerupHandler asks the robot for a formable word suggestion.
func (app *App) robotPowerupHandler(c *gin.Context) {
	app.usePowerup(c, func(sess *game.Session, state *powerup.PlayerState) (any, error) {
		return app.Economy.UseRobot(sess, state)
	})
}

func (app *App) usePowerup(c *gin.Context, use func(*game.Session, *powerup.PlayerState) (any, error)) {
	sess, err := app.loadSession(app.getOrCreateSession(c))
	if err != nil || sess.Status() != game.StatusRunning {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrorNoActiveSession})
		return
	}
	state, err := app.Profiles.Get(app.profileIdentity(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile unavailable"})
		return
	}

	result, err := use(sess, state)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err := app.Profiles.Save(state); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist balances"})
		return
	}
	dictBalance, robotBalance := state.Balances()
	c.JSON(http.StatusOK, gin.H{
		"result":            result,
		"dictionaryBalance": dictBalance,
		"robotBalance":      robotBalance,
	})
}

// guestIdentityHandler mints a guest player token.
func (app *App) guestIdentityHandler(c *gin.Context) {
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DisplayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrorBadRequest})
		return
	}
	token, playerID, err := app.Issuer.IssueGuest(req.DisplayName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"playerId":    playerID,
		"displayName": req.DisplayName,
	})
}

// createGameHandler makes a new multiplayer game record.
func (app *App) createGameHandler(c *gin.Context) {
	var settings multiplayer.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrorBadRequest})
		return
	}
	validTypes := []string{multiplayer.TypeSoloPlay, multiplayer.TypeHostReward, multiplayer.TypeStakeAndPlay}
	if !lo.Contains(validTypes, settings.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized game type"})
		return
	}
	record, err := app.Coordinator.Create(settings, playerIdentity(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

// joinGameHandler adds the caller to a game. Rejoining is a no-op that
// returns the record unchanged.
func (app *App) joinGameHandler(c *gin.Context) {
	var req struct {
		DisplayName string `json:"displayName"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.DisplayName == "" {
		req.DisplayName = c.GetString(displayNameKey)
	}
	record, err := app.Coordinator.Join(c.Param("code"), playerIdentity(c), req.DisplayName)
	if err != nil {
		respondGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

// confirmPaymentHandler marks the caller's stake as paid.
func (app *App) confirmPaymentHandler(c *gin.Context) {
	record, err := app.Coordinator.ConfirmPayment(c.Param("code"), playerIdentity(c))
	if err != nil {
		respondGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

// startGameHandler moves the game to Ongoing. Host only.
func (app *App) startGameHandler(c *gin.Context) {
	record, err := app.Coordinator.Start(c.Param("code"), playerIdentity(c))
	if err != nil {
		respondGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

// submitScoreHandler records the caller's final score, exactly once.
func (app *App) submitScoreHandler(c *gin.Context) {
	var req struct {
		Score *int `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Score == nil || *req.Score < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrorBadRequest})
		return
	}
	record, err := app.Coordinator.SubmitScore(c.Param("code"), playerIdentity(c), *req.Score)
	if err != nil {
		respondGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

// deleteGameHandler terminates a game record. Host only.
func (app *App) deleteGameHandler(c *gin.Context) {
	if err := app.Coordinator.Delete(c.Param("code"), playerIdentity(c)); err != nil {
		respondGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// getGameHandler returns the current record.
func (app *App) getGameHandler(c *gin.Context) {
	record, err := app.Coordinator.Get(c.Param("code"))
	if err != nil {
		respondGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

// playStatusHandler answers the solo play request with the closed status
// vocabulary: AlreadyPlayed, GameEnded, NotStarted or ReadyToPlay.
func (app *App) playStatusHandler(c *gin.Context) {
	status, err := app.Coordinator.PlayStatus(c.Param("code"), playerIdentity(c))
	if err != nil {
		respondGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// gameEventsHandler streams full-record snapshots over SSE for a game code.
func (app *App) gameEventsHandler(c *gin.Context) {
	code := c.Param("code")
	record, err := app.Coordinator.Get(code)
	if err != nil {
		respondGameError(c, err)
		return
	}

	sub := app.Coordinator.Subscribe(code)
	defer app.Coordinator.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Current state first, then every mutation as it is published.
	c.SSEvent("record", record)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case update, ok := <-sub.Channel:
			if !ok {
				return false
			}
			c.SSEvent("record", update)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// respondGameError maps coordinator errors onto the HTTP surface.
func respondGameError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, multiplayer.ErrGameNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "GameNotFound"})
	case errors.Is(err, multiplayer.ErrGameEnded):
		c.JSON(http.StatusConflict, gin.H{"error": "GameEnded"})
	case errors.Is(err, multiplayer.ErrNotHost):
		c.JSON(http.StatusForbidden, gin.H{"error": "NotHost"})
	case errors.Is(err, multiplayer.ErrPlayerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "PlayerNotFound"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// healthHandler reports process health and load counters.
func (app *App) healthHandler(c *gin.Context) {
	app.SessionMutex.RLock()
	active := len(app.Sessions)
	app.SessionMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"env":             map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"active_sessions": active,
		"uptime":          formatUptime(time.Since(app.StartTime)),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
