// Package signal is the websocket adapter: it authenticates the upgrade,
// owns the per-connection pumps, and routes inbound envelopes into the
// relay coordinator.
package signal

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/huddlehq/relay/internal/app/relay"
	"github.com/huddlehq/relay/internal/core"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Coordinator *relay.Coordinator
	Verifier    core.CredentialVerifier

	ReadLimit   int64
	PingPeriod  time.Duration
	SendBuffer  int
	ChatLimiter *ChatRateLimiter
}

// bearerToken extracts the credential from the token query parameter
// (the browser client's contract) or an Authorization header.
func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return after
	}
	return ""
}

// HandleWS upgrades the connection, verifies the credential, and starts
// the session. A bad credential closes the socket with a policy-violation
// code before any application message is processed.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	token := bearerToken(c.Request)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	user, err := ctl.Verifier.Verify(c.Request.Context(), token)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("credential refused")
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}

	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := newWSConn(ws, ctl.SendBuffer)
	entry := ctl.Coordinator.Attach(*user, conn)
	log.Info().Str("module", "signal").Str("user", string(user.ID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, entry, conn)
}
