// Package ws bridges WebSocket viewers onto terminal sessions: history
// replay, live output forwarding, and inbound input/resize frames.
package ws

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/swefoundry/backend/internal/infrastructure/monitoring"
	"github.com/swefoundry/backend/internal/terminal"
)

// resizePrefix marks the textual control frame `__RESIZE__ <cols> <rows>`.
const resizePrefix = "__RESIZE__"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The frontend dev server runs on a different origin.
		return true
	},
}

// Bridge attaches WebSocket connections to sessions in the registry.
type Bridge struct {
	registry *terminal.Registry
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewBridge creates a bridge over the given session registry.
func NewBridge(registry *terminal.Registry, metrics *monitoring.Metrics, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{registry: registry, metrics: metrics, logger: logger}
}

// HandleAttach upgrades GET /api/ws/:id and streams the session both ways.
// One goroutine forwards session output to the socket; the handler
// goroutine reads inbound frames. Gorilla permits one concurrent writer,
// so all writes stay on the send side.
func (b *Bridge) HandleAttach(c *gin.Context) {
	sessionID := c.Param("id")

	session, err := b.registry.Get(sessionID)

	conn, upgradeErr := upgrader.Upgrade(c.Writer, c.Request, nil)
	if upgradeErr != nil {
		b.logger.Warn("websocket upgrade failed", zap.Error(upgradeErr))
		return
	}
	defer conn.Close()

	if err != nil {
		// Distinguishable "no such session" close for the client.
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "no such session"))
		return
	}

	b.logger.Info("viewer attached", zap.String("session_id", sessionID))
	b.metrics.ViewersActive.Inc()
	defer b.metrics.ViewersActive.Dec()

	// Snapshot + subscribe is atomic inside Attach: everything produced
	// before this call is in replay, everything after flows through sink.
	replay, sink, detach := session.Attach()
	defer detach()

	for _, chunk := range replay {
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			return
		}
		b.metrics.OutputBytes.Add(float64(len(chunk)))
	}

	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		for {
			chunk, ok := sink.Next()
			if !ok {
				// Session closed or viewer detached: end the stream
				// instead of leaving the viewer hanging.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				conn.Close()
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return
			}
			b.metrics.OutputBytes.Add(float64(len(chunk)))
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		switch msgType {
		case websocket.BinaryMessage:
			b.forwardInput(session, data)
		case websocket.TextMessage:
			b.handleText(session, string(data))
		}
	}

	b.logger.Info("viewer detached", zap.String("session_id", sessionID))
	detach()
	<-sendDone
}

// handleText classifies a text frame: a well-formed resize control is
// applied to the PTY; anything else, malformed resize text included, is
// forwarded as literal input so no keystrokes are lost.
func (b *Bridge) handleText(session *terminal.Session, text string) {
	if strings.HasPrefix(text, resizePrefix) {
		if cols, rows, ok := parseResize(text); ok {
			session.Resize(cols, rows)
			return
		}
	}
	b.forwardInput(session, []byte(text))
}

func (b *Bridge) forwardInput(session *terminal.Session, data []byte) {
	// Writes to a closed session are discarded.
	if err := session.Write(data); err == nil {
		b.metrics.InputBytes.Add(float64(len(data)))
	}
}

// parseResize parses `__RESIZE__ <cols> <rows>` with decimal integers.
func parseResize(text string) (cols, rows int, ok bool) {
	fields := strings.Fields(text)
	if len(fields) != 3 || fields[0] != resizePrefix {
		return 0, 0, false
	}
	cols, err := strconv.Atoi(fields[1])
	if err != nil || cols <= 0 {
		return 0, 0, false
	}
	rows, err = strconv.Atoi(fields[2])
	if err != nil || rows <= 0 {
		return 0, 0, false
	}
	return cols, rows, true
}
