package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, protocol.Pong{Type: protocol.KindPong})
}

// handleControl relays play, pause, seek, mute, unmute and syncVideo.
// Dropped commands are never reported back to the sender.
func (ctl *SignalWSController) handleControl(sid core.SessionID, data []byte) {
	var msg protocol.Control
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad control payload")
		return
	}
	// Only the server replays "playing" to joiners.
	msg.Playing = nil

	if err := ctl.Orch.OnCommand(sid, msg); err != nil {
		lvl := log.Debug()
		if !errors.Is(err, domain.ErrInvalidState) && !errors.Is(err, domain.ErrRoomNotFound) {
			lvl = log.Warn()
		}
		lvl.Err(err).Str("module", "signal").Str("sid", string(sid)).Str("type", string(msg.Type)).Msg("command dropped")
	}
}
