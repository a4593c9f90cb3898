package node

import (
	"github.com/danmuck/espblink/internal/logging"
	"github.com/danmuck/espblink/internal/observability"
	"github.com/danmuck/espblink/internal/protocol"
	"github.com/danmuck/espblink/internal/protocol/schema"
)

// handleCommand applies recognized keys. Commands are never acknowledged and
// are accepted whether or not the node is registered.
func (n *Node) handleCommand(env protocol.Envelope) {
	cmd, ok := env.Payload.(protocol.CommandPayload)
	if !ok {
		return
	}
	n.mu.Lock()
	n.commands++
	n.mu.Unlock()

	if cmd.LED == nil {
		logging.Debugf("node.Node.handleCommand no recognized keys src=%s", env.Source)
		return
	}
	level := LEDCommandLevel(*cmd.LED)
	n.setLevel(level)
	observability.RecordCommand(n.label, schema.FieldLED)
	logging.Infof("node.Node.handleCommand led=%d level=%s", *cmd.LED, level)
}
