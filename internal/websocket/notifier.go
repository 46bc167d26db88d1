package websocket

import (
	"encoding/json"
	"time"

	"erpcore/internal/logger"

	"github.com/sirupsen/logrus"
)

// Event names pushed to connected clients.
const (
	EventRequestSubmitted = "request.submitted"
	EventRequestDecided   = "request.decided"
	EventStockReceived    = "stock.received"
)

// Notification is the wire payload broadcast to clients.
type Notification struct {
	Event       string    `json:"event"`
	RequestID   string    `json:"request_id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	RequesterID string    `json:"requester_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	At          time.Time `json:"at"`
}

// Notifier pushes workflow notifications through the hub. Delivery is
// best-effort: a full broadcast channel or marshal failure is logged and
// dropped, never surfaced to the workflow that triggered it.
type Notifier struct {
	hub *Hub
	log *logrus.Logger
}

func NewNotifier(hub *Hub, log *logrus.Logger) *Notifier {
	return &Notifier{hub: hub, log: log}
}

func (n *Notifier) Notify(event Notification) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.LogError(n.log, "notifier.go", "Notify", "Marshal", event.RequestID, err)
		return
	}

	select {
	case n.hub.Broadcast <- payload:
	default:
		n.log.WithFields(logrus.Fields{
			"event":      event.Event,
			"request_id": event.RequestID,
		}).Warn("notification dropped: broadcast channel full")
	}
}
