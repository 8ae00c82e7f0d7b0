package observe

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/monitoring"
	"github.com/solignition/ignitor/src/utils/solana"
	"github.com/solignition/ignitor/src/utils/task"

	"github.com/patrickmn/go-cache"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Maximum websocket frame size, transaction log batches can get big
const maxWsMessageSize = 1 << 20

// Push-based detection path. Maintains a logsSubscribe websocket
// subscription filtered to the lending protocol program and turns
// matching transaction logs into normalized events.
//
// The subscription is best effort, anything missed while the
// connection is down gets picked up by the reconciler.
type Listener struct {
	*task.Task

	client  *solana.Client
	monitor monitoring.Monitor
	output  chan *Event

	// Signatures already handled in this process, the same transaction
	// can be delivered more than once around reconnects
	seenSignatures *cache.Cache
}

func NewListener(config *config.Config) (self *Listener) {
	self = new(Listener)

	self.seenSignatures = cache.New(
		config.Observer.SignatureCacheExpiration,
		config.Observer.SignatureCacheCleanup,
	)

	self.Task = task.NewTask(config, "listener").
		WithSubtaskFunc(self.run).
		WithWorkerPool(1)

	return
}

func (self *Listener) WithClient(client *solana.Client) *Listener {
	self.client = client
	return self
}

func (self *Listener) WithMonitor(monitor monitoring.Monitor) *Listener {
	self.monitor = monitor
	return self
}

func (self *Listener) WithOutputChannel(output chan *Event) *Listener {
	self.output = output
	return self
}

type logsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string          `json:"signature"`
				Err       json.RawMessage `json:"err"`
				Logs      []string        `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Reconnect loop. Each iteration holds one websocket connection until
// it breaks, then waits ReconnectDelay before dialing again.
func (self *Listener) run() error {
	for {
		if self.IsStopping.Load() {
			return nil
		}

		err := self.connectAndServe()
		if err != nil && !self.IsStopping.Load() {
			self.monitor.GetReport().Observer.Errors.SubscriptionDropped.Inc()
			self.Log.WithError(err).Warn("Subscription dropped, reconnecting")
		}

		select {
		case <-self.StopChannel:
			self.Log.Debug("Task stopped")
			return nil
		case <-time.After(self.Config.Observer.ReconnectDelay):
		}
	}
}

func (self *Listener) connectAndServe() (err error) {
	conn, _, err := websocket.Dial(self.Ctx, self.Config.Solana.WsUrl, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	conn.SetReadLimit(maxWsMessageSize)

	err = self.subscribe(conn)
	if err != nil {
		return err
	}

	self.Log.WithField("url", self.Config.Solana.WsUrl).Info("Subscribed to program logs")

	for {
		var notification logsNotification
		err = wsjson.Read(self.Ctx, conn, &notification)
		if err != nil {
			return err
		}

		if notification.Method != "logsNotification" {
			continue
		}

		self.handleNotification(&notification)
	}
}

func (self *Listener) subscribe(conn *websocket.Conn) (err error) {
	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []interface{}{
			map[string]interface{}{
				"mentions": []string{self.Config.Solana.ProgramAddress},
			},
			map[string]interface{}{
				"commitment": self.Config.Solana.Commitment,
			},
		},
	}

	err = wsjson.Write(self.Ctx, conn, request)
	if err != nil {
		return err
	}

	var response struct {
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	err = wsjson.Read(self.Ctx, conn, &response)
	if err != nil {
		return err
	}

	if len(response.Error) != 0 {
		return errors.New("logsSubscribe rejected: " + string(response.Error))
	}

	return nil
}

func (self *Listener) handleNotification(notification *logsNotification) {
	value := &notification.Params.Result.Value

	// Failed transactions don't change protocol state
	if len(value.Err) != 0 && string(value.Err) != "null" {
		return
	}

	// Cheap marker check on the pushed logs before the transaction is fetched
	if !solana.LogsMentionEvent(value.Logs, solana.EventNameLoanRequested) &&
		!solana.LogsMentionEvent(value.Logs, solana.EventNameLoanRecovered) {
		return
	}

	if self.seenSignatures.Add(value.Signature, struct{}{}, cache.DefaultExpiration) != nil {
		// Already handled
		return
	}

	slot := notification.Params.Result.Context.Slot
	signature := value.Signature

	self.Workers.Submit(func() {
		self.process(slot, signature)
	})
}

// Fetches the authoritative transaction logs and decodes the protocol
// event. Pushed log batches may be truncated by the node, so the
// transaction itself is the source of truth.
func (self *Listener) process(slot uint64, signature string) {
	if self.IsStopping.Load() {
		return
	}

	logs, err := self.client.GetTransactionLogs(self.Ctx, signature)
	if err != nil {
		self.monitor.GetReport().Observer.Errors.EventDecode.Inc()
		self.Log.WithError(err).
			WithField("signature", signature).
			Warn("Failed to fetch transaction logs")
		return
	}

	event, err := self.decode(logs, slot, signature)
	if err != nil {
		if !errors.Is(err, solana.ErrNoMatchingEvent) {
			self.monitor.GetReport().Observer.Errors.EventDecode.Inc()
			self.Log.WithError(err).
				WithField("signature", signature).
				Warn("Failed to decode event, skipping transaction")
		}
		return
	}

	self.emit(event)
}

func (self *Listener) decode(logs []string, slot uint64, signature string) (out *Event, err error) {
	requested, err := solana.DecodeLoanRequestedEvent(logs)
	if err == nil {
		return &Event{
			Kind:            EventKindLoanRequested,
			Source:          EventSourceSubscription,
			LoanID:          formatLoanID(requested.LoanID),
			Borrower:        requested.Borrower.String(),
			Principal:       requested.Principal,
			Duration:        requested.Duration,
			InterestRateBps: requested.InterestRateBps,
			AdminFee:        requested.AdminFee,
			Slot:            slot,
			Signature:       signature,
		}, nil
	}
	if !errors.Is(err, solana.ErrNoMatchingEvent) {
		return nil, err
	}

	recovered, err := solana.DecodeLoanRecoveredEvent(logs)
	if err != nil {
		return nil, err
	}

	return &Event{
		Kind:      EventKindLoanRecovered,
		Source:    EventSourceSubscription,
		LoanID:    formatLoanID(recovered.LoanID),
		Slot:      slot,
		Signature: signature,
	}, nil
}

// Recovery and expiry events are droppable, the reconciler re-derives
// them from on-chain state and persisted records. A loanRequested has
// no record yet and nothing else would rediscover it, so it blocks on
// a full queue even at the price of falling behind the node.
func (self *Listener) emit(event *Event) {
	if event.Kind == EventKindLoanRequested {
		select {
		case self.output <- event:
			self.monitor.GetReport().Observer.State.EventsPushed.Inc()
		case <-self.StopChannel:
		}
		return
	}

	select {
	case self.output <- event:
		self.monitor.GetReport().Observer.State.EventsPushed.Inc()
	default:
		self.monitor.GetReport().Observer.Errors.QueueOverflow.Inc()
		self.Log.WithField("loan_id", event.LoanID).
			WithField("kind", event.Kind).
			Warn("Event queue full, dropping pushed event")
	}
}
