package observe

import (
	"errors"
	"time"

	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/model"
	"github.com/solignition/ignitor/src/utils/monitoring"
	"github.com/solignition/ignitor/src/utils/solana"
	"github.com/solignition/ignitor/src/utils/task"
)

// Pull-based detection path and the authoritative backstop for the
// subscription. Periodically walks deployment records that may need
// recovery, compares them with on-chain loan state and emits synthetic
// events for anything the push path missed.
type Reconciler struct {
	*task.Task

	deployments DeploymentLister
	chain       ChainReader
	monitor     monitoring.Monitor
	output      chan *Event
}

func NewReconciler(config *config.Config) (self *Reconciler) {
	self = new(Reconciler)

	self.Task = task.NewTask(config, "reconciler").
		WithPeriodicSubtaskFunc(config.Observer.PollInterval, self.sweep)

	return
}

func (self *Reconciler) WithDeployments(deployments DeploymentLister) *Reconciler {
	self.deployments = deployments
	return self
}

func (self *Reconciler) WithChainReader(chain ChainReader) *Reconciler {
	self.chain = chain
	return self
}

func (self *Reconciler) WithMonitor(monitor monitoring.Monitor) *Reconciler {
	self.monitor = monitor
	return self
}

func (self *Reconciler) WithOutputChannel(output chan *Event) *Reconciler {
	self.output = output
	return self
}

// One reconciliation pass. Errors are logged and counted but never
// returned, a broken node or database must not kill the timer.
func (self *Reconciler) sweep() error {
	records, err := self.deployments.ListByStatus(self.Ctx,
		model.DeploymentStatusDeployed, model.DeploymentStatusFailed)
	if err != nil {
		self.monitor.GetReport().Observer.Errors.LoanFetch.Inc()
		self.Log.WithError(err).Error("Failed to list deployments for reconciliation")
		return nil
	}

	var activeLoans int64
	for _, record := range records {
		if self.IsStopping.Load() {
			return nil
		}
		if !record.EligibleForRecovery() {
			continue
		}
		if self.reconcileRecord(record) {
			activeLoans++
		}
	}

	self.monitor.GetReport().Deployer.State.ActiveLoans.Store(activeLoans)
	self.advanceWatermark()
	return nil
}

// Returns whether the loan is still active on chain.
func (self *Reconciler) reconcileRecord(record *model.Deployment) (active bool) {
	loanID, err := ParseLoanID(record.LoanID)
	if err != nil {
		self.Log.WithField("loan_id", record.LoanID).Error("Malformed loan id in deployment record")
		return false
	}

	loan, err := self.chain.GetLoan(self.Ctx, loanID)
	if err != nil {
		if errors.Is(err, solana.ErrAccountNotFound) {
			// Loan account closed on chain, nothing left to reconcile
			return false
		}
		self.monitor.GetReport().Observer.Errors.LoanFetch.Inc()
		self.Log.WithError(err).
			WithField("loan_id", record.LoanID).
			Warn("Failed to fetch loan account")
		return false
	}

	switch loan.State {
	case solana.LoanStateActive:
		if loan.IsExpired(time.Now().Unix()) {
			self.monitor.GetReport().Observer.State.ExpiriesDetected.Inc()
			self.emit(&Event{
				Kind:   EventKindLoanExpired,
				Source: EventSourceReconciliation,
				LoanID: record.LoanID,
			})
			return false
		}
		return true

	case solana.LoanStateRecovered, solana.LoanStateRepaid:
		// Chain already considers the loan settled but the record still
		// points at a live program, the push notification was missed
		if record.RecoveryTxSignature == "" {
			self.emit(&Event{
				Kind:   EventKindLoanRecovered,
				Source: EventSourceReconciliation,
				LoanID: record.LoanID,
			})
		}
		return false

	default:
		return false
	}
}

// Unlike the push path, reconciled events are never dropped. The sweep
// re-derives state every pass so blocking here only delays the next one.
func (self *Reconciler) emit(event *Event) {
	select {
	case self.output <- event:
		self.monitor.GetReport().Observer.State.EventsReconciled.Inc()
	case <-self.StopChannel:
	}
}

func (self *Reconciler) advanceWatermark() {
	slot, err := self.chain.GetSlot(self.Ctx)
	if err != nil {
		self.Log.WithError(err).Warn("Failed to fetch current slot")
		return
	}

	watermark, err := self.deployments.GetWatermark(self.Ctx)
	if err != nil {
		self.Log.WithError(err).Warn("Failed to read watermark")
		return
	}
	if slot <= watermark {
		return
	}

	err = self.deployments.SetWatermark(self.Ctx, slot)
	if err != nil {
		self.Log.WithError(err).Warn("Failed to advance watermark")
		return
	}
	self.monitor.GetReport().Observer.State.LastProcessedSlot.Store(slot)
}
