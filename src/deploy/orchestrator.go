package deploy

import (
	"errors"
	"time"

	"github.com/solignition/ignitor/src/binaries"
	"github.com/solignition/ignitor/src/observe"
	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/model"
	"github.com/solignition/ignitor/src/utils/monitoring"
	"github.com/solignition/ignitor/src/utils/task"

	"github.com/cenkalti/backoff/v4"
)

// Drives each loan through its state machine. Consumes the normalized
// event stream from both observer paths, both are equally authoritative,
// deduplication relies only on the persisted record status.
type Orchestrator struct {
	*task.Task

	store         Store
	fetcher       binaries.Fetcher
	binaries      *binaries.Store
	deployer      Deployer
	monitor       monitoring.Monitor
	input         chan *observe.Event
	notifications chan *StatusNotification

	locks *loanLocks
}

func NewOrchestrator(config *config.Config) (self *Orchestrator) {
	self = new(Orchestrator)

	self.locks = newLoanLocks()

	self.Task = task.NewTask(config, "orchestrator").
		WithSubtaskFunc(self.run).
		WithWorkerPool(config.Deployer.MaxWorkers)

	return
}

func (self *Orchestrator) WithStore(store Store) *Orchestrator {
	self.store = store
	return self
}

func (self *Orchestrator) WithFetcher(fetcher binaries.Fetcher) *Orchestrator {
	self.fetcher = fetcher
	return self
}

func (self *Orchestrator) WithBinaries(binaries *binaries.Store) *Orchestrator {
	self.binaries = binaries
	return self
}

func (self *Orchestrator) WithDeployer(deployer Deployer) *Orchestrator {
	self.deployer = deployer
	return self
}

func (self *Orchestrator) WithMonitor(monitor monitoring.Monitor) *Orchestrator {
	self.monitor = monitor
	return self
}

func (self *Orchestrator) WithInputChannel(input chan *observe.Event) *Orchestrator {
	self.input = input
	return self
}

// Optional, nil channel disables notifications
func (self *Orchestrator) WithNotificationsChannel(notifications chan *StatusNotification) *Orchestrator {
	self.notifications = notifications
	return self
}

func (self *Orchestrator) run() error {
	for {
		select {
		case <-self.StopChannel:
			self.Log.Debug("Task stopped")
			return nil
		case event := <-self.input:
			self.Workers.Submit(func() {
				self.handle(event)
			})
		}
	}
}

// Both detection paths can fire for the same loan concurrently, the
// per-loan lock serializes them so the guard and the transition it
// guards are atomic.
func (self *Orchestrator) handle(event *observe.Event) {
	unlock := self.locks.Lock(event.LoanID)
	defer unlock()

	switch event.Kind {
	case observe.EventKindLoanRequested:
		self.processDeployment(event)
	case observe.EventKindLoanRecovered, observe.EventKindLoanExpired:
		self.processRecovery(event)
	default:
		self.Log.WithField("kind", event.Kind).Error("Unknown event kind")
	}
}

func (self *Orchestrator) processDeployment(event *observe.Event) {
	log := self.Log.WithField("loan_id", event.LoanID)

	record, err := self.store.Get(self.Ctx, event.LoanID)
	if err != nil {
		self.monitor.GetReport().Deployer.Errors.DbUpdate.Inc()
		log.WithError(err).Error("Failed to load deployment record")
		return
	}

	// A record in any non-failed state means the event was already
	// handled, only failed deployments are retriggered
	if record != nil && record.Status != model.DeploymentStatusFailed {
		log.WithField("status", record.Status).Debug("Loan already handled, skipping")
		return
	}

	if record == nil {
		record = &model.Deployment{
			LoanID:    event.LoanID,
			Borrower:  event.Borrower,
			Principal: event.Principal,
		}
		self.monitor.GetReport().Deployer.State.TotalDeployments.Inc()
	}

	record.Status = model.DeploymentStatusPending
	record.Error = ""
	if !self.persist(record) {
		return
	}

	start := time.Now()
	err = task.NewRetry().
		WithContext(self.Ctx).
		WithMaxRetries(self.Config.Deployer.MaxRetries).
		WithBaseDelay(self.Config.Deployer.RetryBaseDelay).
		WithOnError(func(err error, duration time.Duration) {
			self.monitor.GetReport().Deployer.State.DeploymentRetries.Inc()
			log.WithError(err).
				WithField("retry_in", duration).
				Warn("Deployment attempt failed, retrying")
		}).
		Run(func() error {
			return self.attempt(record, event)
		})
	if err != nil {
		self.monitor.GetReport().Deployer.State.DeploymentsFailed.Inc()
		log.WithError(err).Error("Deployment failed, giving up")
		self.fail(record, err)
		return
	}

	self.monitor.GetReport().Deployer.State.DeploymentsSucceeded.Inc()
	self.monitor.ObserveDeploymentDuration(time.Since(start))
	log.WithField("program_id", record.ProgramID).Info("Loan deployed")
}

// One deployment attempt. Every persisted transition happens before the
// next step starts, a crash resumes from the last persisted status when
// the triggering event is re-observed.
func (self *Orchestrator) attempt(record *model.Deployment, event *observe.Event) (err error) {
	errCounters := &self.monitor.GetReport().Deployer.Errors

	record.Status = model.DeploymentStatusDeploying
	if !self.persist(record) {
		return errPersistFailed
	}

	binary, err := self.fetcher.FetchBinary(self.Ctx, event.LoanID, event.Borrower)
	if err != nil {
		errCounters.BinaryFetch.Inc()
		return err
	}

	err = self.binaries.Validate(binary)
	if err != nil {
		errCounters.BinaryValidation.Inc()
		// Retrying an invalid binary cannot succeed
		return backoff.Permanent(err)
	}

	record.BinaryHash, err = self.binaries.Store(event.LoanID, binary)
	if err != nil {
		return err
	}
	if !self.persist(record) {
		return errPersistFailed
	}

	loanID, err := observe.ParseLoanID(event.LoanID)
	if err != nil {
		return backoff.Permanent(err)
	}

	result, err := self.deployer.Deploy(self.Ctx, loanID, binary)
	if err != nil {
		errCounters.DeployTx.Inc()
		return err
	}

	record.ProgramID = result.ProgramID.String()
	record.BufferAccount = result.BufferAccount.String()
	record.DeployTxSignature = result.Signature
	if !self.persist(record) {
		return errPersistFailed
	}

	signature, err := self.deployer.RegisterDeployed(self.Ctx, loanID, result.ProgramID)
	if err != nil {
		errCounters.RegisterTx.Inc()
		return err
	}

	record.SetDeployedTxSignature = signature
	record.Status = model.DeploymentStatusDeployed
	record.Error = ""
	if !self.persist(record) {
		return errPersistFailed
	}

	return nil
}

var errPersistFailed = errors.New("failed to persist deployment record")

func (self *Orchestrator) persist(record *model.Deployment) bool {
	err := self.store.Put(self.Ctx, record)
	if err != nil {
		self.monitor.GetReport().Deployer.Errors.DbUpdate.Inc()
		self.Log.WithError(err).
			WithField("loan_id", record.LoanID).
			Error("Failed to persist deployment record")
		return false
	}
	self.notify(record)
	return true
}

func (self *Orchestrator) fail(record *model.Deployment, cause error) {
	record.Status = model.DeploymentStatusFailed
	record.Error = cause.Error()
	self.persist(record)
}

func (self *Orchestrator) notify(record *model.Deployment) {
	if self.notifications == nil {
		return
	}

	notification := &StatusNotification{
		LoanID:    record.LoanID,
		Status:    record.Status,
		ProgramID: record.ProgramID,
		Error:     record.Error,
		Timestamp: time.Now().Unix(),
	}

	select {
	case self.notifications <- notification:
	default:
		self.Log.WithField("loan_id", record.LoanID).
			Warn("Notification queue full, dropping status notification")
	}
}
