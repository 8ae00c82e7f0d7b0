package deploy

import (
	"github.com/solignition/ignitor/src/observe"
	"github.com/solignition/ignitor/src/utils/model"
	"github.com/solignition/ignitor/src/utils/solana"
)

// Recovery path, shared by loanRecovered and loanExpired events. No
// retry loop wraps it, a failed recovery stays eligible and gets picked
// up again by the next reconciliation sweep.
func (self *Orchestrator) processRecovery(event *observe.Event) {
	log := self.Log.WithField("loan_id", event.LoanID)

	record, err := self.store.Get(self.Ctx, event.LoanID)
	if err != nil {
		self.monitor.GetReport().Deployer.Errors.DbUpdate.Inc()
		log.WithError(err).Error("Failed to load deployment record")
		return
	}

	if record == nil {
		log.Debug("No deployment record for loan, nothing to recover")
		return
	}
	if !record.EligibleForRecovery() {
		log.WithField("status", record.Status).Debug("Loan not eligible for recovery, skipping")
		return
	}

	record.Status = model.DeploymentStatusRecovering
	record.Error = ""
	if !self.persist(record) {
		return
	}

	err = self.recover(record, event)
	if err != nil {
		self.monitor.GetReport().Deployer.State.RecoveriesFailed.Inc()
		self.monitor.GetReport().Deployer.Errors.RecoveryTx.Inc()
		log.WithError(err).Error("Recovery failed")
		self.fail(record, err)
		return
	}

	self.monitor.GetReport().Deployer.State.RecoveriesSucceeded.Inc()
	log.WithField("recovery_tx_signature", record.RecoveryTxSignature).Info("Loan recovered")
}

func (self *Orchestrator) recover(record *model.Deployment, event *observe.Event) (err error) {
	loanID, err := observe.ParseLoanID(event.LoanID)
	if err != nil {
		return
	}
	programID, err := solana.PublicKeyFromBase58(record.ProgramID)
	if err != nil {
		return
	}

	reclaimed, _, err := self.deployer.Close(self.Ctx, programID)
	if err != nil {
		return
	}

	signature, err := self.deployer.ReturnReclaimed(self.Ctx, loanID, reclaimed)
	if err != nil {
		return
	}

	record.RecoveryTxSignature = signature
	record.Status = model.DeploymentStatusRecovered
	if !self.persist(record) {
		return errPersistFailed
	}

	return nil
}
