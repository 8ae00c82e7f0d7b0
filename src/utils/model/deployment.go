package model

import (
	"time"
)

type DeploymentStatus string

const (
	DeploymentStatusPending    DeploymentStatus = "PENDING"
	DeploymentStatusDeploying  DeploymentStatus = "DEPLOYING"
	DeploymentStatusDeployed   DeploymentStatus = "DEPLOYED"
	DeploymentStatusRecovering DeploymentStatus = "RECOVERING"
	DeploymentStatusRecovered  DeploymentStatus = "RECOVERED"
	DeploymentStatusFailed     DeploymentStatus = "FAILED"
)

// One row per loan. The loan id doubles as the idempotency key,
// re-observed events for an existing non-failed row are no-ops.
type Deployment struct {
	LoanID                 string           `gorm:"primaryKey; not null; comment:Loan id assigned by the on-chain protocol"                         json:"loanId"`
	Borrower               string           `gorm:"not null; comment:Borrower address"                                                             json:"borrower"`
	Principal              uint64           `gorm:"not null; comment:Loan principal in lamports"                                                   json:"principal"`
	ProgramID              string           `gorm:"comment:Address of the deployed program, set once deployment lands"                             json:"programId,omitempty"`
	BufferAccount          string           `gorm:"comment:Buffer account used during the last deployment attempt"                                 json:"bufferAccount,omitempty"`
	DeployTxSignature      string           `gorm:"comment:Signature of the deploy transaction"                                                    json:"deployTxSignature,omitempty"`
	SetDeployedTxSignature string           `gorm:"comment:Signature of the register-deployed-program transaction"                                 json:"setDeployedTxSignature,omitempty"`
	RecoveryTxSignature    string           `gorm:"comment:Signature of the return-reclaimed-balance transaction"                                  json:"recoveryTxSignature,omitempty"`
	BinaryHash             string           `gorm:"comment:SHA-256 of the stored binary"                                                           json:"binaryHash,omitempty"`
	Status                 DeploymentStatus `gorm:"not null; type:deployment_status; index; comment:Current state machine position"                json:"status"`
	Error                  string           `gorm:"comment:Last failure description, cleared on successful retry"                                  json:"error,omitempty"`
	CreatedAt              time.Time        `                                                                                                      json:"createdAt"`
	UpdatedAt              time.Time        `gorm:"index:, sort:desc; comment:Time of the last update to this row"                                 json:"updatedAt"`
}

func (Deployment) TableName() string {
	return "deployments"
}

// A program was deployed for this loan and its rent hasn't been reclaimed.
// Failed recoveries stay eligible so the next expiry sweep can pick them up.
func (self *Deployment) EligibleForRecovery() bool {
	switch self.Status {
	case DeploymentStatusDeployed:
		return true
	case DeploymentStatusFailed:
		return self.ProgramID != "" && self.RecoveryTxSignature == ""
	default:
		return false
	}
}
