package report

import (
	"go.uber.org/atomic"
)

type DeployerErrors struct {
	BinaryFetch      atomic.Uint64 `json:"binary_fetch"`
	BinaryValidation atomic.Uint64 `json:"binary_validation"`
	DeployTx         atomic.Uint64 `json:"deploy_tx"`
	RegisterTx       atomic.Uint64 `json:"register_tx"`
	RecoveryTx       atomic.Uint64 `json:"recovery_tx"`
	DbUpdate         atomic.Uint64 `json:"db_update"`
}

type DeployerState struct {
	StartTimestamp atomic.Int64 `json:"start_timestamp"`

	ActiveLoans      atomic.Int64  `json:"active_loans"`
	TotalDeployments atomic.Uint64 `json:"total_deployments"`

	DeploymentsSucceeded atomic.Uint64 `json:"deployments_succeeded"`
	DeploymentsFailed    atomic.Uint64 `json:"deployments_failed"`
	DeploymentRetries    atomic.Uint64 `json:"deployment_retries"`

	RecoveriesSucceeded atomic.Uint64 `json:"recoveries_succeeded"`
	RecoveriesFailed    atomic.Uint64 `json:"recoveries_failed"`
}

type DeployerReport struct {
	State  DeployerState  `json:"state"`
	Errors DeployerErrors `json:"errors"`
}
