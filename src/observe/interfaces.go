package observe

import (
	"context"

	"github.com/solignition/ignitor/src/utils/model"
	"github.com/solignition/ignitor/src/utils/solana"
)

// DeploymentLister is the slice of the deployment store the reconciler needs.
type DeploymentLister interface {
	ListByStatus(ctx context.Context, statuses ...model.DeploymentStatus) ([]*model.Deployment, error)
	GetWatermark(ctx context.Context) (uint64, error)
	SetWatermark(ctx context.Context, slot uint64) error
}

// ChainReader fetches the chain state the reconciler compares records against.
type ChainReader interface {
	GetLoan(ctx context.Context, loanID uint64) (*solana.LoanAccount, error)
	GetSlot(ctx context.Context) (uint64, error)
}
