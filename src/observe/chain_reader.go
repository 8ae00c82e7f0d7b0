package observe

import (
	"context"

	"github.com/solignition/ignitor/src/utils/solana"
)

// Reads loan accounts straight from the node.
type RpcChainReader struct {
	client  *solana.Client
	program solana.PublicKey
}

func NewRpcChainReader(client *solana.Client, program solana.PublicKey) *RpcChainReader {
	return &RpcChainReader{client: client, program: program}
}

func (self *RpcChainReader) GetLoan(ctx context.Context, loanID uint64) (out *solana.LoanAccount, err error) {
	address, err := solana.LoanAddress(self.program, loanID)
	if err != nil {
		return nil, err
	}

	info, err := self.client.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}

	return solana.DecodeLoanAccount(info.Data)
}

func (self *RpcChainReader) GetSlot(ctx context.Context) (uint64, error) {
	return self.client.GetSlot(ctx)
}
