package solana

// System program instruction indexes (bincode u32)
const (
	systemCreateAccount uint32 = 0
	systemTransfer      uint32 = 2
)

func NewCreateAccountInstruction(from, newAccount PublicKey, lamports, space uint64, owner PublicKey) *Instruction {
	return &Instruction{
		ProgramID: SystemProgramID,
		Accounts: []*AccountMeta{
			Meta(from).Signer().Writable(),
			Meta(newAccount).Signer().Writable(),
		},
		Data: NewEncoder().
			U32(systemCreateAccount).
			U64(lamports).
			U64(space).
			PublicKey(owner).
			Build(),
	}
}

func NewTransferInstruction(from, to PublicKey, lamports uint64) *Instruction {
	return &Instruction{
		ProgramID: SystemProgramID,
		Accounts: []*AccountMeta{
			Meta(from).Signer().Writable(),
			Meta(to).Writable(),
		},
		Data: NewEncoder().
			U32(systemTransfer).
			U64(lamports).
			Build(),
	}
}
