package solana

// Compute budget instruction indexes (borsh u8)
const (
	computeBudgetSetUnitLimit uint8 = 2
	computeBudgetSetUnitPrice uint8 = 3
)

func NewSetComputeUnitLimitInstruction(units uint32) *Instruction {
	return &Instruction{
		ProgramID: ComputeBudgetProgramID,
		Data: NewEncoder().
			U8(computeBudgetSetUnitLimit).
			U32(units).
			Build(),
	}
}

func NewSetComputeUnitPriceInstruction(microLamports uint64) *Instruction {
	return &Instruction{
		ProgramID: ComputeBudgetProgramID,
		Data: NewEncoder().
			U8(computeBudgetSetUnitPrice).
			U64(microLamports).
			Build(),
	}
}
