package solana

// Admin-signed instructions of the lending protocol program

func NewRegisterDeployedProgramInstruction(protocol PublicKey, admin, config, loan PublicKey, loanID uint64, deployedProgram PublicKey) *Instruction {
	return &Instruction{
		ProgramID: protocol,
		Accounts: []*AccountMeta{
			Meta(config),
			Meta(loan).Writable(),
			Meta(admin).Signer().Writable(),
		},
		Data: NewEncoder().
			Bytes(InstructionDiscriminator("register_deployed_program")).
			U64(loanID).
			PublicKey(deployedProgram).
			Build(),
	}
}

func NewReturnReclaimedBalanceInstruction(protocol PublicKey, admin, config, loan, vault PublicKey, loanID, amount uint64) *Instruction {
	return &Instruction{
		ProgramID: protocol,
		Accounts: []*AccountMeta{
			Meta(config),
			Meta(loan).Writable(),
			Meta(vault).Writable(),
			Meta(admin).Signer().Writable(),
			Meta(SystemProgramID),
		},
		Data: NewEncoder().
			Bytes(InstructionDiscriminator("return_reclaimed_balance")).
			U64(loanID).
			U64(amount).
			Build(),
	}
}
