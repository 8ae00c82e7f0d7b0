package solana

// Upgradeable loader instruction indexes (bincode u32)
const (
	loaderInitializeBuffer     uint32 = 0
	loaderWrite                uint32 = 1
	loaderDeployWithMaxDataLen uint32 = 2
	loaderSetAuthority         uint32 = 4
	loaderClose                uint32 = 5

	// Loader metadata preceding the bytecode in a buffer account
	BufferMetadataSize = 37

	// Metadata of a program-data account
	ProgramDataMetadataSize = 45

	// Size of a program account pointing at its program-data account
	ProgramAccountSize = 36
)

func NewInitializeBufferInstruction(buffer, authority PublicKey) *Instruction {
	return &Instruction{
		ProgramID: BPFLoaderUpgradeableID,
		Accounts: []*AccountMeta{
			Meta(buffer).Writable(),
			Meta(authority),
		},
		Data: NewEncoder().
			U32(loaderInitializeBuffer).
			Build(),
	}
}

// Writes a chunk of bytecode at the given byte offset of the buffer
func NewWriteInstruction(buffer, authority PublicKey, offset uint32, chunk []byte) *Instruction {
	return &Instruction{
		ProgramID: BPFLoaderUpgradeableID,
		Accounts: []*AccountMeta{
			Meta(buffer).Writable(),
			Meta(authority).Signer(),
		},
		Data: NewEncoder().
			U32(loaderWrite).
			U32(offset).
			Vec(chunk).
			Build(),
	}
}

// Promotes a buffer into an executable program account
func NewDeployWithMaxDataLenInstruction(payer, programData, program, buffer, authority PublicKey, maxDataLen uint64) *Instruction {
	return &Instruction{
		ProgramID: BPFLoaderUpgradeableID,
		Accounts: []*AccountMeta{
			Meta(payer).Signer().Writable(),
			Meta(programData).Writable(),
			Meta(program).Writable(),
			Meta(buffer).Writable(),
			Meta(SysvarRentID),
			Meta(SysvarClockID),
			Meta(SystemProgramID),
			Meta(authority).Signer(),
		},
		Data: NewEncoder().
			U32(loaderDeployWithMaxDataLen).
			U64(maxDataLen).
			Build(),
	}
}

// Hands upgrade authority over, e.g. to the protocol's PDA
func NewSetAuthorityInstruction(programData, currentAuthority, newAuthority PublicKey) *Instruction {
	return &Instruction{
		ProgramID: BPFLoaderUpgradeableID,
		Accounts: []*AccountMeta{
			Meta(programData).Writable(),
			Meta(currentAuthority).Signer(),
			Meta(newAuthority),
		},
		Data: NewEncoder().
			U32(loaderSetAuthority).
			Build(),
	}
}

// Closes a program-data account and sends the reclaimed rent to recipient
func NewCloseInstruction(programData, recipient, authority, program PublicKey) *Instruction {
	return &Instruction{
		ProgramID: BPFLoaderUpgradeableID,
		Accounts: []*AccountMeta{
			Meta(programData).Writable(),
			Meta(recipient).Writable(),
			Meta(authority).Signer(),
			Meta(program).Writable(),
		},
		Data: NewEncoder().
			U32(loaderClose).
			Build(),
	}
}
