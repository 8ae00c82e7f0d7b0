package solana

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T, n int) (out []PublicKey) {
	for i := 0; i < n; i++ {
		keypair, err := NewKeypair()
		require.NoError(t, err)
		out = append(out, keypair.PublicKey())
	}
	return
}

func TestWriteInstructionEncoding(t *testing.T) {
	keys := testKeys(t, 2)
	chunk := []byte{0xAA, 0xBB, 0xCC}

	instruction := NewWriteInstruction(keys[0], keys[1], 900, chunk)

	require.Equal(t, BPFLoaderUpgradeableID, instruction.ProgramID)
	require.True(t, instruction.Accounts[0].IsWritable)
	require.False(t, instruction.Accounts[0].IsSigner)
	require.True(t, instruction.Accounts[1].IsSigner)

	// u32 index, u32 offset, u64 length, chunk bytes
	data := instruction.Data
	require.Len(t, data, 4+4+8+len(chunk))
	require.EqualValues(t, 1, binary.LittleEndian.Uint32(data[0:4]))
	require.EqualValues(t, 900, binary.LittleEndian.Uint32(data[4:8]))
	require.EqualValues(t, len(chunk), binary.LittleEndian.Uint64(data[8:16]))
	require.Equal(t, chunk, data[16:])
}

func TestDeployWithMaxDataLenEncoding(t *testing.T) {
	keys := testKeys(t, 5)

	instruction := NewDeployWithMaxDataLenInstruction(keys[0], keys[1], keys[2], keys[3], keys[4], 2048)

	require.Len(t, instruction.Accounts, 8)
	require.Equal(t, SysvarRentID, instruction.Accounts[4].PublicKey)
	require.Equal(t, SysvarClockID, instruction.Accounts[5].PublicKey)
	require.Equal(t, SystemProgramID, instruction.Accounts[6].PublicKey)
	// Payer and authority sign
	require.True(t, instruction.Accounts[0].IsSigner)
	require.True(t, instruction.Accounts[7].IsSigner)

	data := instruction.Data
	require.Len(t, data, 4+8)
	require.EqualValues(t, 2, binary.LittleEndian.Uint32(data[0:4]))
	require.EqualValues(t, 2048, binary.LittleEndian.Uint64(data[4:12]))
}

func TestSetAuthorityEncoding(t *testing.T) {
	keys := testKeys(t, 3)

	instruction := NewSetAuthorityInstruction(keys[0], keys[1], keys[2])

	require.Len(t, instruction.Accounts, 3)
	require.True(t, instruction.Accounts[1].IsSigner)
	require.False(t, instruction.Accounts[2].IsSigner)
	require.EqualValues(t, 4, binary.LittleEndian.Uint32(instruction.Data))
}

func TestCloseEncoding(t *testing.T) {
	keys := testKeys(t, 4)

	instruction := NewCloseInstruction(keys[0], keys[1], keys[2], keys[3])

	require.Len(t, instruction.Accounts, 4)
	require.True(t, instruction.Accounts[2].IsSigner)
	require.EqualValues(t, 5, binary.LittleEndian.Uint32(instruction.Data))
}

func TestCreateAccountEncoding(t *testing.T) {
	keys := testKeys(t, 2)

	instruction := NewCreateAccountInstruction(keys[0], keys[1], 1_000_000, 512, BPFLoaderUpgradeableID)

	require.Equal(t, SystemProgramID, instruction.ProgramID)
	require.True(t, instruction.Accounts[0].IsSigner)
	require.True(t, instruction.Accounts[1].IsSigner)

	data := instruction.Data
	require.Len(t, data, 4+8+8+32)
	require.EqualValues(t, 0, binary.LittleEndian.Uint32(data[0:4]))
	require.EqualValues(t, 1_000_000, binary.LittleEndian.Uint64(data[4:12]))
	require.EqualValues(t, 512, binary.LittleEndian.Uint64(data[12:20]))
	require.Equal(t, BPFLoaderUpgradeableID.Bytes(), data[20:52])
}

func TestComputeBudgetEncoding(t *testing.T) {
	limit := NewSetComputeUnitLimitInstruction(1_400_000)
	require.Equal(t, ComputeBudgetProgramID, limit.ProgramID)
	require.Len(t, limit.Data, 1+4)
	require.EqualValues(t, 2, limit.Data[0])
	require.EqualValues(t, 1_400_000, binary.LittleEndian.Uint32(limit.Data[1:5]))

	price := NewSetComputeUnitPriceInstruction(5000)
	require.Len(t, price.Data, 1+8)
	require.EqualValues(t, 3, price.Data[0])
	require.EqualValues(t, 5000, binary.LittleEndian.Uint64(price.Data[1:9]))
}

func TestProtocolInstructionEncoding(t *testing.T) {
	keys := testKeys(t, 6)
	protocol, admin, config, loan, vault, program := keys[0], keys[1], keys[2], keys[3], keys[4], keys[5]

	register := NewRegisterDeployedProgramInstruction(protocol, admin, config, loan, 42, program)
	require.Equal(t, protocol, register.ProgramID)
	require.Equal(t, InstructionDiscriminator("register_deployed_program"), register.Data[:8])
	require.EqualValues(t, 42, binary.LittleEndian.Uint64(register.Data[8:16]))
	require.Equal(t, program.Bytes(), register.Data[16:48])

	returned := NewReturnReclaimedBalanceInstruction(protocol, admin, config, loan, vault, 42, 1_000_000)
	require.Equal(t, InstructionDiscriminator("return_reclaimed_balance"), returned.Data[:8])
	require.EqualValues(t, 42, binary.LittleEndian.Uint64(returned.Data[8:16]))
	require.EqualValues(t, 1_000_000, binary.LittleEndian.Uint64(returned.Data[16:24]))
}
