package solana

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicKeyBase58RoundTrip(t *testing.T) {
	// All-zero key encodes to 32 ones
	var zero PublicKey
	require.Equal(t, "11111111111111111111111111111111", zero.String())
	require.True(t, zero.IsZero())
	require.Equal(t, SystemProgramID, zero)

	parsed, err := PublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
	require.NoError(t, err)
	require.Equal(t, BPFLoaderUpgradeableID, parsed)
	require.Equal(t, "BPFLoaderUpgradeab1e11111111111111111111111", parsed.String())
}

func TestPublicKeyFromBase58RejectsWrongLength(t *testing.T) {
	_, err := PublicKeyFromBase58("abc")
	require.Error(t, err)

	_, err = PublicKeyFromBase58("not!base58@at#all")
	require.Error(t, err)
}

func TestGeneratedKeyIsOnCurve(t *testing.T) {
	keypair, err := NewKeypair()
	require.NoError(t, err)
	require.True(t, keypair.PublicKey().IsOnCurve())
}

func TestFindProgramAddressIsOffCurve(t *testing.T) {
	keypair, err := NewKeypair()
	require.NoError(t, err)
	program := keypair.PublicKey()

	address, bump, err := FindProgramAddress([][]byte{[]byte("config")}, program)
	require.NoError(t, err)
	require.False(t, address.IsOnCurve())

	// Deterministic, the same seeds always derive the same address
	again, bumpAgain, err := FindProgramAddress([][]byte{[]byte("config")}, program)
	require.NoError(t, err)
	require.Equal(t, address, again)
	require.Equal(t, bump, bumpAgain)

	// The found bump reproduces the address directly
	direct, err := CreateProgramAddress([][]byte{[]byte("config"), {bump}}, program)
	require.NoError(t, err)
	require.Equal(t, address, direct)
}

func TestPdaHelpersDeriveDistinctAddresses(t *testing.T) {
	keypair, err := NewKeypair()
	require.NoError(t, err)
	program := keypair.PublicKey()

	config, err := ConfigAddress(program)
	require.NoError(t, err)
	vault, err := VaultAddress(program)
	require.NoError(t, err)
	programData, err := ProgramDataAddress(program)
	require.NoError(t, err)
	loan, err := LoanAddress(program, 42)
	require.NoError(t, err)
	otherLoan, err := LoanAddress(program, 43)
	require.NoError(t, err)

	seen := map[PublicKey]bool{config: true, vault: true, programData: true, loan: true, otherLoan: true}
	require.Len(t, seen, 5)
}

func TestKeypairFileRoundTrip(t *testing.T) {
	keypair, err := NewKeypair()
	require.NoError(t, err)

	path := t.TempDir() + "/keypair.json"
	require.NoError(t, keypair.Save(path))

	loaded, err := LoadKeypair(path)
	require.NoError(t, err)
	require.Equal(t, keypair.PublicKey(), loaded.PublicKey())
}
