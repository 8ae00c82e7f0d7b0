package deploy

import (
	"testing"

	"github.com/solignition/ignitor/src/utils/solana"

	"github.com/stretchr/testify/require"
)

func testProtocolConfig(t *testing.T) (*solana.ConfigAccount, solana.PublicKey, solana.PublicKey) {
	admin, err := solana.NewKeypair()
	require.NoError(t, err)
	protocol, err := solana.NewKeypair()
	require.NoError(t, err)
	vault, err := solana.VaultAddress(protocol.PublicKey())
	require.NoError(t, err)
	treasury, err := solana.NewKeypair()
	require.NoError(t, err)

	return &solana.ConfigAccount{
		Admin:    admin.PublicKey(),
		Vault:    vault,
		Treasury: treasury.PublicKey(),
	}, admin.PublicKey(), vault
}

func TestVerifyProtocolConfig(t *testing.T) {
	protocolConfig, admin, vault := testProtocolConfig(t)

	require.NoError(t, verifyProtocolConfig(protocolConfig, admin, vault))
}

func TestVerifyProtocolConfigRejectsPaused(t *testing.T) {
	protocolConfig, admin, vault := testProtocolConfig(t)
	protocolConfig.Paused = true

	err := verifyProtocolConfig(protocolConfig, admin, vault)
	require.ErrorContains(t, err, "paused")
}

func TestVerifyProtocolConfigRejectsRotatedAdmin(t *testing.T) {
	protocolConfig, _, vault := testProtocolConfig(t)
	other, err := solana.NewKeypair()
	require.NoError(t, err)

	err = verifyProtocolConfig(protocolConfig, other.PublicKey(), vault)
	require.ErrorContains(t, err, "admin")
}

func TestVerifyProtocolConfigRejectsVaultMismatch(t *testing.T) {
	protocolConfig, admin, _ := testProtocolConfig(t)
	other, err := solana.NewKeypair()
	require.NoError(t, err)

	err = verifyProtocolConfig(protocolConfig, admin, other.PublicKey())
	require.ErrorContains(t, err, "vault")
}
