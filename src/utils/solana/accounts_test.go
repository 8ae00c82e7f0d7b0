package solana

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func encodeLoanAccount(loan *LoanAccount) []byte {
	return NewEncoder().
		Bytes(AccountDiscriminator("Loan")).
		PublicKey(loan.Borrower).
		U64(loan.LoanID).
		U64(loan.Principal).
		U16(loan.InterestRateBps).
		U64(loan.AdminFee).
		I64(loan.StartTimestamp).
		I64(loan.Duration).
		U8(uint8(loan.State)).
		Build()
}

func TestDecodeLoanAccount(t *testing.T) {
	borrower, err := NewKeypair()
	require.NoError(t, err)

	loan := &LoanAccount{
		Borrower:        borrower.PublicKey(),
		LoanID:          42,
		Principal:       5_000_000_000,
		InterestRateBps: 250,
		AdminFee:        1_000_000,
		StartTimestamp:  time.Now().Unix(),
		Duration:        604800,
		State:           LoanStateActive,
	}

	decoded, err := DecodeLoanAccount(encodeLoanAccount(loan))
	require.NoError(t, err)
	require.Equal(t, loan, decoded)
}

func TestDecodeLoanAccountRejectsWrongDiscriminator(t *testing.T) {
	data := NewEncoder().
		Bytes(AccountDiscriminator("Config")).
		Bytes(make([]byte, 80)).
		Build()

	_, err := DecodeLoanAccount(data)
	require.Error(t, err)
}

func TestDecodeLoanAccountRejectsShortData(t *testing.T) {
	_, err := DecodeLoanAccount(AccountDiscriminator("Loan"))
	require.Error(t, err)
}

func TestDecodeConfigAccount(t *testing.T) {
	admin, err := NewKeypair()
	require.NoError(t, err)
	vault, err := NewKeypair()
	require.NoError(t, err)
	treasury, err := NewKeypair()
	require.NoError(t, err)

	data := NewEncoder().
		Bytes(AccountDiscriminator("Config")).
		PublicKey(admin.PublicKey()).
		PublicKey(vault.PublicKey()).
		PublicKey(treasury.PublicKey()).
		U8(1).
		Build()

	decoded, err := DecodeConfigAccount(data)
	require.NoError(t, err)
	require.Equal(t, admin.PublicKey(), decoded.Admin)
	require.Equal(t, vault.PublicKey(), decoded.Vault)
	require.Equal(t, treasury.PublicKey(), decoded.Treasury)
	require.True(t, decoded.Paused)
}

func TestLoanExpiry(t *testing.T) {
	loan := &LoanAccount{StartTimestamp: 1000, Duration: 600}

	require.False(t, loan.IsExpired(1599))
	// Expiry is strict, the last second still counts as active
	require.False(t, loan.IsExpired(1600))
	require.True(t, loan.IsExpired(1601))
}

func TestLoanStateString(t *testing.T) {
	require.Equal(t, "active", LoanStateActive.String())
	require.Equal(t, "repaid", LoanStateRepaid.String())
	require.Equal(t, "recovered", LoanStateRecovered.String())
	require.Equal(t, "defaulted", LoanStateDefaulted.String())
	require.Equal(t, "unknown(9)", LoanState(9).String())
}
