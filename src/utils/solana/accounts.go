package solana

import (
	"encoding/binary"
	"fmt"
)

// Decoded on-chain account shapes consumed from the lending protocol.
// Fixed binary layouts, validated on every decode.

type LoanState uint8

const (
	LoanStateActive LoanState = iota
	LoanStateRepaid
	LoanStateRecovered
	LoanStateDefaulted
)

func (self LoanState) String() string {
	switch self {
	case LoanStateActive:
		return "active"
	case LoanStateRepaid:
		return "repaid"
	case LoanStateRecovered:
		return "recovered"
	case LoanStateDefaulted:
		return "defaulted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(self))
	}
}

type LoanAccount struct {
	Borrower        PublicKey
	LoanID          uint64
	Principal       uint64
	InterestRateBps uint16
	AdminFee        uint64
	StartTimestamp  int64
	Duration        int64
	State           LoanState
}

const loanAccountSize = anchorDiscriminatorLength + 32 + 8 + 8 + 2 + 8 + 8 + 8 + 1

func (self *LoanAccount) IsExpired(nowUnix int64) bool {
	return nowUnix > self.StartTimestamp+self.Duration
}

func DecodeLoanAccount(data []byte) (out *LoanAccount, err error) {
	if len(data) < loanAccountSize {
		err = fmt.Errorf("loan account too short: %d bytes, expected %d", len(data), loanAccountSize)
		return
	}

	discriminator := AccountDiscriminator("Loan")
	if string(data[:anchorDiscriminatorLength]) != string(discriminator) {
		err = fmt.Errorf("not a loan account")
		return
	}

	body := data[anchorDiscriminatorLength:]
	out = new(LoanAccount)
	out.Borrower, _ = PublicKeyFromBytes(body[:32])
	out.LoanID = binary.LittleEndian.Uint64(body[32:40])
	out.Principal = binary.LittleEndian.Uint64(body[40:48])
	out.InterestRateBps = binary.LittleEndian.Uint16(body[48:50])
	out.AdminFee = binary.LittleEndian.Uint64(body[50:58])
	out.StartTimestamp = int64(binary.LittleEndian.Uint64(body[58:66]))
	out.Duration = int64(binary.LittleEndian.Uint64(body[66:74]))
	out.State = LoanState(body[74])
	return
}

type ConfigAccount struct {
	Admin    PublicKey
	Vault    PublicKey
	Treasury PublicKey
	Paused   bool
}

const configAccountSize = anchorDiscriminatorLength + 32 + 32 + 32 + 1

func DecodeConfigAccount(data []byte) (out *ConfigAccount, err error) {
	if len(data) < configAccountSize {
		err = fmt.Errorf("config account too short: %d bytes, expected %d", len(data), configAccountSize)
		return
	}

	discriminator := AccountDiscriminator("Config")
	if string(data[:anchorDiscriminatorLength]) != string(discriminator) {
		err = fmt.Errorf("not a config account")
		return
	}

	body := data[anchorDiscriminatorLength:]
	out = new(ConfigAccount)
	out.Admin, _ = PublicKeyFromBytes(body[:32])
	out.Vault, _ = PublicKeyFromBytes(body[32:64])
	out.Treasury, _ = PublicKeyFromBytes(body[64:96])
	out.Paused = body[96] != 0
	return
}

// PDA seeds fixed by the on-chain program
func LoanAddress(programID PublicKey, loanID uint64) (out PublicKey, err error) {
	out, _, err = FindProgramAddress([][]byte{
		[]byte("loan"),
		NewEncoder().U64(loanID).Build(),
	}, programID)
	return
}

func ConfigAddress(programID PublicKey) (out PublicKey, err error) {
	out, _, err = FindProgramAddress([][]byte{
		[]byte("config"),
	}, programID)
	return
}

func VaultAddress(programID PublicKey) (out PublicKey, err error) {
	out, _, err = FindProgramAddress([][]byte{
		[]byte("vault"),
	}, programID)
	return
}
