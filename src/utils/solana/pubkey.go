package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	PublicKeyLength = 32

	// Max number of bump seeds tried during PDA derivation
	maxBumpSeed = 255
)

var (
	ErrInvalidPublicKey   = errors.New("invalid public key")
	ErrNoViableBump       = errors.New("unable to find a viable program address bump")
	ErrMaxSeedLenExceeded = errors.New("max seed length exceeded")
)

type PublicKey [PublicKeyLength]byte

var (
	SystemProgramID        = MustPublicKeyFromBase58("11111111111111111111111111111111")
	BPFLoaderUpgradeableID = MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
	ComputeBudgetProgramID = MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	SysvarRentID           = MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	SysvarClockID          = MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")
)

func PublicKeyFromBase58(in string) (out PublicKey, err error) {
	decoded, err := base58.Decode(in)
	if err != nil {
		return
	}
	if len(decoded) != PublicKeyLength {
		err = fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeyLength, len(decoded))
		return
	}
	copy(out[:], decoded)
	return
}

func MustPublicKeyFromBase58(in string) PublicKey {
	out, err := PublicKeyFromBase58(in)
	if err != nil {
		panic(err)
	}
	return out
}

func PublicKeyFromBytes(in []byte) (out PublicKey, err error) {
	if len(in) != PublicKeyLength {
		err = fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeyLength, len(in))
		return
	}
	copy(out[:], in)
	return
}

func (self PublicKey) String() string {
	return base58.Encode(self[:])
}

func (self PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeyLength)
	copy(out, self[:])
	return out
}

func (self PublicKey) IsZero() bool {
	return self == PublicKey{}
}

func (self PublicKey) Equals(other PublicKey) bool {
	return self == other
}

func (self PublicKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + self.String() + `"`), nil
}

func (self *PublicKey) UnmarshalJSON(data []byte) (err error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return ErrInvalidPublicKey
	}
	*self, err = PublicKeyFromBase58(string(data[1 : len(data)-1]))
	return
}

// Program addresses live off the ed25519 curve so no private key can sign for them
func (self PublicKey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(self[:])
	return err == nil
}

// Deterministic, signature-less address derived from seeds and the owning program
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (out PublicKey, err error) {
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > 32 {
			err = ErrMaxSeedLenExceeded
			return
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte("ProgramDerivedAddress"))

	out, err = PublicKeyFromBytes(h.Sum(nil))
	if err != nil {
		return
	}

	if out.IsOnCurve() {
		err = errors.New("derived address falls on the ed25519 curve")
		return
	}

	return
}

func FindProgramAddress(seeds [][]byte, programID PublicKey) (out PublicKey, bump uint8, err error) {
	for i := maxBumpSeed; i >= 0; i-- {
		out, err = CreateProgramAddress(append(seeds, []byte{uint8(i)}), programID)
		if err == nil {
			bump = uint8(i)
			return
		}
	}
	err = ErrNoViableBump
	return
}

// Address of the account holding a deployed program's bytecode,
// owned by the upgradeable loader
func ProgramDataAddress(programID PublicKey) (out PublicKey, err error) {
	out, _, err = FindProgramAddress([][]byte{programID[:]}, BPFLoaderUpgradeableID)
	return
}
