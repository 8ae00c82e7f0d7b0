package solana

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var ErrMissingSigner = errors.New("missing signer for transaction")

// Legacy wire-format transaction. Accounts are ordered
// signers-writable, signers-readonly, non-signers-writable,
// non-signers-readonly, with the fee payer always first.
type Transaction struct {
	feePayer        PublicKey
	instructions    []*Instruction
	recentBlockhash [32]byte

	accountKeys []PublicKey
	header      messageHeader
}

type messageHeader struct {
	numRequiredSignatures       uint8
	numReadonlySignedAccounts   uint8
	numReadonlyUnsignedAccounts uint8
}

func NewTransaction(feePayer PublicKey, recentBlockhash string, instructions ...*Instruction) (self *Transaction, err error) {
	self = &Transaction{
		feePayer:     feePayer,
		instructions: instructions,
	}

	decoded, err := base58.Decode(recentBlockhash)
	if err != nil {
		return
	}
	if len(decoded) != 32 {
		err = fmt.Errorf("invalid blockhash length: %d", len(decoded))
		return
	}
	copy(self.recentBlockhash[:], decoded)

	self.compileAccounts()
	return
}

// Merges account metas from all instructions, the strongest
// signer/writable flags win
func (self *Transaction) compileAccounts() {
	type flags struct {
		isSigner   bool
		isWritable bool
	}

	merged := make(map[PublicKey]*flags)
	order := make([]PublicKey, 0, len(self.instructions)*4)

	observe := func(key PublicKey, isSigner, isWritable bool) {
		f, ok := merged[key]
		if !ok {
			f = new(flags)
			merged[key] = f
			order = append(order, key)
		}
		f.isSigner = f.isSigner || isSigner
		f.isWritable = f.isWritable || isWritable
	}

	observe(self.feePayer, true, true)
	for _, instruction := range self.instructions {
		for _, meta := range instruction.Accounts {
			observe(meta.PublicKey, meta.IsSigner, meta.IsWritable)
		}
		observe(instruction.ProgramID, false, false)
	}

	var signerWritable, signerReadonly, writable, readonly []PublicKey
	for _, key := range order {
		if key == self.feePayer {
			continue
		}
		f := merged[key]
		switch {
		case f.isSigner && f.isWritable:
			signerWritable = append(signerWritable, key)
		case f.isSigner:
			signerReadonly = append(signerReadonly, key)
		case f.isWritable:
			writable = append(writable, key)
		default:
			readonly = append(readonly, key)
		}
	}

	self.accountKeys = make([]PublicKey, 0, len(order))
	self.accountKeys = append(self.accountKeys, self.feePayer)
	self.accountKeys = append(self.accountKeys, signerWritable...)
	self.accountKeys = append(self.accountKeys, signerReadonly...)
	self.accountKeys = append(self.accountKeys, writable...)
	self.accountKeys = append(self.accountKeys, readonly...)

	self.header = messageHeader{
		numRequiredSignatures:       uint8(1 + len(signerWritable) + len(signerReadonly)),
		numReadonlySignedAccounts:   uint8(len(signerReadonly)),
		numReadonlyUnsignedAccounts: uint8(len(readonly)),
	}
}

func (self *Transaction) accountIndex(key PublicKey) (uint8, error) {
	for i, candidate := range self.accountKeys {
		if candidate == key {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("account %s not found in transaction", key)
}

// Serialized message, the part that gets signed
func (self *Transaction) Message() (out []byte, err error) {
	out = append(out,
		self.header.numRequiredSignatures,
		self.header.numReadonlySignedAccounts,
		self.header.numReadonlyUnsignedAccounts,
	)

	out = AppendCompactU16(out, len(self.accountKeys))
	for _, key := range self.accountKeys {
		out = append(out, key[:]...)
	}

	out = append(out, self.recentBlockhash[:]...)

	out = AppendCompactU16(out, len(self.instructions))
	for _, instruction := range self.instructions {
		var programIdx uint8
		programIdx, err = self.accountIndex(instruction.ProgramID)
		if err != nil {
			return
		}
		out = append(out, programIdx)

		out = AppendCompactU16(out, len(instruction.Accounts))
		for _, meta := range instruction.Accounts {
			var idx uint8
			idx, err = self.accountIndex(meta.PublicKey)
			if err != nil {
				return
			}
			out = append(out, idx)
		}

		out = AppendCompactU16(out, len(instruction.Data))
		out = append(out, instruction.Data...)
	}

	return
}

// Signs the message with every required signer and returns the
// serialized transaction. Signature order follows account order.
func (self *Transaction) Sign(signers ...*Keypair) (out []byte, err error) {
	message, err := self.Message()
	if err != nil {
		return
	}

	byKey := make(map[PublicKey]*Keypair, len(signers))
	for _, signer := range signers {
		byKey[signer.PublicKey()] = signer
	}

	out = AppendCompactU16(out, int(self.header.numRequiredSignatures))
	for i := 0; i < int(self.header.numRequiredSignatures); i++ {
		signer, ok := byKey[self.accountKeys[i]]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrMissingSigner, self.accountKeys[i])
			return
		}
		out = append(out, signer.Sign(message)...)
	}

	out = append(out, message...)
	return
}

func (self *Transaction) AccountKeys() []PublicKey {
	return self.accountKeys
}

func (self *Transaction) NumRequiredSignatures() int {
	return int(self.header.numRequiredSignatures)
}
