package solana

type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

func Meta(key PublicKey) *AccountMeta {
	return &AccountMeta{PublicKey: key}
}

func (self *AccountMeta) Signer() *AccountMeta {
	self.IsSigner = true
	return self
}

func (self *AccountMeta) Writable() *AccountMeta {
	self.IsWritable = true
	return self
}

type Instruction struct {
	ProgramID PublicKey
	Accounts  []*AccountMeta
	Data      []byte
}
