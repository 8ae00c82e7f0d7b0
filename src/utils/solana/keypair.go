package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Ed25519 keypair in the format used by the Solana CLI tooling:
// a JSON array of 64 bytes, private key followed by the public key.
type Keypair struct {
	privateKey ed25519.PrivateKey
}

func NewKeypair() (self *Keypair, err error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return
	}
	self = &Keypair{privateKey: priv}
	return
}

func KeypairFromBytes(in []byte) (self *Keypair, err error) {
	if len(in) != ed25519.PrivateKeySize {
		err = fmt.Errorf("invalid keypair length: %d", len(in))
		return
	}
	self = &Keypair{privateKey: ed25519.PrivateKey(in)}
	return
}

func LoadKeypair(path string) (self *Keypair, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}

	// JSON array of numbers, not a base64 string
	var raw []int
	err = json.Unmarshal(content, &raw)
	if err != nil {
		return
	}

	buf := make([]byte, len(raw))
	for i, b := range raw {
		if b < 0 || b > 255 {
			err = fmt.Errorf("invalid keypair byte at index %d: %d", i, b)
			return
		}
		buf[i] = byte(b)
	}

	return KeypairFromBytes(buf)
}

func (self *Keypair) Save(path string) (err error) {
	raw := make([]int, len(self.privateKey))
	for i, b := range self.privateKey {
		raw[i] = int(b)
	}

	content, err := json.Marshal(raw)
	if err != nil {
		return
	}
	return os.WriteFile(path, content, 0600)
}

func (self *Keypair) PublicKey() PublicKey {
	pub, ok := self.privateKey.Public().(ed25519.PublicKey)
	if !ok {
		// Cannot happen for a valid ed25519 private key
		panic(errors.New("invalid ed25519 public key"))
	}
	out, _ := PublicKeyFromBytes(pub)
	return out
}

func (self *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(self.privateKey, message)
}
