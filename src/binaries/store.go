package binaries

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/logger"

	"github.com/sirupsen/logrus"
)

const (
	// Hard cap on accepted payloads
	MaxBinarySize = 100 * 1024 * 1024
)

// Executables start with the fixed ELF magic sequence
var elfMagic = []byte{0x7F, 0x45, 0x4C, 0x46}

var (
	ErrInvalidBinary = errors.New("invalid binary")
	ErrNotFound      = errors.New("binary not found")
)

// Content-addressed storage of executable payloads, keyed by
// loan id and the SHA-256 of the exact bytes. Files are immutable
// once written.
type Store struct {
	config *config.Config
	log    *logrus.Entry
	root   string
}

func NewStore(config *config.Config) (self *Store) {
	self = new(Store)
	self.config = config
	self.log = logger.NewSublogger("binary-store")
	self.root = config.Binaries.StoragePath
	return
}

// Checks run in a fixed order, the first failure wins
func (self *Store) Validate(data []byte) (err error) {
	if len(data) == 0 {
		return fmt.Errorf("%w: Empty binary", ErrInvalidBinary)
	}
	if len(data) < len(elfMagic) || !bytes.Equal(data[:len(elfMagic)], elfMagic) {
		return fmt.Errorf("%w: Invalid ELF header", ErrInvalidBinary)
	}
	if len(data) > MaxBinarySize {
		return fmt.Errorf("%w: Binary too large", ErrInvalidBinary)
	}
	return nil
}

// Writes the payload under a key derived from the loan id and the
// content hash. Re-storing identical bytes is a no-op with the same
// hash.
func (self *Store) Store(loanID string, data []byte) (contentHash string, err error) {
	sum := sha256.Sum256(data)
	contentHash = hex.EncodeToString(sum[:])

	dir := filepath.Join(self.root, loanID)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		return
	}

	path := self.path(loanID, contentHash)
	if _, statErr := os.Stat(path); statErr == nil {
		// Already stored, content addressing makes this idempotent
		return
	}

	err = os.WriteFile(path, data, 0640)
	if err != nil {
		return
	}

	self.log.WithField("loan_id", loanID).
		WithField("hash", contentHash).
		WithField("size", len(data)).
		Debug("Stored binary")
	return
}

func (self *Store) Retrieve(loanID, contentHash string) (data []byte, err error) {
	data, err = os.ReadFile(self.path(loanID, contentHash))
	if errors.Is(err, os.ErrNotExist) {
		err = fmt.Errorf("%w: loan %s, hash %s", ErrNotFound, loanID, contentHash)
	}
	return
}

func (self *Store) path(loanID, contentHash string) string {
	return filepath.Join(self.root, loanID, contentHash+".so")
}
