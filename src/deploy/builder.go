package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/logger"
	"github.com/solignition/ignitor/src/utils/solana"

	"github.com/sirupsen/logrus"
)

// Result of a successful deploy transaction.
type DeployResult struct {
	ProgramID     solana.PublicKey
	BufferAccount solana.PublicKey
	Signature     string
}

// Deployer builds, signs and submits the chain transactions of the
// deployment and recovery paths.
type Deployer interface {
	Deploy(ctx context.Context, loanID uint64, binary []byte) (*DeployResult, error)
	RegisterDeployed(ctx context.Context, loanID uint64, programID solana.PublicKey) (signature string, err error)

	// Closes the program-data account, returns the reclaimed lamports
	Close(ctx context.Context, programID solana.PublicKey) (reclaimed uint64, signature string, err error)
	ReturnReclaimed(ctx context.Context, loanID uint64, amount uint64) (signature string, err error)
}

// Builds loader and protocol transactions signed by the admin keypair.
// The admin key stays upgrade authority of every deployed program, that
// is what makes the admin-signed close possible later.
type Builder struct {
	config   *config.Config
	log      *logrus.Entry
	client   *solana.Client
	admin    *solana.Keypair
	protocol solana.PublicKey
}

func NewBuilder(config *config.Config) (self *Builder) {
	self = new(Builder)
	self.config = config
	self.log = logger.NewSublogger("builder")
	return
}

func (self *Builder) WithClient(client *solana.Client) *Builder {
	self.client = client
	return self
}

func (self *Builder) WithAdmin(admin *solana.Keypair) *Builder {
	self.admin = admin
	return self
}

func (self *Builder) WithProtocol(protocol solana.PublicKey) *Builder {
	self.protocol = protocol
	return self
}

// One atomic deploy transaction: compute budget, buffer account
// creation, buffer initialization, chunked binary writes, program
// account creation and the finalizing deploy. Fresh buffer and program
// keypairs every attempt, a failed attempt leaves nothing to clean up
// since the transaction either lands whole or not at all.
func (self *Builder) Deploy(ctx context.Context, loanID uint64, binary []byte) (out *DeployResult, err error) {
	buffer, err := solana.NewKeypair()
	if err != nil {
		return
	}
	program, err := solana.NewKeypair()
	if err != nil {
		return
	}

	bufferSize := uint64(len(binary) + solana.BufferMetadataSize)
	bufferRent, err := self.client.GetMinimumBalanceForRentExemption(ctx, bufferSize)
	if err != nil {
		return
	}
	programRent, err := self.client.GetMinimumBalanceForRentExemption(ctx, solana.ProgramAccountSize)
	if err != nil {
		return
	}

	programData, err := solana.ProgramDataAddress(program.PublicKey())
	if err != nil {
		return
	}

	admin := self.admin.PublicKey()
	instructions := []*solana.Instruction{
		solana.NewSetComputeUnitLimitInstruction(self.config.Deployer.ComputeUnitLimit),
		solana.NewCreateAccountInstruction(admin, buffer.PublicKey(), bufferRent, bufferSize, solana.BPFLoaderUpgradeableID),
		solana.NewInitializeBufferInstruction(buffer.PublicKey(), admin),
	}

	chunkSize := self.config.Deployer.WriteChunkSize
	for offset := 0; offset < len(binary); offset += chunkSize {
		end := offset + chunkSize
		if end > len(binary) {
			end = len(binary)
		}
		instructions = append(instructions,
			solana.NewWriteInstruction(buffer.PublicKey(), admin, uint32(offset), binary[offset:end]))
	}

	// Twice the binary size leaves headroom for upgrades
	instructions = append(instructions,
		solana.NewCreateAccountInstruction(admin, program.PublicKey(), programRent, solana.ProgramAccountSize, solana.BPFLoaderUpgradeableID),
		solana.NewDeployWithMaxDataLenInstruction(admin, programData, program.PublicKey(), buffer.PublicKey(), admin, uint64(2*len(binary))),
	)

	signature, err := self.submit(ctx, instructions, buffer, program)
	if err != nil {
		return
	}

	self.log.WithField("loan_id", loanID).
		WithField("program_id", program.PublicKey().String()).
		WithField("signature", signature).
		Info("Program deployed")

	return &DeployResult{
		ProgramID:     program.PublicKey(),
		BufferAccount: buffer.PublicKey(),
		Signature:     signature,
	}, nil
}

func (self *Builder) RegisterDeployed(ctx context.Context, loanID uint64, programID solana.PublicKey) (signature string, err error) {
	configAddress, err := solana.ConfigAddress(self.protocol)
	if err != nil {
		return
	}
	loanAddress, err := solana.LoanAddress(self.protocol, loanID)
	if err != nil {
		return
	}

	instruction := solana.NewRegisterDeployedProgramInstruction(
		self.protocol, self.admin.PublicKey(), configAddress, loanAddress, loanID, programID)

	return self.submit(ctx, []*solana.Instruction{instruction})
}

func (self *Builder) Close(ctx context.Context, programID solana.PublicKey) (reclaimed uint64, signature string, err error) {
	programData, err := solana.ProgramDataAddress(programID)
	if err != nil {
		return
	}

	// The close instruction drains the whole account, its current
	// balance is the reclaimed amount
	reclaimed, err = self.client.GetBalance(ctx, programData)
	if err != nil {
		return
	}

	admin := self.admin.PublicKey()
	instruction := solana.NewCloseInstruction(programData, admin, admin, programID)

	signature, err = self.submit(ctx, []*solana.Instruction{instruction})
	if err != nil {
		return
	}

	self.log.WithField("program_id", programID.String()).
		WithField("reclaimed", reclaimed).
		WithField("signature", signature).
		Info("Program closed")
	return
}

// Moving reclaimed funds back into the vault goes through the protocol
// Config account first, a paused protocol or a rotated admin key would
// otherwise only fail on-chain after the transaction was paid for.
func (self *Builder) ReturnReclaimed(ctx context.Context, loanID uint64, amount uint64) (signature string, err error) {
	configAddress, err := solana.ConfigAddress(self.protocol)
	if err != nil {
		return
	}
	loanAddress, err := solana.LoanAddress(self.protocol, loanID)
	if err != nil {
		return
	}
	vaultAddress, err := solana.VaultAddress(self.protocol)
	if err != nil {
		return
	}

	info, err := self.client.GetAccountInfo(ctx, configAddress)
	if err != nil {
		return
	}
	protocolConfig, err := solana.DecodeConfigAccount(info.Data)
	if err != nil {
		return
	}
	err = verifyProtocolConfig(protocolConfig, self.admin.PublicKey(), vaultAddress)
	if err != nil {
		return
	}

	instruction := solana.NewReturnReclaimedBalanceInstruction(
		self.protocol, self.admin.PublicKey(), configAddress, loanAddress, vaultAddress, loanID, amount)

	return self.submit(ctx, []*solana.Instruction{instruction})
}

func verifyProtocolConfig(protocolConfig *solana.ConfigAccount, admin, vault solana.PublicKey) error {
	if protocolConfig.Paused {
		return errors.New("protocol is paused")
	}
	if !protocolConfig.Admin.Equals(admin) {
		return fmt.Errorf("config admin %s does not match the loaded keypair %s",
			protocolConfig.Admin, admin)
	}
	if !protocolConfig.Vault.Equals(vault) {
		return fmt.Errorf("config vault %s does not match the derived vault address %s",
			protocolConfig.Vault, vault)
	}
	return nil
}

// Signs with the admin keypair plus any extra signers and waits for
// confirmation.
func (self *Builder) submit(ctx context.Context, instructions []*solana.Instruction, extraSigners ...*solana.Keypair) (signature string, err error) {
	blockhash, _, err := self.client.GetLatestBlockhash(ctx)
	if err != nil {
		return
	}

	transaction, err := solana.NewTransaction(self.admin.PublicKey(), blockhash, instructions...)
	if err != nil {
		return
	}

	signers := append([]*solana.Keypair{self.admin}, extraSigners...)
	signed, err := transaction.Sign(signers...)
	if err != nil {
		return
	}

	return self.client.SubmitTransaction(ctx, signed)
}
