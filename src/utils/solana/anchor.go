package solana

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Anchor programs prefix instructions, accounts and events with an
// 8-byte discriminator derived from the item's namespaced name.
const anchorDiscriminatorLength = 8

var (
	ErrNoMatchingEvent = errors.New("no matching event in logs")
	ErrTruncatedEvent  = errors.New("truncated event payload")
)

func AnchorDiscriminator(namespace, name string) []byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	return sum[:anchorDiscriminatorLength]
}

func InstructionDiscriminator(name string) []byte {
	return AnchorDiscriminator("global", name)
}

func EventDiscriminator(name string) []byte {
	return AnchorDiscriminator("event", name)
}

func AccountDiscriminator(name string) []byte {
	return AnchorDiscriminator("account", name)
}

// Event names emitted by the lending protocol
const (
	EventNameLoanRequested = "LoanRequested"
	EventNameLoanRecovered = "LoanRecovered"
)

// Log line prefix carrying base64-encoded event payloads
const eventLogPrefix = "Program data: "

type LoanRequestedEvent struct {
	Borrower        PublicKey
	LoanID          uint64
	Principal       uint64
	Duration        int64
	InterestRateBps uint16
	AdminFee        uint64
}

type LoanRecoveredEvent struct {
	LoanID              uint64
	AdminFeeDistributed uint64
	DepositorShare      uint64
	TreasuryShare       uint64
}

// Does this batch of log lines mention an event we care about?
// Cheap pre-filter before the full transaction is fetched.
func LogsMentionEvent(logs []string, eventName string) bool {
	discriminator := EventDiscriminator(eventName)
	for _, line := range logs {
		payload, ok := decodeEventLine(line)
		if !ok {
			continue
		}
		if len(payload) >= anchorDiscriminatorLength &&
			string(payload[:anchorDiscriminatorLength]) == string(discriminator) {
			return true
		}
	}
	return false
}

func decodeEventLine(line string) (payload []byte, ok bool) {
	if !strings.HasPrefix(line, eventLogPrefix) {
		return nil, false
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, eventLogPrefix))
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Scans transaction logs for a LoanRequested event.
// Absence of the event is a possible outcome of a false positive
// log match, callers treat ErrNoMatchingEvent as non-fatal.
func DecodeLoanRequestedEvent(logs []string) (out *LoanRequestedEvent, err error) {
	payload, err := findEventPayload(logs, EventNameLoanRequested)
	if err != nil {
		return
	}

	// borrower(32) + loan_id(8) + principal(8) + duration(8) + rate(2) + fee(8)
	if len(payload) < 66 {
		err = fmt.Errorf("%w: LoanRequested, %d bytes", ErrTruncatedEvent, len(payload))
		return
	}

	out = new(LoanRequestedEvent)
	out.Borrower, _ = PublicKeyFromBytes(payload[:32])
	out.LoanID = binary.LittleEndian.Uint64(payload[32:40])
	out.Principal = binary.LittleEndian.Uint64(payload[40:48])
	out.Duration = int64(binary.LittleEndian.Uint64(payload[48:56]))
	out.InterestRateBps = binary.LittleEndian.Uint16(payload[56:58])
	out.AdminFee = binary.LittleEndian.Uint64(payload[58:66])
	return
}

func DecodeLoanRecoveredEvent(logs []string) (out *LoanRecoveredEvent, err error) {
	payload, err := findEventPayload(logs, EventNameLoanRecovered)
	if err != nil {
		return
	}

	if len(payload) < 32 {
		err = fmt.Errorf("%w: LoanRecovered, %d bytes", ErrTruncatedEvent, len(payload))
		return
	}

	out = new(LoanRecoveredEvent)
	out.LoanID = binary.LittleEndian.Uint64(payload[:8])
	out.AdminFeeDistributed = binary.LittleEndian.Uint64(payload[8:16])
	out.DepositorShare = binary.LittleEndian.Uint64(payload[16:24])
	out.TreasuryShare = binary.LittleEndian.Uint64(payload[24:32])
	return
}

func findEventPayload(logs []string, eventName string) (payload []byte, err error) {
	discriminator := EventDiscriminator(eventName)
	for _, line := range logs {
		decoded, ok := decodeEventLine(line)
		if !ok {
			continue
		}
		if len(decoded) < anchorDiscriminatorLength {
			continue
		}
		if string(decoded[:anchorDiscriminatorLength]) != string(discriminator) {
			continue
		}
		return decoded[anchorDiscriminatorLength:], nil
	}
	err = fmt.Errorf("%w: %s", ErrNoMatchingEvent, eventName)
	return
}
