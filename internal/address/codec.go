// Package address turns untrusted BTC, BCH and DOGE address text into output
// scripts. Every failure is reported as absence (ok == false): callers must
// treat it as "reject this address", never as an exceptional condition.
package address

import (
	"fmt"
	"strings"

	"chainwatch/internal/chain"
)

// DecodeMode selects how far the BTC segwit decoder may relax checksum
// validation. The zero value is ModeStrict.
type DecodeMode uint8

const (
	ModeStrict DecodeMode = iota
	// ModePermissive enables the unchecked Bech32 fallback. Development and
	// test configurations only.
	ModePermissive
)

func (m DecodeMode) String() string {
	if m == ModePermissive {
		return "permissive"
	}
	return "strict"
}

func ParseDecodeMode(s string) (DecodeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return ModeStrict, nil
	case "permissive":
		return ModePermissive, nil
	default:
		return ModeStrict, fmt.Errorf("unknown decode mode %q", s)
	}
}

const (
	versionP2PKH     byte = 0x00
	versionDogeP2PKH byte = 0x1e
)

// Codec resolves addresses to scripts under a fixed DecodeMode.
type Codec struct {
	mode DecodeMode
}

func NewCodec(mode DecodeMode) Codec {
	return Codec{mode: mode}
}

func (c Codec) Mode() DecodeMode { return c.mode }

// ToScript resolves text to the scriptPubKey it pays to on id.
func (c Codec) ToScript(id chain.ID, text string) ([]byte, bool) {
	switch id {
	case chain.BTC:
		return c.btcScript(text)
	case chain.BCH:
		return p2pkhFromBase58(text, versionP2PKH)
	case chain.DOGE:
		return p2pkhFromBase58(text, versionDogeP2PKH)
	default:
		return nil, false
	}
}

func (c Codec) btcScript(text string) ([]byte, bool) {
	witness, ok := DecodeSegwitStrict(text)
	if !ok && c.mode == ModePermissive {
		witness, ok = decodeSegwitPermissive(text)
	}
	if ok && witness.Version == 0 {
		if script, ok := SegwitV0Script(witness.Payload); ok {
			return script, true
		}
	}
	return p2pkhFromBase58(text, versionP2PKH)
}

func p2pkhFromBase58(text string, version byte) ([]byte, bool) {
	decoded, ok := DecodeBase58Check(text)
	if !ok || decoded.Version != version || len(decoded.Payload) != 20 {
		return nil, false
	}
	return P2PKHScript(decoded.Payload), true
}

// AddressToScript resolves text with the strict codec.
func AddressToScript(id chain.ID, text string) ([]byte, bool) {
	return NewCodec(ModeStrict).ToScript(id, text)
}
