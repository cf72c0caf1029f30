package address

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Encoding is the text encoding a Decoded value was parsed from.
type Encoding uint8

const (
	EncodingBase58Check Encoding = iota
	EncodingBech32
	EncodingBech32m
)

func (e Encoding) String() string {
	switch e {
	case EncodingBase58Check:
		return "base58check"
	case EncodingBech32:
		return "bech32"
	case EncodingBech32m:
		return "bech32m"
	default:
		return "unknown"
	}
}

// Decoded is the result of a successful decode. Version is the Base58Check
// version byte or the segwit witness version.
type Decoded struct {
	Version  byte
	Payload  []byte
	Encoding Encoding
}

// bech32Charset maps 5-bit values to characters (BIP-173).
const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var segwitHRPs = map[string]bool{
	"bc":   true,
	"tb":   true,
	"bcrt": true,
}

// DecodeBase58Check decodes text as Base58Check. The decoded bytes must hold
// at least a version byte and the 4-byte double-SHA256 checksum; any invalid
// character or checksum mismatch yields false.
func DecodeBase58Check(text string) (Decoded, bool) {
	payload, version, err := base58.CheckDecode(text)
	if err != nil {
		return Decoded{}, false
	}
	return Decoded{Version: version, Payload: payload, Encoding: EncodingBase58Check}, true
}

// EncodeBase58Check is the inverse of DecodeBase58Check.
func EncodeBase58Check(version byte, payload []byte) string {
	return base58.CheckEncode(payload, version)
}

// DecodeSegwitStrict accepts only BTC-family HRPs carrying a witness version 0
// program under the BIP-173 Bech32 checksum. Leftover padding bits and
// program lengths other than 20 or 32 bytes reject the address.
func DecodeSegwitStrict(text string) (Decoded, bool) {
	hrp, data, variant, err := bech32.DecodeGeneric(text)
	if err != nil {
		return Decoded{}, false
	}
	if !segwitHRPs[hrp] || len(data) == 0 {
		return Decoded{}, false
	}
	// BIP-350: v0 must use Bech32, never Bech32m.
	if data[0] != 0 || variant != bech32.Version0 {
		return Decoded{}, false
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return Decoded{}, false
	}
	if len(program) != 20 && len(program) != 32 {
		return Decoded{}, false
	}
	return Decoded{Version: 0, Payload: program, Encoding: EncodingBech32}, true
}

// decodeSegwitPermissive trades checksum integrity for parseability. It is
// only reachable through ModePermissive.
func decodeSegwitPermissive(text string) (Decoded, bool) {
	if _, data, variant, err := bech32.DecodeGeneric(text); err == nil {
		if len(data) == 0 {
			return Decoded{}, false
		}
		if program, err := bech32.ConvertBits(data[1:], 5, 8, true); err == nil {
			enc := EncodingBech32
			if variant == bech32.VersionM {
				enc = EncodingBech32m
			}
			return Decoded{Version: data[0], Payload: program, Encoding: enc}, true
		}
	}

	s := strings.TrimSpace(text)
	pos := strings.LastIndexByte(s, '1')
	if pos < 0 {
		return Decoded{}, false
	}
	dataPart := s[pos+1:]
	if len(dataPart) < 7 {
		return Decoded{}, false
	}
	values := make([]byte, 0, len(dataPart))
	for i := 0; i < len(dataPart); i++ {
		idx := strings.IndexByte(bech32Charset, dataPart[i])
		if idx < 0 {
			return Decoded{}, false
		}
		values = append(values, byte(idx))
	}
	// trailing 6 values are the checksum; it is not verified here.
	values = values[:len(values)-6]

	program, err := bech32.ConvertBits(values[1:], 5, 8, true)
	if err != nil {
		return Decoded{}, false
	}
	if len(program) == 33 {
		program = trimProgram(program)
	}
	return Decoded{Version: values[0], Payload: program, Encoding: EncodingBech32}, true
}

// trimProgram coerces a 33-byte padded program to 32 bytes. The rule is
// inherited and unvalidated: drop a leading zero, else a trailing zero, else
// the leading byte.
func trimProgram(program []byte) []byte {
	switch {
	case program[0] == 0:
		return program[1:]
	case program[32] == 0:
		return program[:32]
	default:
		return program[1:]
	}
}
