package address

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// P2PKHScript builds OP_DUP OP_HASH160 <hash160> OP_EQUALVERIFY OP_CHECKSIG.
// Callers guarantee hash160 is 20 bytes.
func P2PKHScript(hash160 []byte) []byte {
	script, _ := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(hash160).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	return script
}

// SegwitV0Script builds OP_0 <program> for 20-byte (P2WPKH) and 32-byte
// (P2WSH) programs.
func SegwitV0Script(program []byte) ([]byte, bool) {
	if len(program) != 20 && len(program) != 32 {
		return nil, false
	}
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(program).
		Script()
	if err != nil {
		return nil, false
	}
	return script, true
}

// Scripthash returns the electrum-style index key for script: SHA256 with the
// digest bytes reversed, hex encoded.
func Scripthash(script []byte) string {
	// chainhash renders hashes in reversed byte order.
	return chainhash.HashH(script).String()
}
