package stacks

import (
	"fmt"

	"github.com/stackpay/stackpay/types"
)

// Hash160Size is the size of the hash embedded in a Stacks address.
const Hash160Size = 20

// checksumSize is the length of the c32check trailer.
const checksumSize = 4

// Address version bytes for single-signature accounts.
const (
	VersionMainnet byte = 22 // SP prefix
	VersionTestnet byte = 26 // ST prefix
)

// DecodeAddress decodes a c32check Stacks address into its version byte
// and 20-byte hash160, verifying the checksum.
func DecodeAddress(address string) (byte, [Hash160Size]byte, error) {
	var hash [Hash160Size]byte

	if len(address) <= 5 || address[0] != 'S' {
		return 0, hash, types.NewError(types.ErrInvalidAddress, "not a Stacks address")
	}

	versionIdx, ok := c32Index[rune(c32Normalize(address[1:2])[0])]
	if !ok {
		return 0, hash, types.NewError(types.ErrInvalidAddress, "invalid version character")
	}
	version := byte(versionIdx)

	payload, err := c32Decode(address[2:])
	if err != nil {
		return 0, hash, types.WrapError(types.ErrInvalidAddress, "undecodable address body", err)
	}

	if len(payload) != Hash160Size+checksumSize {
		return 0, hash, types.NewError(types.ErrInvalidAddress,
			fmt.Sprintf("decoded hash is %d bytes, want %d", len(payload)-checksumSize, Hash160Size))
	}

	body := payload[:Hash160Size]
	sum := c32Checksum(version, body)
	if string(payload[Hash160Size:]) != string(sum[:]) {
		return 0, hash, types.NewError(types.ErrInvalidAddress, "checksum mismatch")
	}

	copy(hash[:], body)
	return version, hash, nil
}

// EncodeRecipient converts a Stacks address into the 32-byte recipient
// value the xReserve depositToRemote call expects. The layout is a wire
// contract with the bridge contract and must not change:
//
//	bytes 0..10   zero padding
//	byte  11      address version byte
//	bytes 12..31  20-byte hash160
func EncodeRecipient(address string) ([32]byte, error) {
	var out [32]byte

	version, hash, err := DecodeAddress(address)
	if err != nil {
		return out, err
	}

	out[11] = version
	copy(out[12:], hash[:])
	return out, nil
}

// Validate reports whether address is a well-formed Stacks address with a
// mainnet (SP) or testnet (ST) prefix. It never returns an error and is
// meant for form validation.
func Validate(address string) bool {
	if len(address) < 2 {
		return false
	}
	if address[:2] != "SP" && address[:2] != "ST" {
		return false
	}
	_, _, err := DecodeAddress(address)
	return err == nil
}

// AddressExplorerURL returns the Hiro explorer URL for an address.
func AddressExplorerURL(address string, testnet bool) string {
	if testnet {
		return fmt.Sprintf("%s/address/%s?chain=testnet", types.StacksExplorerURL, address)
	}
	return fmt.Sprintf("%s/address/%s", types.StacksExplorerURL, address)
}

// TxExplorerURL returns the Hiro explorer URL for a transaction.
func TxExplorerURL(txID string, testnet bool) string {
	if testnet {
		return fmt.Sprintf("%s/txid/%s?chain=testnet", types.StacksExplorerURL, txID)
	}
	return fmt.Sprintf("%s/txid/%s", types.StacksExplorerURL, txID)
}
