package address

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/JokingLove/whale-alert-sync/database"
)

var ErrUnrecognizedAddress = errors.New("unrecognized address format")

const base58Chars = `123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz`

type rule struct {
	pattern    *regexp.Regexp
	blockchain database.Blockchain
}

// Patterns are mutually exclusive: bitcoin legacy starts with 1/3, bech32 with bc1,
// ethereum with 0x and tron with T.
var rules = []rule{
	{regexp.MustCompile(`^[13][` + base58Chars + `]{25,34}$`), database.BlockchainBitcoin},
	{regexp.MustCompile(`(?i)^bc1[a-z0-9]{39,87}$`), database.BlockchainBitcoin},
	{regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`), database.BlockchainEthereum},
	{regexp.MustCompile(`^T[` + base58Chars + `]{33}$`), database.BlockchainTron},
}

// Classify maps a wallet address to the blockchain whose address format it matches.
func Classify(addr string) (database.Blockchain, error) {
	addr = strings.TrimSpace(addr)
	for _, r := range rules {
		if r.pattern.MatchString(addr) {
			return r.blockchain, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedAddress, addr)
}

// Normalize classifies addr and returns its canonical spelling: EIP-55
// checksum case for ethereum, trimmed input for everything else.
func Normalize(addr string) (string, database.Blockchain, error) {
	blockchain, err := Classify(addr)
	if err != nil {
		return "", "", err
	}
	addr = strings.TrimSpace(addr)
	if blockchain == database.BlockchainEthereum {
		return common.HexToAddress(addr).Hex(), blockchain, nil
	}
	return addr, blockchain, nil
}
