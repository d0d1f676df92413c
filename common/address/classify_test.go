package address

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JokingLove/whale-alert-sync/database"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    database.Blockchain
	}{
		{"bitcoin legacy", "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", database.BlockchainBitcoin},
		{"bitcoin p2sh", "34xp4vRoCGJym3xR7yCVPFHoCNxv4Twseo", database.BlockchainBitcoin},
		{"bitcoin bech32", "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh", database.BlockchainBitcoin},
		{"bitcoin bech32 upper case", "BC1QXY2KGDYGJRSQTZQ2N0YRF2493P83KKFJHX0WLH", database.BlockchainBitcoin},
		{"bitcoin taproot", "bc1qgdjqv0av3q56jvd82tkdjpy7gdp9ut8tlqmgrpmv24sq90ecnvqqjwvw97", database.BlockchainBitcoin},
		{"ethereum", "0xAbC0000000000000000000000000000000000dEf", database.BlockchainEthereum},
		{"ethereum checksummed", "0x95222290DD7278Aa3Ddd389Cc1E1d165CC4BAfe5", database.BlockchainEthereum},
		{"tron", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", database.BlockchainTron},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.address)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	for _, addr := range []string{
		"abc123XYZ0",
		"",
		"0x1234",
		"0xZZC0000000000000000000000000000000000dEf",
		"T0000000000000000000000000000000000",
		"2BoatSLRHtKNngkdXEeobR76b53LETtpyT",
		"1BoatSLRHtKNngkdXEeobR76b53LETtpy0",
	} {
		_, err := Classify(addr)
		require.ErrorIs(t, err, ErrUnrecognizedAddress, addr)
	}
}

func TestNormalize(t *testing.T) {
	addr, bc, err := Normalize("0x28c6c06298d514db089934071355e5743bf21d60")
	require.NoError(t, err)
	require.Equal(t, database.BlockchainEthereum, bc)
	require.Equal(t, "0x28C6c06298d514Db089934071355E5743bf21d60", addr)

	addr, bc, err = Normalize("  1BoatSLRHtKNngkdXEeobR76b53LETtpyT ")
	require.NoError(t, err)
	require.Equal(t, database.BlockchainBitcoin, bc)
	require.Equal(t, "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", addr)

	_, _, err = Normalize("nope")
	require.ErrorIs(t, err, ErrUnrecognizedAddress)
}
