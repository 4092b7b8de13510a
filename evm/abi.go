package evm

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Interface of the deployed AlienPresale contract. Deployment itself uses the
// ABI from the compiled artifact.
//
//go:embed abi/AlienPresale.json
var presaleABIJson []byte

//go:embed abi/ERC20.json
var erc20ABIJson []byte

var (
	presaleABI = mustParseABI("AlienPresale", presaleABIJson)
	erc20ABI   = mustParseABI("ERC20", erc20ABIJson)
)

func mustParseABI(name string, data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("parse %s ABI: %v", name, err))
	}
	return parsed
}

func PresaleABI() abi.ABI {
	return presaleABI
}
