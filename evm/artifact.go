package evm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/RomanDevelop/alien-manager/common"
)

// Artifact is a compiled contract as written by Hardhat
// (artifacts/contracts/<Name>.sol/<Name>.json).
type Artifact struct {
	ContractName string
	SourceName   string
	ABI          abi.ABI
	Bytecode     []byte
}

type rawArtifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// Foundry style {"object": "0x..."} bytecode.
type bytecodeObject struct {
	Object string `json:"object"`
}

func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact not found at %s, compile contracts first: %w", path, err)
	}
	return ParseArtifact(data)
}

func ParseArtifact(data []byte) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact has no abi")
	}
	parsedABI, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	code, err := parseBytecode(raw.Bytecode)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		ContractName: raw.ContractName,
		SourceName:   raw.SourceName,
		ABI:          parsedABI,
		Bytecode:     code,
	}, nil
}

func parseBytecode(raw json.RawMessage) ([]byte, error) {
	var hexCode string
	if err := json.Unmarshal(raw, &hexCode); err != nil {
		var obj bytecodeObject
		if err2 := json.Unmarshal(raw, &obj); err2 != nil {
			return nil, fmt.Errorf("decode bytecode: %w", err)
		}
		hexCode = obj.Object
	}
	if !strings.HasPrefix(hexCode, "0x") {
		hexCode = "0x" + hexCode
	}
	code, err := hexutil.Decode(hexCode)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode hex: %w", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("artifact has empty bytecode (abstract contract or interface?)")
	}
	return code, nil
}

func constructorArgs(p common.DeployParams) []interface{} {
	return []interface{}{
		p.Token,
		common.UnixBig(p.StartTime),
		common.UnixBig(p.EndTime),
		new(big.Int).Set(p.HardCap),
		new(big.Int).Set(p.TokenPrice),
	}
}

// EncodeConstructorArgs returns ABI encoded constructor arguments as used by
// explorer source verification.
func (a *Artifact) EncodeConstructorArgs(p common.DeployParams) ([]byte, error) {
	if p.HardCap == nil || p.TokenPrice == nil {
		return nil, fmt.Errorf("hard cap and token price are required")
	}
	packed, err := a.ABI.Pack("", constructorArgs(p)...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor args: %w", err)
	}
	return packed, nil
}

// DecodeConstructorArgs is the reverse of EncodeConstructorArgs.
func (a *Artifact) DecodeConstructorArgs(data []byte) (common.DeployParams, error) {
	values, err := a.ABI.Constructor.Inputs.Unpack(data)
	if err != nil {
		return common.DeployParams{}, fmt.Errorf("unpack constructor args: %w", err)
	}
	if len(values) != 5 {
		return common.DeployParams{}, fmt.Errorf("expected 5 constructor args, got %d", len(values))
	}
	token, ok := values[0].(ethcommon.Address)
	if !ok {
		return common.DeployParams{}, fmt.Errorf("unexpected token arg type %T", values[0])
	}
	nums := make([]*big.Int, 4)
	for i := range nums {
		n, ok := values[i+1].(*big.Int)
		if !ok {
			return common.DeployParams{}, fmt.Errorf("unexpected arg %d type %T", i+1, values[i+1])
		}
		nums[i] = n
	}
	return common.DeployParams{
		Token:      token,
		StartTime:  common.TimeFromBig(nums[0]),
		EndTime:    common.TimeFromBig(nums[1]),
		HardCap:    nums[2],
		TokenPrice: nums[3],
	}, nil
}
