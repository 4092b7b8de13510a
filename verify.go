package manager

import (
	"context"
	"errors"
	"fmt"
	"log"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/explorer"
)

type VerifyResult struct {
	Address ethcommon.Address `json:"address"`
	GUID    string            `json:"guid"`
	Status  string            `json:"status"`
	URL     string            `json:"url"`
}

// Verify submits the contract source to the explorer and waits for the
// result. Constructor arguments are taken from params or, when params is
// nil, from the current on-chain values.
func (m *Manager) Verify(ctx context.Context, addr ethcommon.Address, source string, params *common.DeployParams) (*VerifyResult, error) {
	if !m.hasExplorer() {
		return nil, common.ErrNoExplorer
	}
	if m.deployer == nil {
		return nil, common.ErrNoDeployer
	}
	if addr == (ethcommon.Address{}) {
		presale, err := m.requirePresale()
		if err != nil {
			return nil, err
		}
		addr = presale.Address()
	}
	if params == nil {
		if m.bindPresale == nil {
			return nil, fmt.Errorf("constructor parameters are required")
		}
		presale, err := m.bindPresale(addr)
		if err != nil {
			return nil, err
		}
		onChain, err := presale.Params(ctx)
		if err != nil {
			return nil, fmt.Errorf("read presale params: %w", err)
		}
		params = &common.DeployParams{
			Token:      onChain.Token,
			StartTime:  onChain.StartTime,
			EndTime:    onChain.EndTime,
			HardCap:    onChain.HardCap,
			TokenPrice: onChain.TokenPrice,
		}
	}
	args, err := m.deployer.EncodeConstructorArgs(*params)
	if err != nil {
		return nil, err
	}

	vs := m.settings.Verify
	result := &VerifyResult{Address: addr, URL: m.chain.AddressURL(addr) + "#code"}
	guid, err := m.explorer.VerifySource(ctx, explorer.VerifyRequest{
		Address:         addr,
		SourceCode:      source,
		ContractName:    vs.ContractName,
		CompilerVersion: vs.CompilerVersion,
		Optimizer:       vs.Optimizer,
		Runs:            vs.Runs,
		ConstructorArgs: args,
	})
	if errors.Is(err, explorer.ErrAlreadyVerified) {
		result.Status = err.Error()
		m.record(ctx, common.ActionVerify, "", "", addr, nil)
		return result, nil
	}
	if err != nil {
		m.record(ctx, common.ActionVerify, "", "", addr, err)
		return nil, err
	}
	result.GUID = guid
	log.Printf("Verification of %s submitted, guid %s", addr.Hex(), guid)
	result.Status, err = m.explorer.WaitVerified(ctx, guid)
	m.record(ctx, common.ActionVerify, "", "", addr, err)
	if err != nil {
		return result, err
	}
	return result, nil
}
