package manager

import (
	"context"
	"fmt"
	"log"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/RomanDevelop/alien-manager/common"
	"github.com/RomanDevelop/alien-manager/schedule"
)

// DefaultDeployParams returns the parameters of a presale starting a few
// minutes from now with the default hard cap and price.
func (m *Manager) DefaultDeployParams(token ethcommon.Address) (common.DeployParams, error) {
	if token == (ethcommon.Address{}) {
		token = common.DefaultTokenAddress
	}
	hardCap, err := common.ParseEther(common.DefaultHardCap)
	if err != nil {
		return common.DeployParams{}, err
	}
	price, err := common.ParseEther(common.DefaultTokenPrice)
	if err != nil {
		return common.DeployParams{}, err
	}
	start, end := m.rules.DeployWindow()
	return common.DeployParams{
		Token:      token,
		StartTime:  start,
		EndTime:    end,
		HardCap:    hardCap,
		TokenPrice: price,
	}, nil
}

// Deploy creates a presale contract, waits until it is mined and reads its
// parameters back. It makes a single attempt.
func (m *Manager) Deploy(ctx context.Context, params common.DeployParams) (*common.Deployment, error) {
	if m.deployer == nil {
		return nil, common.ErrNoDeployer
	}
	if err := m.requireSigner(); err != nil {
		return nil, err
	}
	if err := schedule.ValidateTimes(params.StartTime, params.EndTime); err != nil {
		return nil, err
	}
	if params.HardCap == nil || params.HardCap.Sign() <= 0 || params.TokenPrice == nil || params.TokenPrice.Sign() <= 0 {
		return nil, common.ErrInvalidAmount
	}

	addr, tx, err := m.deployer.SendDeploy(ctx, params)
	if err != nil {
		m.record(ctx, common.ActionDeploy, "", "", m.chain.Account(), err)
		return nil, err
	}
	log.Printf("Waiting for deployment of %s: %s", addr.Hex(), m.chain.TxURL(tx.Hash()))
	deployed, res, err := m.deployer.WaitDeployed(ctx, tx)
	m.record(ctx, common.ActionDeploy, tx.Hash().Hex(), "", deployed, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTxFailed, err)
	}

	d := &common.Deployment{
		Address:     deployed,
		Tx:          res,
		Params:      params,
		ExplorerURL: m.chain.AddressURL(deployed),
	}
	if m.bindPresale == nil {
		return d, nil
	}
	presale, err := m.bindPresale(deployed)
	if err != nil {
		return d, fmt.Errorf("bind deployed presale: %w", err)
	}
	onChain, err := presale.Params(ctx)
	if err != nil {
		return d, fmt.Errorf("read deployed presale: %w", err)
	}
	d.OnChain = *onChain
	return d, nil
}
