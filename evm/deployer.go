package evm

import (
	"context"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/RomanDevelop/alien-manager/common"
)

// SendDeployPresale signs and broadcasts the AlienPresale creation
// transaction. The returned address is derived from sender and nonce, it
// holds code only after the transaction is mined.
func (c *Client) SendDeployPresale(ctx context.Context, artifact *Artifact, params common.DeployParams) (ethcommon.Address, *types.Transaction, error) {
	if params.HardCap == nil || params.TokenPrice == nil {
		return ethcommon.Address{}, nil, fmt.Errorf("hard cap and token price are required")
	}
	opts, err := c.transactOpts(ctx, nil, 0)
	if err != nil {
		return ethcommon.Address{}, nil, err
	}
	addr, tx, _, err := bind.DeployContract(opts, artifact.ABI, artifact.Bytecode, c.eth, constructorArgs(params)...)
	if err != nil {
		return ethcommon.Address{}, nil, fmt.Errorf("cannot deploy %s: %w", artifact.ContractName, parseRPCError(err))
	}
	log.Printf("Deploy transaction %s sent, contract address will be %s", tx.Hash().Hex(), addr.Hex())
	return addr, tx, nil
}

// WaitDeployed waits for the creation transaction and checks that the
// contract code is in place.
func (c *Client) WaitDeployed(ctx context.Context, tx *types.Transaction) (ethcommon.Address, common.TxResult, error) {
	res, err := c.WaitMined(ctx, tx)
	if err != nil {
		return ethcommon.Address{}, res, err
	}
	receipt, err := c.eth.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		return ethcommon.Address{}, res, fmt.Errorf("get receipt: %w", err)
	}
	if receipt.ContractAddress == (ethcommon.Address{}) {
		return ethcommon.Address{}, res, fmt.Errorf("%w: tx %s", ErrNotContractCreation, tx.Hash().Hex())
	}
	code, err := c.eth.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return ethcommon.Address{}, res, fmt.Errorf("get code: %w", err)
	}
	if len(code) == 0 {
		return ethcommon.Address{}, res, ErrNoCode
	}
	return receipt.ContractAddress, res, nil
}

// Deployer deploys the presale from a fixed artifact.
type Deployer struct {
	client   *Client
	artifact *Artifact
}

func NewDeployer(client *Client, artifact *Artifact) *Deployer {
	return &Deployer{client: client, artifact: artifact}
}

func (d *Deployer) SendDeploy(ctx context.Context, params common.DeployParams) (ethcommon.Address, *types.Transaction, error) {
	return d.client.SendDeployPresale(ctx, d.artifact, params)
}

func (d *Deployer) WaitDeployed(ctx context.Context, tx *types.Transaction) (ethcommon.Address, common.TxResult, error) {
	return d.client.WaitDeployed(ctx, tx)
}

func (d *Deployer) EncodeConstructorArgs(params common.DeployParams) ([]byte, error) {
	return d.artifact.EncodeConstructorArgs(params)
}
