package contract

import (
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
)

// Deploy sends the creation transaction for bytecode and binds the result.
// The contract must still be mined before it can be called.
func Deploy(opts *bind.TransactOpts, parsed abi.ABI, bytecode []byte, backend bind.ContractBackend) (*ProjectSubmission, *types.Transaction, error) {
	if len(bytecode) == 0 {
		return nil, nil, errors.New("合约字节码为空")
	}
	if _, err := resolveMethods(parsed); err != nil {
		return nil, nil, err
	}
	address, tx, _, err := bind.DeployContract(opts, parsed, bytecode, backend)
	if err != nil {
		return nil, nil, err
	}
	bound, err := NewProjectSubmissionWithABI(address, parsed, backend)
	if err != nil {
		return nil, nil, err
	}
	return bound, tx, nil
}
