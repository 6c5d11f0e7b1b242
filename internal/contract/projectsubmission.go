// Package contract binds the ProjectSubmission smart contract and resolves
// its deployed instance from truffle build artifacts or fixed addresses.
package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ProjectSubmission is a typed binding over a deployed ProjectSubmission
// contract. Method names are resolved from full signatures, so overloaded
// entry points get distinct Go methods instead of string keyed lookups.
type ProjectSubmission struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	methods  map[string]string
}

// ParseABI parses the embedded interface description.
func ParseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(ProjectSubmissionABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("解析 ProjectSubmission ABI 失败: %w", err)
	}
	return parsed, nil
}

// NewProjectSubmission binds the embedded ABI to address.
func NewProjectSubmission(address common.Address, backend bind.ContractBackend) (*ProjectSubmission, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, err
	}
	return NewProjectSubmissionWithABI(address, parsed, backend)
}

// NewProjectSubmissionWithABI binds a caller supplied interface description,
// typically the one shipped in a build artifact.
func NewProjectSubmissionWithABI(address common.Address, parsed abi.ABI, backend bind.ContractBackend) (*ProjectSubmission, error) {
	methods, err := resolveMethods(parsed)
	if err != nil {
		return nil, err
	}
	return &ProjectSubmission{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		methods:  methods,
	}, nil
}

// resolveMethods maps each required signature to the ABI method key that
// go-ethereum assigned to it (overloads are suffixed: withdraw, withdraw0).
func resolveMethods(parsed abi.ABI) (map[string]string, error) {
	bySig := make(map[string]string, len(parsed.Methods))
	for name, method := range parsed.Methods {
		bySig[method.Sig] = name
	}
	methods := make(map[string]string, len(requiredSignatures))
	for _, sig := range requiredSignatures {
		name, ok := bySig[sig]
		if !ok {
			return nil, fmt.Errorf("ABI 缺少方法 %s", sig)
		}
		methods[sig] = name
	}
	return methods, nil
}

// Address returns the bound contract address.
func (p *ProjectSubmission) Address() common.Address {
	return p.address
}

// ABI returns the bound interface description.
func (p *ProjectSubmission) ABI() abi.ABI {
	return p.abi
}

// MethodName returns the ABI key used for a full signature such as
// "withdraw(bytes32)".
func (p *ProjectSubmission) MethodName(signature string) (string, bool) {
	name, ok := p.methods[signature]
	return name, ok
}

func (p *ProjectSubmission) call(opts *bind.CallOpts, signature string, args ...any) ([]any, error) {
	var out []any
	if err := p.contract.Call(opts, &out, p.methods[signature], args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *ProjectSubmission) transact(opts *bind.TransactOpts, signature string, args ...any) (*types.Transaction, error) {
	return p.contract.Transact(opts, p.methods[signature], args...)
}

// Owner calls owner().
func (p *ProjectSubmission) Owner(opts *bind.CallOpts) (common.Address, error) {
	out, err := p.call(opts, sigOwner)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// OwnerBalance calls ownerBalance().
func (p *ProjectSubmission) OwnerBalance(opts *bind.CallOpts) (*big.Int, error) {
	out, err := p.call(opts, sigOwnerBalance)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Universities calls universities(address).
func (p *ProjectSubmission) Universities(opts *bind.CallOpts, university common.Address) (University, error) {
	out, err := p.call(opts, sigUniversities, university)
	if err != nil {
		return University{}, err
	}
	return University{
		Balance:   *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Available: *abi.ConvertType(out[1], new(bool)).(*bool),
	}, nil
}

// Projects calls projects(bytes32).
func (p *ProjectSubmission) Projects(opts *bind.CallOpts, projectHash [32]byte) (Project, error) {
	out, err := p.call(opts, sigProjects, projectHash)
	if err != nil {
		return Project{}, err
	}
	return Project{
		Author:     *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		University: *abi.ConvertType(out[1], new(common.Address)).(*common.Address),
		Status:     ProjectStatus(*abi.ConvertType(out[2], new(uint8)).(*uint8)),
		Balance:    *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
	}, nil
}

// RegisterUniversity sends registerUniversity(address).
func (p *ProjectSubmission) RegisterUniversity(opts *bind.TransactOpts, university common.Address) (*types.Transaction, error) {
	return p.transact(opts, sigRegisterUniversity, university)
}

// DisableUniversity sends disableUniversity(address).
func (p *ProjectSubmission) DisableUniversity(opts *bind.TransactOpts, university common.Address) (*types.Transaction, error) {
	return p.transact(opts, sigDisableUniversity, university)
}

// SubmitProject sends submitProject(bytes32,address). The submission fee is
// taken from opts.Value.
func (p *ProjectSubmission) SubmitProject(opts *bind.TransactOpts, projectHash [32]byte, university common.Address) (*types.Transaction, error) {
	return p.transact(opts, sigSubmitProject, projectHash, university)
}

// ReviewProject sends reviewProject(bytes32,uint8).
func (p *ProjectSubmission) ReviewProject(opts *bind.TransactOpts, projectHash [32]byte, status ProjectStatus) (*types.Transaction, error) {
	return p.transact(opts, sigReviewProject, projectHash, uint8(status))
}

// Donate sends donate(bytes32) with opts.Value as the donation.
func (p *ProjectSubmission) Donate(opts *bind.TransactOpts, projectHash [32]byte) (*types.Transaction, error) {
	return p.transact(opts, sigDonate, projectHash)
}

// WithdrawOwnerOrUniversity sends withdraw().
func (p *ProjectSubmission) WithdrawOwnerOrUniversity(opts *bind.TransactOpts) (*types.Transaction, error) {
	return p.transact(opts, sigWithdraw)
}

// WithdrawAuthor sends withdraw(bytes32).
func (p *ProjectSubmission) WithdrawAuthor(opts *bind.TransactOpts, projectHash [32]byte) (*types.Transaction, error) {
	return p.transact(opts, sigWithdrawAuthor, projectHash)
}
