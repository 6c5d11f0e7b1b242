// Package contracttest provides an in-memory backend that executes the
// ProjectSubmission contract rules in Go. It satisfies bind.ContractBackend
// and bind.DeployBackend so bindings and sessions can be exercised without a
// node or compiled bytecode. Gas is not charged; every sent transaction is
// mined into its own block immediately. Creation transactions always succeed
// unless their init code is FailingInitCode.
package contracttest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"ProjectSubmission-Chain/internal/contract"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/params"
)

// FailingInitCode is creation bytecode whose deployment is mined with a
// failed receipt; it starts with the INVALID opcode.
var FailingInitCode = []byte{0xfe, 0x60, 0x80}

// MinSubmissionFee is the value submitProject requires.
var MinSubmissionFee = big.NewInt(params.Ether)

const estimatedGas = 150_000

// RevertError is returned for calls rejected by a require(). It carries the
// Error(string) payload in ErrorData like a JSON-RPC node does.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string { return "execution reverted: " + e.Reason }

// ErrorCode matches the JSON-RPC code nodes use for reverts.
func (e *RevertError) ErrorCode() int { return 3 }

// ErrorData returns the hex encoded revert payload.
func (e *RevertError) ErrorData() interface{} {
	return hexutil.Encode(contract.PackRevert(e.Reason))
}

func revert(reason string) error { return &RevertError{Reason: reason} }

type state struct {
	ownerBalance *big.Int
	universities map[common.Address]*contract.University
	projects     map[[32]byte]*contract.Project
	balances     map[common.Address]*big.Int
}

func (s *state) clone() *state {
	c := &state{
		ownerBalance: new(big.Int).Set(s.ownerBalance),
		universities: make(map[common.Address]*contract.University, len(s.universities)),
		projects:     make(map[[32]byte]*contract.Project, len(s.projects)),
		balances:     make(map[common.Address]*big.Int, len(s.balances)),
	}
	for k, v := range s.universities {
		c.universities[k] = &contract.University{Balance: new(big.Int).Set(v.Balance), Available: v.Available}
	}
	for k, v := range s.projects {
		p := *v
		p.Balance = new(big.Int).Set(v.Balance)
		c.projects[k] = &p
	}
	for k, v := range s.balances {
		c.balances[k] = new(big.Int).Set(v)
	}
	return c
}

func (s *state) balance(addr common.Address) *big.Int {
	if b, ok := s.balances[addr]; ok {
		return b
	}
	b := new(big.Int)
	s.balances[addr] = b
	return b
}

// Backend is the in-memory ProjectSubmission chain.
type Backend struct {
	mu       sync.Mutex
	chainID  *big.Int
	signer   types.Signer
	abi      abi.ABI
	owner    common.Address
	address  common.Address
	st       *state
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	sent     []*types.Transaction
	executed []string
	block    uint64
}

// New deploys an emulated ProjectSubmission owned by owner on chain 1337.
func New(owner common.Address) *Backend {
	parsed, err := contract.ParseABI()
	if err != nil {
		panic(err)
	}
	chainID := big.NewInt(1337)
	return &Backend{
		chainID: chainID,
		signer:  types.LatestSignerForChainID(chainID),
		abi:     parsed,
		owner:   owner,
		address: crypto.CreateAddress(owner, 0),
		st: &state{
			ownerBalance: new(big.Int),
			universities: make(map[common.Address]*contract.University),
			projects:     make(map[[32]byte]*contract.Project),
			balances:     make(map[common.Address]*big.Int),
		},
		nonces:   map[common.Address]uint64{owner: 1},
		receipts: make(map[common.Hash]*types.Receipt),
		block:    1,
	}
}

// Fund credits addr with wei.
func (b *Backend) Fund(addr common.Address, wei *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.st.balance(addr)
	bal.Add(bal, wei)
}

// ContractAddress returns the emulated deployment address.
func (b *Backend) ContractAddress() common.Address { return b.address }

// Owner returns the contract owner.
func (b *Backend) Owner() common.Address { return b.owner }

// ChainID implements the ChainID reader used by clients.
func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

// BalanceAt returns the native balance of addr.
func (b *Backend) BalanceAt(_ context.Context, addr common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.st.balance(addr)), nil
}

// Sent returns every transaction accepted so far, in order.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

// Executed returns the signatures of successfully mined contract calls.
func (b *Backend) Executed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.executed...)
}

// CodeAt reports non-empty code only for the contract address.
func (b *Backend) CodeAt(_ context.Context, addr common.Address, _ *big.Int) ([]byte, error) {
	if addr == b.address {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

// PendingCodeAt implements bind.ContractTransactor.
func (b *Backend) PendingCodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return b.CodeAt(ctx, addr, nil)
}

// CallContract executes msg against a copy of the state.
func (b *Backend) CallContract(_ context.Context, msg gethcore.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out, _, err := b.execute(b.st.clone(), msg.From, msg.To, msg.Value, msg.Data)
	return out, err
}

// HeaderByNumber returns a pre-London header so bindings use legacy pricing.
func (b *Backend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.block)}, nil
}

// PendingNonceAt implements bind.ContractTransactor.
func (b *Backend) PendingNonceAt(_ context.Context, addr common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[addr], nil
}

// SuggestGasPrice implements bind.ContractTransactor.
func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(params.GWei), nil
}

// SuggestGasTipCap implements bind.ContractTransactor.
func (b *Backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(params.GWei), nil
}

// EstimateGas dry-runs msg and surfaces reverts like a node does.
func (b *Backend) EstimateGas(_ context.Context, msg gethcore.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, _, err := b.execute(b.st.clone(), msg.From, msg.To, msg.Value, msg.Data); err != nil {
		return 0, err
	}
	return estimatedGas, nil
}

// SendTransaction validates the signature and nonce, then mines tx. A
// reverted execution still produces a receipt with failed status.
func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	from, err := types.Sender(b.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if want := b.nonces[from]; tx.Nonce() != want {
		return fmt.Errorf("nonce too low: address %s, tx: %d state: %d", from.Hex(), tx.Nonce(), want)
	}
	if b.st.balance(from).Cmp(tx.Value()) < 0 {
		return errors.New("insufficient funds for gas * price + value")
	}
	b.nonces[from]++
	b.block++

	next := b.st.clone()
	_, sig, execErr := b.execute(next, from, tx.To(), tx.Value(), tx.Data())
	status := types.ReceiptStatusSuccessful
	if execErr != nil {
		status = types.ReceiptStatusFailed
	} else {
		b.st = next
		if sig != "" {
			b.executed = append(b.executed, sig)
		}
	}

	b.sent = append(b.sent, tx)
	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            status,
		TxHash:            tx.Hash(),
		GasUsed:           estimatedGas,
		CumulativeGasUsed: estimatedGas,
		BlockNumber:       new(big.Int).SetUint64(b.block),
		BlockHash:         crypto.Keccak256Hash(new(big.Int).SetUint64(b.block).Bytes()),
		Logs:              []*types.Log{},
	}
	if tx.To() == nil {
		receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
	}
	b.receipts[tx.Hash()] = receipt
	return nil
}

// TransactionReceipt implements bind.DeployBackend.
func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	receipt, ok := b.receipts[hash]
	if !ok {
		return nil, gethcore.NotFound
	}
	return receipt, nil
}

// FilterLogs implements bind.ContractFilterer. The emulator emits no logs.
func (b *Backend) FilterLogs(context.Context, gethcore.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

// SubscribeFilterLogs implements bind.ContractFilterer.
func (b *Backend) SubscribeFilterLogs(context.Context, gethcore.FilterQuery, chan<- types.Log) (gethcore.Subscription, error) {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

func (b *Backend) execute(st *state, from common.Address, to *common.Address, value *big.Int, data []byte) ([]byte, string, error) {
	if value == nil {
		value = new(big.Int)
	}
	if to == nil {
		if len(data) > 0 && data[0] == FailingInitCode[0] {
			return nil, "", errors.New("invalid opcode: INVALID")
		}
		return nil, "", nil
	}
	if *to != b.address {
		if value.Sign() > 0 {
			if st.balance(from).Cmp(value) < 0 {
				return nil, "", errors.New("insufficient funds for transfer")
			}
			st.balance(from).Sub(st.balance(from), value)
			recipient := st.balance(*to)
			recipient.Add(recipient, value)
		}
		return nil, "", nil
	}
	if len(data) < 4 {
		return nil, "", revert("fallback not supported")
	}
	method, err := b.abi.MethodById(data[:4])
	if err != nil {
		return nil, "", revert("unknown selector")
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, method.Sig, revert("invalid calldata")
	}
	if value.Sign() > 0 && !method.IsPayable() {
		return nil, method.Sig, revert("non-payable function")
	}
	if value.Sign() > 0 {
		if st.balance(from).Cmp(value) < 0 {
			return nil, method.Sig, errors.New("insufficient funds for transfer")
		}
		st.balance(from).Sub(st.balance(from), value)
		held := st.balance(b.address)
		held.Add(held, value)
	}

	out, err := b.dispatch(st, method, from, value, args)
	if err != nil {
		return nil, method.Sig, err
	}
	return out, method.Sig, nil
}

func (b *Backend) dispatch(st *state, method *abi.Method, from common.Address, value *big.Int, args []interface{}) ([]byte, error) {
	onlyOwner := func() error {
		if from != b.owner {
			return revert("Only owner can call this function")
		}
		return nil
	}

	switch method.Sig {
	case "owner()":
		return method.Outputs.Pack(b.owner)
	case "ownerBalance()":
		return method.Outputs.Pack(new(big.Int).Set(st.ownerBalance))
	case "universities(address)":
		u := st.universities[args[0].(common.Address)]
		if u == nil {
			return method.Outputs.Pack(new(big.Int), false)
		}
		return method.Outputs.Pack(new(big.Int).Set(u.Balance), u.Available)
	case "projects(bytes32)":
		p := st.projects[args[0].([32]byte)]
		if p == nil {
			return method.Outputs.Pack(common.Address{}, common.Address{}, uint8(0), new(big.Int))
		}
		return method.Outputs.Pack(p.Author, p.University, uint8(p.Status), new(big.Int).Set(p.Balance))
	case "registerUniversity(address)":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		addr := args[0].(common.Address)
		u := st.universities[addr]
		if u != nil && u.Available {
			return nil, revert("University is already registered")
		}
		if u == nil {
			u = &contract.University{Balance: new(big.Int)}
			st.universities[addr] = u
		}
		u.Available = true
		return nil, nil
	case "disableUniversity(address)":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		u := st.universities[args[0].(common.Address)]
		if u == nil || !u.Available {
			return nil, revert("University is not registered")
		}
		u.Available = false
		return nil, nil
	case "submitProject(bytes32,address)":
		hash, university := args[0].([32]byte), args[1].(common.Address)
		if value.Cmp(MinSubmissionFee) < 0 {
			return nil, revert("Submission fee is 1 ether")
		}
		if u := st.universities[university]; u == nil || !u.Available {
			return nil, revert("University is not available")
		}
		if _, exists := st.projects[hash]; exists {
			return nil, revert("Project already submitted")
		}
		st.projects[hash] = &contract.Project{
			Author:     from,
			University: university,
			Status:     contract.StatusWaiting,
			Balance:    new(big.Int),
		}
		st.ownerBalance.Add(st.ownerBalance, value)
		return nil, nil
	case "reviewProject(bytes32,uint8)":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		p := st.projects[args[0].([32]byte)]
		if p == nil || p.Status != contract.StatusWaiting {
			return nil, revert("Project is not waiting for review")
		}
		status := contract.ProjectStatus(args[1].(uint8))
		if status > contract.StatusDisabled {
			return nil, revert("Invalid status")
		}
		p.Status = status
		return nil, nil
	case "donate(bytes32)":
		p := st.projects[args[0].([32]byte)]
		if p == nil || p.Status != contract.StatusApproved {
			return nil, revert("Project is not approved")
		}
		authorShare := new(big.Int).Div(new(big.Int).Mul(value, big.NewInt(70)), big.NewInt(100))
		universityShare := new(big.Int).Div(new(big.Int).Mul(value, big.NewInt(20)), big.NewInt(100))
		ownerShare := new(big.Int).Sub(new(big.Int).Sub(value, authorShare), universityShare)
		p.Balance.Add(p.Balance, authorShare)
		if u := st.universities[p.University]; u != nil {
			u.Balance.Add(u.Balance, universityShare)
		} else {
			ownerShare.Add(ownerShare, universityShare)
		}
		st.ownerBalance.Add(st.ownerBalance, ownerShare)
		return nil, nil
	case "withdraw()":
		var amount *big.Int
		if from == b.owner {
			amount = new(big.Int).Set(st.ownerBalance)
			st.ownerBalance.SetInt64(0)
		} else if u := st.universities[from]; u != nil {
			amount = new(big.Int).Set(u.Balance)
			u.Balance.SetInt64(0)
		}
		if amount == nil || amount.Sign() == 0 {
			return nil, revert("No funds to withdraw")
		}
		return nil, b.payout(st, from, amount)
	case "withdraw(bytes32)":
		p := st.projects[args[0].([32]byte)]
		if p == nil || p.Author != from {
			return nil, revert("Only the project author can withdraw")
		}
		if p.Balance.Sign() == 0 {
			return nil, revert("No funds to withdraw")
		}
		amount := new(big.Int).Set(p.Balance)
		p.Balance.SetInt64(0)
		return nil, b.payout(st, from, amount)
	default:
		return nil, revert("unsupported method " + method.Sig)
	}
}

func (b *Backend) payout(st *state, to common.Address, amount *big.Int) error {
	held := st.balance(b.address)
	if held.Cmp(amount) < 0 {
		return revert("contract balance too low")
	}
	held.Sub(held, amount)
	recipient := st.balance(to)
	recipient.Add(recipient, amount)
	return nil
}
