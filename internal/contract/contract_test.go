package contract_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ProjectSubmission-Chain/internal/contract"
	"ProjectSubmission-Chain/internal/contract/contracttest"
	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestBindingResolvesOverloadedWithdraw(t *testing.T) {
	bound, err := contract.NewProjectSubmission(common.HexToAddress("0x01"), contracttest.New(common.HexToAddress("0x02")))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	plain, ok := bound.MethodName("withdraw()")
	if !ok {
		t.Fatal("withdraw() should be resolved")
	}
	author, ok := bound.MethodName("withdraw(bytes32)")
	if !ok {
		t.Fatal("withdraw(bytes32) should be resolved")
	}
	if plain == author {
		t.Fatalf("overloads must map to distinct methods, both are %s", plain)
	}
	if got := bound.ABI().Methods[author].Inputs; len(got) != 1 || got[0].Type.T != abi.FixedBytesTy {
		t.Fatalf("unexpected inputs for %s: %v", author, got)
	}
}

func TestBindingRejectsIncompleteABI(t *testing.T) {
	var entries []map[string]any
	if err := json.Unmarshal([]byte(contract.ProjectSubmissionABI), &entries); err != nil {
		t.Fatalf("decode abi: %v", err)
	}
	var trimmed []map[string]any
	for _, entry := range entries {
		if inputs, _ := entry["inputs"].([]any); entry["name"] == "withdraw" && len(inputs) == 1 {
			continue
		}
		trimmed = append(trimmed, entry)
	}
	raw, _ := json.Marshal(trimmed)
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("parse trimmed abi: %v", err)
	}
	_, err = contract.NewProjectSubmissionWithABI(common.HexToAddress("0x01"), parsed, contracttest.New(common.HexToAddress("0x02")))
	if err == nil || !strings.Contains(err.Error(), "withdraw(bytes32)") {
		t.Fatalf("expected missing overload error, got %v", err)
	}
}

func TestBindingAgainstEmulator(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)
	backend := contracttest.New(owner)
	backend.Fund(owner, big.NewInt(1_000_000_000_000_000_000))

	bound, err := contract.NewProjectSubmission(backend.ContractAddress(), backend)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(1337))
	if err != nil {
		t.Fatalf("transactor: %v", err)
	}

	university := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	if _, err := bound.RegisterUniversity(opts, university); err != nil {
		t.Fatalf("register university: %v", err)
	}

	call := &bind.CallOpts{Context: context.Background()}
	gotOwner, err := bound.Owner(call)
	if err != nil || gotOwner != owner {
		t.Fatalf("owner: got %s err %v", gotOwner.Hex(), err)
	}
	state, err := bound.Universities(call, university)
	if err != nil {
		t.Fatalf("universities: %v", err)
	}
	if !state.Available || state.Balance.Sign() != 0 {
		t.Fatalf("unexpected university state %+v", state)
	}
	project, err := bound.Projects(call, [32]byte{1})
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	if project.Exists() || project.Status != contract.StatusWaiting {
		t.Fatalf("unexpected empty project %+v", project)
	}
	if executed := backend.Executed(); len(executed) != 1 || executed[0] != "registerUniversity(address)" {
		t.Fatalf("unexpected executed calls %v", executed)
	}
}

func writeArtifact(t *testing.T, networks map[string]contract.ArtifactNetwork, withABI bool) string {
	t.Helper()
	artifact := map[string]any{
		"contractName": "ProjectSubmission",
		"bytecode":     "0x6080",
		"networks":     networks,
	}
	if withABI {
		artifact["abi"] = json.RawMessage(contract.ProjectSubmissionABI)
	}
	raw, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("encode artifact: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ProjectSubmission.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestArtifactResolverPicksNetworkAddress(t *testing.T) {
	backend := contracttest.New(common.HexToAddress("0x02"))
	path := writeArtifact(t, map[string]contract.ArtifactNetwork{
		"5777": {Address: backend.ContractAddress().Hex()},
	}, true)

	artifact, err := contract.LoadArtifact(path)
	if err != nil {
		t.Fatalf("load artifact: %v", err)
	}
	if len(artifact.Code()) != 2 {
		t.Fatalf("unexpected bytecode %x", artifact.Code())
	}

	resolver := contract.ArtifactResolver{Artifact: artifact}
	bound, err := resolver.Deployed(context.Background(), big.NewInt(5777), backend)
	if err != nil {
		t.Fatalf("deployed: %v", err)
	}
	if bound.Address() != backend.ContractAddress() {
		t.Fatalf("unexpected address %s", bound.Address().Hex())
	}

	_, err = resolver.Deployed(context.Background(), big.NewInt(1), backend)
	if !errors.Is(err, contract.ErrNotDeployed) {
		t.Fatalf("expected not deployed for unknown network, got %v", err)
	}
}

func TestArtifactWithoutABIUsesEmbeddedInterface(t *testing.T) {
	path := writeArtifact(t, nil, false)
	artifact, err := contract.LoadArtifact(path)
	if err != nil {
		t.Fatalf("load artifact: %v", err)
	}
	parsed, err := artifact.ParsedABI()
	if err != nil {
		t.Fatalf("parsed abi: %v", err)
	}
	if _, ok := parsed.Methods["submitProject"]; !ok {
		t.Fatal("expected embedded ABI methods")
	}
	if artifact.ABIJSON() != contract.ProjectSubmissionABI {
		t.Fatal("expected embedded ABI text")
	}
}

func TestArtifactNullABIMatchesMissingABI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ProjectSubmission.json")
	raw := `{"contractName": "ProjectSubmission", "abi": null, "bytecode": "0x6080", "networks": {}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	artifact, err := contract.LoadArtifact(path)
	if err != nil {
		t.Fatalf("load artifact: %v", err)
	}
	parsed, err := artifact.ParsedABI()
	if err != nil {
		t.Fatalf("parsed abi: %v", err)
	}
	if _, ok := parsed.Methods["donate"]; !ok {
		t.Fatal("expected embedded ABI methods")
	}
	if artifact.ABIJSON() != contract.ProjectSubmissionABI {
		t.Fatalf("null abi should fall back to the embedded text, got %q", artifact.ABIJSON())
	}
}

func TestAddressResolverRequiresCode(t *testing.T) {
	backend := contracttest.New(common.HexToAddress("0x02"))

	_, err := contract.AddressResolver{Address: common.HexToAddress("0xdead")}.Deployed(context.Background(), nil, backend)
	if !xerrors.HasCode(err, xerrors.CodeNotDeployed) {
		t.Fatalf("expected not deployed, got %v", err)
	}
	if _, err := (contract.AddressResolver{Address: backend.ContractAddress()}).Deployed(context.Background(), nil, backend); err != nil {
		t.Fatalf("deployed: %v", err)
	}
}

func TestRevertReason(t *testing.T) {
	reason, ok := contract.RevertReason(fmt.Errorf("send: %w", &contracttest.RevertError{Reason: "University is not available"}))
	if !ok || reason != "University is not available" {
		t.Fatalf("unexpected reason %q ok=%v", reason, ok)
	}
	if _, ok := contract.RevertReason(errors.New("connection refused")); ok {
		t.Fatal("plain errors carry no revert reason")
	}
}

func TestParseProjectStatus(t *testing.T) {
	cases := map[string]contract.ProjectStatus{
		"waiting":  contract.StatusWaiting,
		"approved": contract.StatusApproved,
		"3":        contract.StatusDisabled,
	}
	for input, want := range cases {
		got, err := contract.ParseProjectStatus(input)
		if err != nil || got != want {
			t.Fatalf("%s: got %v err %v", input, got, err)
		}
	}
	if _, err := contract.ParseProjectStatus("pending"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if contract.StatusRejected.String() != "rejected" {
		t.Fatalf("unexpected name %s", contract.StatusRejected)
	}
}

func TestDeployRejectsEmptyBytecode(t *testing.T) {
	parsed, err := contract.ParseABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	key, _ := crypto.GenerateKey()
	opts, _ := bind.NewKeyedTransactorWithChainID(key, big.NewInt(1337))

	backend := contracttest.New(crypto.PubkeyToAddress(key.PublicKey))
	if _, _, err := contract.Deploy(opts, parsed, nil, backend); err == nil {
		t.Fatal("expected error for empty bytecode")
	}
	if len(backend.Sent()) != 0 {
		t.Fatal("nothing should be sent")
	}
}
