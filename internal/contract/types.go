package contract

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// ProjectStatus mirrors the contract's review status enum.
type ProjectStatus uint8

const (
	StatusWaiting ProjectStatus = iota
	StatusRejected
	StatusApproved
	StatusDisabled
)

var statusNames = map[ProjectStatus]string{
	StatusWaiting:  "waiting",
	StatusRejected: "rejected",
	StatusApproved: "approved",
	StatusDisabled: "disabled",
}

func (s ProjectStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseProjectStatus accepts either a status name or its numeric value.
func ParseProjectStatus(value string) (ProjectStatus, error) {
	for status, name := range statusNames {
		if name == value {
			return status, nil
		}
	}
	n, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("未知的项目状态 %q", value)
	}
	return ProjectStatus(n), nil
}

// University is the record stored under universities(address).
type University struct {
	Balance   *big.Int
	Available bool
}

// Project is the record stored under projects(bytes32).
type Project struct {
	Author     common.Address
	University common.Address
	Status     ProjectStatus
	Balance    *big.Int
}

// Exists reports whether the project hash has ever been submitted.
func (p Project) Exists() bool {
	return p.Author != (common.Address{})
}
