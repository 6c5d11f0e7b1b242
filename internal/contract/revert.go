package contract

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// RevertReason extracts the Error(string) reason carried by a node error, if
// any. It never alters err; callers use it for display only.
func RevertReason(err error) (string, bool) {
	var dataErr gethrpc.DataError
	if !errors.As(err, &dataErr) {
		return "", false
	}
	var data []byte
	switch v := dataErr.ErrorData().(type) {
	case string:
		if !strings.HasPrefix(v, "0x") {
			return "", false
		}
		decoded, decodeErr := hexutil.Decode(v)
		if decodeErr != nil {
			return "", false
		}
		data = decoded
	case []byte:
		data = v
	case hexutil.Bytes:
		data = v
	default:
		return "", false
	}
	reason, unpackErr := abi.UnpackRevert(data)
	if unpackErr != nil {
		return "", false
	}
	return reason, true
}

// revertSelector is the 4 byte selector of Error(string).
var revertSelector = common.FromHex("0x08c379a0")

// PackRevert encodes reason the way Solidity's require(cond, reason) does.
func PackRevert(reason string) []byte {
	stringType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: stringType}}.Pack(reason)
	return append(append([]byte{}, revertSelector...), packed...)
}
