// Package units converts between decimal ether amounts and wei.
package units

import (
	"fmt"
	"math/big"
	"strings"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/ethereum/go-ethereum/params"
)

// Decimals is the number of fractional digits of one ether expressed in wei.
const Decimals = 18

var weiPerEther = big.NewInt(params.Ether)

// ParseEther converts a decimal ether string such as "1", "0.5" or "1e-3" to
// wei. Negative amounts and amounts finer than one wei are rejected.
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "金额不能为空")
	}
	// big.Rat also accepts fractions such as "1/2".
	if strings.Contains(amount, "/") {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("无法解析金额 %q", amount))
	}
	value, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("无法解析金额 %q", amount))
	}
	return ToWei(value)
}

// ToWei scales an ether amount to wei.
func ToWei(ether *big.Rat) (*big.Int, error) {
	if ether == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "金额不能为空")
	}
	if ether.Sign() < 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "金额不能为负数")
	}
	wei := new(big.Rat).Mul(ether, new(big.Rat).SetInt(weiPerEther))
	if !wei.IsInt() {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("金额 %s 超出 %d 位小数精度", ether.FloatString(Decimals+2), Decimals))
	}
	return new(big.Int).Set(wei.Num()), nil
}

// FormatEther renders a wei amount as a decimal ether string without
// trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	text := new(big.Rat).SetFrac(wei, weiPerEther).FloatString(Decimals)
	if strings.Contains(text, ".") {
		text = strings.TrimRight(text, "0")
		text = strings.TrimSuffix(text, ".")
	}
	return text
}
