package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"ProjectSubmission-Chain/internal/contract"
	"ProjectSubmission-Chain/internal/session"
	"ProjectSubmission-Chain/internal/units"

	"github.com/ethereum/go-ethereum/core/types"
)

// field 是文本输出中的一行键值。
type field struct {
	key   string
	value any
}

// render 以 text 或 json 格式输出结果。json 模式输出 fields 组成的对象。
func render(w io.Writer, fields []field) error {
	if flags.output == "json" {
		obj := make(map[string]any, len(fields))
		for _, f := range fields {
			obj[f.key] = f.value
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(obj)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range fields {
		fmt.Fprintf(tw, "%s:\t%v\n", f.key, f.value)
	}
	return tw.Flush()
}

func txFields(result *session.TxResult) []field {
	if result == nil || result.Transaction == nil {
		return nil
	}
	fields := []field{
		{"tx_hash", result.Transaction.Hash().Hex()},
		{"value_wei", result.Transaction.Value().String()},
	}
	if receipt := result.Receipt; receipt != nil {
		status := "success"
		if receipt.Status != types.ReceiptStatusSuccessful {
			status = "reverted"
		}
		fields = append(fields,
			field{"block", receipt.BlockNumber.String()},
			field{"gas_used", receipt.GasUsed},
			field{"status", status},
		)
	}
	return fields
}

func universityFields(state contract.University) []field {
	return []field{
		{"available", state.Available},
		{"balance_wei", state.Balance.String()},
		{"balance_ether", units.FormatEther(state.Balance)},
	}
}

func projectFields(project contract.Project) []field {
	return []field{
		{"exists", project.Exists()},
		{"author", project.Author.Hex()},
		{"university", project.University.Hex()},
		{"status", project.Status.String()},
		{"balance_wei", project.Balance.String()},
		{"balance_ether", units.FormatEther(project.Balance)},
	}
}
