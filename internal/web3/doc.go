// Package web3 defines the chain access surface used by the ProjectSubmission
// session: network identification, balances, contract backends for calls and
// transactions, and the named chain definitions read from chain.yaml.
package web3
