// Package config loads the JSON configuration used by the ProjectSubmission
// client: chain endpoints, the contract artifact, signing accounts, the
// transaction journal and logging.
package config
