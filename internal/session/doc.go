// Package session is the client facade over a deployed ProjectSubmission
// contract. A Session resolves the network and contract once, then exposes
// every contract read and state-changing call as a blocking Go method.
package session
