// Package provisioning drives account and module provisioning against the directory
// and third-party systems, recording per module sync state in the ledger.
//
// Module steps run sequentially: group membership, then app role, then the external
// API. Directory linkage failures roll back the local transaction; module failures
// are committed and reported as a partial failure.
package provisioning
