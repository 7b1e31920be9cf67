// Package main provides the entry point for staffgate, an identity provisioning service.
// It keeps a local registry of employee accounts, creates and links their Microsoft Graph
// directory identities, and grants module access through security groups, application
// roles and third-party provisioning APIs. Every module assignment is tracked in a ledger
// so failed steps can be retried from the stored module, role and location.
package main
