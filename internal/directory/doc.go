// Package directory is the Microsoft Graph client used to manage directory accounts,
// group memberships and app role assignments.
//
// Calls never retry. Every non-2xx response surfaces as a *DirectoryError carrying
// the status and body; retry policy belongs to the caller.
package directory
