// Package cli provides the nitro-repo operator command line: the handful
// of one-shot administrative tasks (seed a storage, create a repository,
// create the first admin user, issue a personal access token) an operator
// runs directly against the catalog database rather than over HTTP.
//
// # Commands
//
// create-storage: register a Storage row
//
//	nitro-repo-cli create-storage --name local --kind local --local-path ./data/storage
//
// create-repository: register a Repository row under a Storage
//
//	nitro-repo-cli create-repository --storage local --name releases --type maven --sub-type hosted
//
// create-admin: create the first administrator account
//
//	nitro-repo-cli create-admin --username admin --email admin@example.com --password ...
//
// issue-token: mint a personal access token for an existing user
//
//	nitro-repo-cli issue-token --user admin --description "CI publish token"
//
// # Configuration
//
// Every command connects using the same NITRO_CATALOG_DSN environment
// variable the server reads (see pkg/config), so the CLI always talks to
// the catalog the running server is using.
package cli
