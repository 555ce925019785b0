// Package cmd implements the cobra command tree for the deployer CLI: the
// interactive menu, credential setup, repository and deployment commands,
// the dashboard, configuration and shell completion.
package cmd
