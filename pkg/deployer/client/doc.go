// Package client implements the REST clients deployer uses to talk to the
// GitHub and Vercel APIs: repositories and file contents on GitHub, users,
// deployments and projects on Vercel.
package client
