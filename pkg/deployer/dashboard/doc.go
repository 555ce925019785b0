// Package dashboard serves the local web page that lists GitHub repositories
// and Vercel projects and deletes them on request.
package dashboard
