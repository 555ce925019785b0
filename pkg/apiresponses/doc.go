// Package apiresponses holds the JSON response helpers shared by the generic
// api server and the dashboard controllers.
package apiresponses
