// Package audit records deployer actions (credential changes, repository and
// deployment lifecycle) to pluggable sinks: the process logger, an HTTP
// webhook, or a Kafka topic.
package audit
