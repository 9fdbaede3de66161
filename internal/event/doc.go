// Package event carries to-do change notifications from the request path to
// background consumers. Writes publish an Event onto a Queue (in-process
// channel, Redis list or RabbitMQ queue) and a Processor drains it into the
// audit log.
package event
