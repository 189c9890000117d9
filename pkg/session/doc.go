/*
Package session serialises access to stored user sessions.

Reconciling breadcrumbs is a read-modify-write cycle; the Manager makes sure
only one caller runs it for a given session at a time, within this process
through a reference-counted mutex per session id and across replicas
through an optional ports.DistributedLocker.
*/
package session
