// Package syncer moves data between the local store and the accounting
// service: it pulls the member and article catalog and pushes pending sales.
//
// A push never deletes a sale before the service has acknowledged that
// specific sale. Failed sales stay in the ledger and are retried, in ledger
// order, by the next push.
package syncer
