// Package history holds what the run history stores share: sentinel
// errors and the tenant context helpers.
//
// The stores themselves (memory, postgres) implement transport.RunStore.
package history
